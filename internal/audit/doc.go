// Package audit defines the structured security-event model and the
// asynchronous dispatcher that forwards events to a host-supplied sink.
// Dispatch is bounded and best-effort: a full buffer either drops the
// event (counted) or blocks until the caller's context is done, and never
// fails the primary operation.
package audit
