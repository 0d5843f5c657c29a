// Package metrics provides the engine's in-process counters and latency
// histogram. All operations are lock-free atomic updates; Snapshot makes
// a point-in-time deep copy for exporters.
package metrics
