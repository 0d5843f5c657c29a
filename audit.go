package authcore

import (
	"io"

	"github.com/tidegate/authcore/internal/audit"
)

// AuditEvent is one security event emitted by the engine.
type AuditEvent = audit.Event

// AuditSink receives emitted audit events. Implementations must be safe
// for concurrent use; the dispatcher calls Emit from its own goroutine.
type AuditSink = audit.Sink

// Canonical audit event types.
const (
	AuditLoginSuccess       = audit.EventLoginSuccess
	AuditLoginFailure       = audit.EventLoginFailure
	AuditLoginLocked        = audit.EventLoginLocked
	AuditLockoutTriggered   = audit.EventLockoutTriggered
	AuditTenantRejected     = audit.EventTenantRejected
	AuditTokenVerifyFailure = audit.EventTokenVerifyFailure
	AuditRefreshSuccess     = audit.EventRefreshSuccess
	AuditRefreshFailure     = audit.EventRefreshFailure
	AuditRefreshReuse       = audit.EventRefreshReuse
	AuditRefreshRevokeAll   = audit.EventRefreshRevokeAll
)

// NewJSONAuditSink writes one JSON object per event line to w.
func NewJSONAuditSink(w io.Writer) AuditSink {
	return audit.NewJSONWriterSink(w)
}

// NewChannelAuditSink buffers events in a channel for the host to drain.
func NewChannelAuditSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}
