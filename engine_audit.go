package authcore

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/tidegate/authcore/internal/audit"
)

// recordAttempt appends to the login-attempt log. Attempt writes are
// best-effort: a failing audit trail must not block logins, so errors are
// logged and swallowed. Lockout accuracy degrades gracefully because the
// failure count is re-queried from the store on every failure.
func (e *Engine) recordAttempt(ctx context.Context, userID, loginID, clientIP string, success bool) {
	err := e.attempts.Create(ctx, &LoginAttempt{
		ID:        uuid.NewString(),
		UserID:    userID,
		LoginID:   loginID,
		Success:   success,
		IP:        clientIP,
		CreatedAt: e.now(),
	})
	if err != nil {
		logf("authcore: recording login attempt for %q: %v", loginID, err)
	}
}

func (e *Engine) emit(ctx context.Context, eventType string, user *User, loginID, clientIP string, success bool, cause error) {
	event := audit.Event{
		Timestamp: e.now(),
		EventType: eventType,
		LoginID:   loginID,
		IP:        clientIP,
		Success:   success,
	}
	if user != nil {
		event.UserID = user.ID
		event.TenantID = user.TenantID
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.audit.Emit(ctx, event)
}

func (e *Engine) emitLoginFailure(ctx context.Context, user *User, loginID, clientIP string, cause error) {
	e.emit(ctx, audit.EventLoginFailure, user, loginID, clientIP, false, cause)
}

func (e *Engine) emitVerifyFailure(ctx context.Context, cause error) {
	e.emit(ctx, audit.EventTokenVerifyFailure, nil, "", "", false, cause)
}

func (e *Engine) emitRefreshFailure(ctx context.Context, userID string, cause error) {
	event := audit.Event{
		Timestamp: e.now(),
		EventType: audit.EventRefreshFailure,
		UserID:    userID,
		Success:   false,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.audit.Emit(ctx, event)
}

func logf(format string, args ...any) {
	log.Printf(format, args...)
}
