package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidegate/authcore/internal/audit"
	"github.com/tidegate/authcore/internal/metrics"
	"github.com/tidegate/authcore/jwt"
)

// Refresh redeems a refresh token for a new token pair, rotating the
// token: the presented token is retired atomically and a replacement is
// issued. Redeeming an already-rotated token is treated as theft
// evidence; every live token of the affected user is revoked and the
// caller gets [ErrRefreshReuse].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if refreshToken == "" {
		return nil, ErrMissingCredentials
	}

	claims, err := e.codec.VerifyRefresh(refreshToken)
	if err != nil {
		e.metrics.Inc(metrics.MetricRefreshFailure)
		e.emitRefreshFailure(ctx, "", err)
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	record, err := e.refresh.FindByID(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if record == nil {
		e.metrics.Inc(metrics.MetricRefreshFailure)
		e.emitRefreshFailure(ctx, claims.Subject, ErrTokenInvalid)
		return nil, fmt.Errorf("%w: unknown refresh token", ErrTokenInvalid)
	}
	if record.Revoked {
		e.metrics.Inc(metrics.MetricRefreshFailure)
		e.emitRefreshFailure(ctx, record.UserID, ErrTokenInvalid)
		return nil, fmt.Errorf("%w: refresh token revoked", ErrTokenInvalid)
	}

	// Single-winner rotation: of N concurrent redemptions of the same
	// token, exactly one MarkUsed call returns true. Losers take the reuse
	// path below.
	won, err := e.refresh.MarkUsed(ctx, record.ID, e.now())
	if err != nil {
		return nil, fmt.Errorf("%w: rotating refresh token: %v", ErrStoreUnavailable, err)
	}
	if !won {
		// A false CAS also covers a record that expired between the lookup
		// and the mark. Re-fetch to tell the two apart: only a record that
		// still exists proves an actual double redemption.
		again, err := e.refresh.FindByID(ctx, record.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if again == nil {
			e.metrics.Inc(metrics.MetricRefreshFailure)
			e.emitRefreshFailure(ctx, record.UserID, ErrTokenInvalid)
			return nil, fmt.Errorf("%w: refresh token no longer tracked", ErrTokenInvalid)
		}
		return nil, e.handleRefreshReuse(ctx, record)
	}

	user, err := e.users.FindByID(ctx, record.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if user == nil || !user.Active {
		// A missing or deactivated subject makes the token worthless, and
		// the caller learns nothing more than "invalid": account state is
		// only disclosed on credentialed logins.
		e.metrics.Inc(metrics.MetricRefreshFailure)
		e.emitRefreshFailure(ctx, record.UserID, ErrTokenInvalid)
		return nil, fmt.Errorf("%w: subject missing or inactive", ErrTokenInvalid)
	}
	if e.policy.Locked(user.LockedUntil, e.now()) {
		e.metrics.Inc(metrics.MetricRefreshFailure)
		e.emitRefreshFailure(ctx, user.ID, ErrAccountLocked)
		return nil, ErrAccountLocked
	}

	pair, err := e.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(metrics.MetricRefreshSuccess)
	e.audit.Emit(ctx, audit.Event{
		Timestamp: e.now(),
		EventType: audit.EventRefreshSuccess,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		LoginID:   user.LoginID,
		Success:   true,
		Metadata:  map[string]string{"rotated_jti": record.ID},
	})
	return pair, nil
}

// handleRefreshReuse revokes the whole token family of the affected user.
// A failed revocation still surfaces reuse to the caller; the incident is
// logged so the host can intervene.
func (e *Engine) handleRefreshReuse(ctx context.Context, record *RefreshTokenRecord) error {
	e.metrics.Inc(metrics.MetricRefreshReuseDetected)

	revoked, err := e.refresh.RevokeAllForUser(ctx, record.UserID)
	if err != nil {
		logf("authcore: revoking tokens after reuse of %s for user %s: %v", record.ID, record.UserID, err)
	} else {
		e.metrics.Add(metrics.MetricTokensRevoked, revoked)
	}

	e.audit.Emit(ctx, audit.Event{
		Timestamp: e.now(),
		EventType: audit.EventRefreshReuse,
		UserID:    record.UserID,
		Success:   false,
		Error:     ErrRefreshReuse.Error(),
		Metadata:  map[string]string{"jti": record.ID},
	})
	return ErrRefreshReuse
}

// issueTokenPair signs a new access/refresh pair and tracks the refresh
// token. The tracking write is best-effort: a failed write leaves the
// refresh token unredeemable (no record means AUTH002 on redemption), so
// availability degrades to re-login rather than blocking the login.
func (e *Engine) issueTokenPair(ctx context.Context, user *User) (*TokenPair, error) {
	access, _, err := e.codec.IssueAccess(user.ID, user.LoginID, user.Tenants(), RolesByService(user.Roles))
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	jti := uuid.NewString()
	refresh, expiresAt, err := e.codec.IssueRefresh(user.ID, jti)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	if err := e.refresh.Create(ctx, &RefreshTokenRecord{
		ID:        jti,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}); err != nil {
		logf("authcore: tracking refresh token %s for user %s: %v", jti, user.ID, err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(e.codec.AccessTTL().Seconds()),
	}, nil
}
