package authcore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tidegate/authcore/internal/audit"
	"github.com/tidegate/authcore/internal/lockout"
	"github.com/tidegate/authcore/internal/metrics"
	"github.com/tidegate/authcore/jwt"
	"github.com/tidegate/authcore/permission"
)

// Engine is the authentication core. Construct it with [Builder]; the
// zero value is unusable. All methods are safe for concurrent use.
type Engine struct {
	cfg      Config
	users    UserStore
	attempts LoginAttemptStore
	refresh  RefreshTokenStore

	hasher    passwordHasher
	codec     *jwt.Manager
	policy    lockout.Policy
	permCache *permission.Cache
	checker   permission.Checker
	audit     *audit.Dispatcher
	metrics   *metrics.Metrics

	now func() time.Time
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	DummyVerify()
}

func (e *Engine) ready() error {
	if e == nil || e.users == nil || e.attempts == nil || e.refresh == nil || e.codec == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	return nil
}

// Authenticate verifies credentials and issues a token pair.
//
// Every call, whatever branch it takes, lasts at least MinAuthDuration:
// unknown users get a full-cost dummy hash comparison and the remainder
// is slept out, so response timing does not reveal whether the login
// identifier exists.
//
// Error order: locked wins over wrong password, wrong password wins over
// inactive, inactive wins over tenant rejection.
func (e *Engine) Authenticate(ctx context.Context, loginID, plainPassword, clientIP string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	start := e.now()

	pair, err := e.authenticate(ctx, loginID, plainPassword, clientIP)
	if floorErr := e.sleepRemainder(ctx, start); floorErr != nil {
		return nil, floorErr
	}
	return pair, err
}

func (e *Engine) authenticate(ctx context.Context, loginID, plainPassword, clientIP string) (*TokenPair, error) {
	if loginID == "" || plainPassword == "" {
		return nil, ErrMissingCredentials
	}

	user, err := e.users.FindByLoginID(ctx, loginID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if user == nil {
		// Burn the same hashing cost a real comparison would.
		e.hasher.DummyVerify()
		e.recordAttempt(ctx, "", loginID, clientIP, false)
		e.metrics.Inc(metrics.MetricLoginFailure)
		e.emitLoginFailure(ctx, nil, loginID, clientIP, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	now := e.now()
	if e.policy.Locked(user.LockedUntil, now) {
		// No password check while locked: a locked account leaks nothing
		// about credential correctness.
		e.recordAttempt(ctx, user.ID, loginID, clientIP, false)
		e.metrics.Inc(metrics.MetricLoginLocked)
		e.emit(ctx, audit.EventLoginLocked, user, loginID, clientIP, false, ErrAccountLocked)
		return nil, ErrAccountLocked
	}
	if e.policy.Expired(user.LockedUntil, now) {
		user.LockedUntil = nil
		if err := e.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("%w: clearing expired lock: %v", ErrStoreUnavailable, err)
		}
	}

	if !e.hasher.Verify(plainPassword, user.PasswordHash) {
		return nil, e.handlePasswordFailure(ctx, user, loginID, clientIP)
	}

	if !user.Active {
		e.recordAttempt(ctx, user.ID, loginID, clientIP, false)
		e.metrics.Inc(metrics.MetricLoginFailure)
		e.emit(ctx, audit.EventLoginFailure, user, loginID, clientIP, false, ErrAccountInactive)
		return nil, ErrAccountInactive
	}

	if len(e.cfg.Security.AllowedTenants) > 0 && !tenantAllowed(user.Tenants(), e.cfg.Security.AllowedTenants) {
		e.recordAttempt(ctx, user.ID, loginID, clientIP, false)
		e.metrics.Inc(metrics.MetricLoginTenantRejected)
		e.emit(ctx, audit.EventTenantRejected, user, loginID, clientIP, false, ErrTenantNotAuthorized)
		return nil, ErrTenantNotAuthorized
	}

	e.recordAttempt(ctx, user.ID, loginID, clientIP, true)

	pair, err := e.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(metrics.MetricLoginSuccess)
	e.emit(ctx, audit.EventLoginSuccess, user, loginID, clientIP, true, nil)
	return pair, nil
}

// handlePasswordFailure records the failure, re-counts the window and
// applies the lockout policy. The failing attempt is written before the
// count so it participates in its own threshold check.
func (e *Engine) handlePasswordFailure(ctx context.Context, user *User, loginID, clientIP string) error {
	e.recordAttempt(ctx, user.ID, loginID, clientIP, false)
	e.metrics.Inc(metrics.MetricLoginFailure)
	e.emit(ctx, audit.EventLoginFailure, user, loginID, clientIP, false, ErrInvalidCredentials)

	failures, err := e.attempts.CountRecentFailures(ctx, loginID, e.policy.Window())
	if err != nil {
		// The caller still sees invalid credentials; losing one lockout
		// count is preferable to surfacing store state on a login failure.
		logf("authcore: counting recent failures for %q: %v", loginID, err)
		return ErrInvalidCredentials
	}

	if until := e.policy.LockUntil(failures, e.now()); until != nil {
		user.LockedUntil = until
		if err := e.users.Update(ctx, user); err != nil {
			return fmt.Errorf("%w: persisting lockout: %v", ErrStoreUnavailable, err)
		}
		e.metrics.Inc(metrics.MetricLockoutTriggered)
		e.emit(ctx, audit.EventLockoutTriggered, user, loginID, clientIP, false, ErrAccountLocked)
	}
	return ErrInvalidCredentials
}

// VerifyAccessToken validates an access token and re-checks the subject's
// current account state, so deactivation and lockout take effect within a
// token's lifetime instead of at its expiry.
func (e *Engine) VerifyAccessToken(ctx context.Context, token string) (*Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	start := e.now()

	identity, err := e.verifyAccessToken(ctx, token)
	e.metrics.Observe(metrics.MetricVerifyLatency, e.now().Sub(start).Seconds())
	return identity, err
}

func (e *Engine) verifyAccessToken(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingCredentials
	}

	claims, err := e.codec.VerifyAccess(token)
	if err != nil {
		e.metrics.Inc(metrics.MetricVerifyFailure)
		e.emitVerifyFailure(ctx, err)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}

	user, err := e.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if user == nil {
		e.metrics.Inc(metrics.MetricVerifyFailure)
		e.emitVerifyFailure(ctx, ErrTokenInvalid)
		return nil, fmt.Errorf("%w: subject no longer exists", ErrTokenInvalid)
	}
	if !user.Active {
		e.metrics.Inc(metrics.MetricVerifyFailure)
		e.emitVerifyFailure(ctx, ErrAccountInactive)
		return nil, ErrAccountInactive
	}
	if e.policy.Locked(user.LockedUntil, e.now()) {
		e.metrics.Inc(metrics.MetricVerifyFailure)
		e.emitVerifyFailure(ctx, ErrAccountLocked)
		return nil, ErrAccountLocked
	}

	e.metrics.Inc(metrics.MetricVerifySuccess)
	return &Identity{
		UserID:  user.ID,
		LoginID: user.LoginID,
		Tenants: claims.Tenants,
		Roles:   claims.Roles,
	}, nil
}

// RequirePermission checks one permission for an identity, consulting the
// cached permission list first and falling back to resolve when given.
// resolve may be nil when the identity's roles alone decide.
func (e *Engine) RequirePermission(ctx context.Context, identity *Identity, required string, resolve func(ctx context.Context) ([]string, error)) error {
	if identity == nil {
		return ErrPermissionDenied
	}

	perms, err := e.permissionsFor(ctx, identity, resolve)
	if err != nil {
		return err
	}
	return e.checker.Require(permission.Subject{
		Roles:       identity.RoleNames(),
		Permissions: perms,
	}, required)
}

func (e *Engine) permissionsFor(ctx context.Context, identity *Identity, resolve func(ctx context.Context) ([]string, error)) ([]string, error) {
	tenant := ""
	if len(identity.Tenants) > 0 {
		tenant = identity.Tenants[0]
	}

	if perms, ok := e.permCache.Get(identity.UserID, tenant); ok {
		return perms, nil
	}
	if resolve == nil {
		return nil, nil
	}

	perms, err := resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving permissions: %v", ErrStoreUnavailable, err)
	}
	e.permCache.Set(identity.UserID, tenant, perms)
	return perms, nil
}

// InvalidatePermissions drops the cached permission list for one user and
// tenant, forcing the next check through the resolver.
func (e *Engine) InvalidatePermissions(userID, tenantID string) {
	e.permCache.Invalidate(userID, tenantID)
}

// RevokeAllTokens revokes every live refresh token of a user, for
// password changes and administrative session kills.
func (e *Engine) RevokeAllTokens(ctx context.Context, userID string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	n, err := e.refresh.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if n > 0 {
		e.metrics.Add(metrics.MetricTokensRevoked, n)
		e.audit.Emit(ctx, audit.Event{
			Timestamp: e.now(),
			EventType: audit.EventRefreshRevokeAll,
			UserID:    userID,
			Success:   true,
			Metadata:  map[string]string{"revoked": strconv.Itoa(n)},
		})
	}
	return n, nil
}

// HashPassword produces a hash suitable for User.PasswordHash, so hosts
// never touch the hashing parameters directly.
func (e *Engine) HashPassword(plaintext string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	return e.hasher.Hash(plaintext)
}

// VerifyKey exposes the token verification key for sibling services.
func (e *Engine) VerifyKey() any {
	return e.codec.VerifyKey()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() metrics.Snapshot {
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. The engine must not be
// used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// sleepRemainder pads the elapsed time out to MinAuthDuration, honoring
// context cancellation.
func (e *Engine) sleepRemainder(ctx context.Context, start time.Time) error {
	floor := e.cfg.Security.MinAuthDuration
	if floor <= 0 {
		return nil
	}
	remaining := floor - e.now().Sub(start)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func tenantAllowed(memberships, allowed []string) bool {
	for _, m := range memberships {
		for _, a := range allowed {
			if m == a {
				return true
			}
		}
	}
	return false
}
