package authcore

import (
	"errors"

	"github.com/tidegate/authcore/permission"
)

var (
	// ErrMissingCredentials is returned when the login identifier or
	// password is empty.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrInvalidCredentials is returned on unknown user or wrong password.
	// The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive is returned when the account exists but is
	// deactivated.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountLocked is returned while a lockout window is in effect.
	ErrAccountLocked = errors.New("account locked")
	// ErrTenantNotAuthorized is returned when tenant gating is enabled and
	// the authenticated user belongs to no allowed tenant.
	ErrTenantNotAuthorized = errors.New("tenant not authorized")
	// ErrTokenInvalid covers malformed tokens, bad signatures, wrong token
	// type, and refresh tokens with no live tracking record.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when a structurally valid token is past
	// its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrRefreshReuse is returned when an already-rotated refresh token is
	// redeemed again. All tokens of the affected user are revoked first.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrPermissionDenied is the permission package denial sentinel,
	// re-exported so callers can map it alongside the engine errors.
	ErrPermissionDenied = permission.ErrDenied
	// ErrEngineNotReady is returned when the engine is used before Build
	// wired its mandatory dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrStoreUnavailable wraps backing-store failures on security-critical
	// writes; non-critical audit writes are logged and swallowed instead.
	ErrStoreUnavailable = errors.New("backing store unavailable")
)

// Stable wire codes for the transport layer. The HTTP mapping is the
// caller's concern: 401 for AUTH001-003 and AUTH006, 423 for AUTH007,
// 403 for AUTH005.
const (
	CodeMissingCredentials  = "AUTH001"
	CodeInvalidCredentials  = "AUTH002"
	CodeTokenExpired        = "AUTH003"
	CodeAccountInactive     = "AUTH004"
	CodePermissionDenied    = "AUTH005"
	CodeTenantNotAuthorized = "AUTH006"
	CodeAccountLocked       = "AUTH007"
)

// Code maps an engine error to its stable wire code. Unknown errors,
// including infrastructure failures, map to the empty string.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return CodeMissingCredentials
	case errors.Is(err, ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrRefreshReuse):
		return CodeInvalidCredentials
	case errors.Is(err, ErrAccountInactive):
		return CodeAccountInactive
	case errors.Is(err, ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, ErrTenantNotAuthorized):
		return CodeTenantNotAuthorized
	case errors.Is(err, ErrAccountLocked):
		return CodeAccountLocked
	default:
		return ""
	}
}
