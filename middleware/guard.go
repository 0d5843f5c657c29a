package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tidegate/authcore"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity injected by [Guard].
func IdentityFromContext(ctx context.Context) (*authcore.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*authcore.Identity)
	return id, ok
}

// Guard verifies the bearer token on every request and injects the
// resulting identity into the request context. Rejections carry the
// engine's stable error code in the X-Auth-Error header.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				reject(w, authcore.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, authcore.ErrMissingCredentials)
				return
			}

			identity, err := engine.VerifyAccessToken(r.Context(), token)
			if err != nil {
				reject(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PermissionResolver loads the definitive permission list for an
// identity when the engine's cache misses.
type PermissionResolver func(ctx context.Context, identity *authcore.Identity) ([]string, error)

// RequirePermission wraps Guard with a permission check. resolve may be
// nil when role-derived permissions suffice.
func RequirePermission(engine *authcore.Engine, required string, resolve PermissionResolver) func(http.Handler) http.Handler {
	guard := Guard(engine)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _ := IdentityFromContext(r.Context())

			var fallback func(ctx context.Context) ([]string, error)
			if resolve != nil {
				fallback = func(ctx context.Context) ([]string, error) {
					return resolve(ctx, identity)
				}
			}
			if err := engine.RequirePermission(r.Context(), identity, required, fallback); err != nil {
				reject(w, err)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// reject maps engine errors onto HTTP status codes: 403 for permission
// denial, 423 for lockout, 401 for everything else.
func reject(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	message := "unauthorized"
	switch {
	case errors.Is(err, authcore.ErrPermissionDenied):
		status = http.StatusForbidden
		message = "forbidden"
	case errors.Is(err, authcore.ErrAccountLocked):
		status = http.StatusLocked
		message = "locked"
	}
	if code := authcore.Code(err); code != "" {
		w.Header().Set("X-Auth-Error", code)
	}
	http.Error(w, message, status)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
