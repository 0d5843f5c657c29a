package authcore

import (
	"context"
	"time"
)

// RoleAssignment grants one role for one downstream service.
type RoleAssignment struct {
	ServiceID string
	RoleName  string
}

// User is the credential aggregate root. PasswordHash is write-only from
// the engine's perspective: it is produced exclusively by the password
// hasher and never compared directly.
type User struct {
	ID           string
	TenantID     string
	TenantIDs    []string
	LoginID      string
	PasswordHash string
	Active       bool
	LockedUntil  *time.Time
	Roles        []RoleAssignment

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

// Tenants returns the user's full tenant membership: the primary tenant
// followed by any additional memberships, deduplicated.
func (u *User) Tenants() []string {
	out := make([]string, 0, 1+len(u.TenantIDs))
	seen := make(map[string]struct{}, 1+len(u.TenantIDs))
	if u.TenantID != "" {
		out = append(out, u.TenantID)
		seen[u.TenantID] = struct{}{}
	}
	for _, id := range u.TenantIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// RolesByService groups role assignments into the serviceId -> role names
// mapping carried in the access-token payload.
func RolesByService(roles []RoleAssignment) map[string][]string {
	if len(roles) == 0 {
		return nil
	}
	out := make(map[string][]string, len(roles))
	for _, r := range roles {
		if r.ServiceID == "" || r.RoleName == "" {
			continue
		}
		out[r.ServiceID] = append(out[r.ServiceID], r.RoleName)
	}
	return out
}

// LoginAttempt is an append-only audit record, written on every
// authentication attempt whether or not the identity resolved.
type LoginAttempt struct {
	ID        string
	UserID    string // empty when the login identifier did not resolve
	LoginID   string
	Success   bool
	IP        string
	CreatedAt time.Time
}

// RefreshTokenRecord tracks one issued refresh token. Its ID equals the
// token's jti claim. Token validity within the TTL is cryptographic; the
// record exists to detect rotation and reuse.
type RefreshTokenRecord struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	Revoked   bool
	UsedAt    *time.Time
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64 // access-token lifetime in seconds
}

// Identity is the result of a successful access-token verification, after
// the user's current state has been re-checked against the store.
type Identity struct {
	UserID  string
	LoginID string
	Tenants []string
	Roles   map[string][]string
}

// RoleNames flattens the per-service role mapping into the plain role list
// the permission evaluator consumes.
func (id *Identity) RoleNames() []string {
	if id == nil || len(id.Roles) == 0 {
		return nil
	}
	var out []string
	for _, names := range id.Roles {
		out = append(out, names...)
	}
	return out
}

// UserStore is the credential lookup contract implemented by the embedding
// application. A missing user is (nil, nil), never an error: the engine
// must not be able to distinguish lookup misses from store failures by
// error shape alone.
type UserStore interface {
	FindByLoginID(ctx context.Context, loginID string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
}

// LoginAttemptStore persists the append-only attempt log and answers the
// lockout window query. CountRecentFailures counts failed attempts within
// the window since the most recent successful attempt, so a successful
// login naturally resets the failure run.
type LoginAttemptStore interface {
	Create(ctx context.Context, attempt *LoginAttempt) error
	CountRecentFailures(ctx context.Context, loginID string, window time.Duration) (int, error)
}

// RefreshTokenStore persists refresh-token tracking records.
//
// MarkUsed is the rotation point and must be a single conditional update:
// it marks the record used and revoked only when UsedAt is still unset,
// returning whether this call won. Two racing redemptions of the same
// token must observe exactly one true result.
type RefreshTokenStore interface {
	Create(ctx context.Context, record *RefreshTokenRecord) error
	FindByID(ctx context.Context, id string) (*RefreshTokenRecord, error)
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
}
