package authcore

import (
	"errors"
	"time"

	"github.com/tidegate/authcore/jwt"
	"github.com/tidegate/authcore/password"
	"github.com/tidegate/authcore/permission"
)

// Config groups all engine tunables. Instances are configured before
// [Builder.Build] and treated as immutable afterwards.
type Config struct {
	JWT        JWTConfig
	Password   PasswordConfig
	Lockout    LockoutConfig
	Security   SecurityConfig
	Permission PermissionConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// JWTConfig carries key material and token lifetimes. TTLs are
// deployment-specific configuration, not constants: access tokens are
// commonly 60 minutes, some deployments use 24 hours.
type JWTConfig struct {
	SigningMethod string // "rs256" (default) or "hs256"
	PrivateKey    []byte // PEM, rs256
	PublicKey     []byte // PEM, rs256; derived from PrivateKey when absent
	Secret        []byte // hs256
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	KeyID         string
}

// PasswordConfig tunes the bcrypt cost.
type PasswordConfig struct {
	Cost int
}

// LockoutConfig tunes the failed-login lockout policy. MaxAttempts <= 0
// disables automatic locking; explicit LockedUntil deadlines still apply.
type LockoutConfig struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// SecurityConfig carries cross-cutting hardening knobs.
//
// MinAuthDuration is the wall-clock floor for every Authenticate call:
// whichever branch is taken, the call sleeps out the remainder so that
// unknown-user, wrong-password and policy-rejection branches are
// indistinguishable by timing.
//
// AllowedTenants, when non-empty, enables privileged-tenant gating: a
// correctly authenticated user whose tenant set does not intersect it is
// rejected with [ErrTenantNotAuthorized].
type SecurityConfig struct {
	MinAuthDuration time.Duration
	AllowedTenants  []string
}

// PermissionConfig tunes the permission cache.
type PermissionConfig struct {
	CacheTTL time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: string(jwt.MethodRS256),
			AccessTTL:     60 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
		},
		Password: PasswordConfig{Cost: password.DefaultCost},
		Lockout: LockoutConfig{
			MaxAttempts:  5,
			LockDuration: 15 * time.Minute,
		},
		Security: SecurityConfig{
			MinAuthDuration: 200 * time.Millisecond,
		},
		Permission: PermissionConfig{CacheTTL: permission.DefaultCacheTTL},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// DefaultConfig returns the development-friendly defaults. Key material
// must still be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

// ProductionPreset hardens the defaults: strict expiry, full-cost
// hashing, latency histograms on.
func ProductionPreset() Config {
	cfg := defaultConfig()
	cfg.JWT.Leeway = 0
	cfg.Password.Cost = password.DefaultCost
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

// Validate rejects configurations the engine cannot run safely. Key
// material is checked later by the token codec, which needs to parse it
// anyway.
func (c Config) Validate() error {
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("refresh TTL must exceed access TTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("leeway out of range")
	}
	if c.Password.Cost < 4 || c.Password.Cost > 31 {
		return errors.New("bcrypt cost out of range")
	}
	if c.Lockout.MaxAttempts > 0 && c.Lockout.LockDuration <= 0 {
		return errors.New("lock duration must be positive when lockout is enabled")
	}
	if c.Security.MinAuthDuration < 0 || c.Security.MinAuthDuration > 5*time.Second {
		return errors.New("minimum auth duration out of range")
	}
	if c.Permission.CacheTTL < 0 {
		return errors.New("permission cache TTL must not be negative")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.Security.AllowedTenants = append([]string(nil), cfg.Security.AllowedTenants...)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
