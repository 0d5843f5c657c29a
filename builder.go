package authcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidegate/authcore/internal/audit"
	"github.com/tidegate/authcore/internal/lockout"
	"github.com/tidegate/authcore/internal/metrics"
	"github.com/tidegate/authcore/jwt"
	"github.com/tidegate/authcore/password"
	"github.com/tidegate/authcore/permission"
)

// Builder assembles an Engine. All configuration happens before Build;
// the resulting Engine is immutable and safe for concurrent use.
type Builder struct {
	cfg       Config
	cfgSet    bool
	users     UserStore
	attempts  LoginAttemptStore
	refresh   RefreshTokenStore
	auditSink audit.Sink
	clock     func() time.Time
}

// NewBuilder returns a Builder seeded with DefaultConfig.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	b.cfgSet = true
	return b
}

// WithUserStore sets the user store. Required.
func (b *Builder) WithUserStore(s UserStore) *Builder {
	b.users = s
	return b
}

// WithLoginAttemptStore sets the attempt store. Required.
func (b *Builder) WithLoginAttemptStore(s LoginAttemptStore) *Builder {
	b.attempts = s
	return b
}

// WithRefreshTokenStore sets the refresh token store. Required.
func (b *Builder) WithRefreshTokenStore(s RefreshTokenStore) *Builder {
	b.refresh = s
	return b
}

// WithAuditSink sets the destination for audit events. Without a sink
// the dispatcher falls back to a no-op sink when auditing is enabled.
func (b *Builder) WithAuditSink(s audit.Sink) *Builder {
	b.auditSink = s
	return b
}

// WithClock overrides the time source. Tests only.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	if !b.cfgSet {
		b.cfg = defaultConfig()
		b.cfgSet = true
	}
	b.cfg.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, parses key material and constructs
// the Engine. Invalid key material fails here, never at request time.
func (b *Builder) Build() (*Engine, error) {
	cfg := b.cfg
	if !b.cfgSet {
		cfg = defaultConfig()
	}
	cfg = cloneConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("authcore: config: %w", err)
	}
	if b.users == nil {
		return nil, errors.New("authcore: user store is required")
	}
	if b.attempts == nil {
		return nil, errors.New("authcore: login attempt store is required")
	}
	if b.refresh == nil {
		return nil, errors.New("authcore: refresh token store is required")
	}

	hasher, err := password.New(cfg.Password.Cost)
	if err != nil {
		return nil, fmt.Errorf("authcore: password: %w", err)
	}

	codec, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		Secret:        cfg.JWT.Secret,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Leeway:        cfg.JWT.Leeway,
		MaxFutureIAT:  cfg.JWT.MaxFutureIAT,
		KeyID:         cfg.JWT.KeyID,
	})
	if err != nil {
		return nil, fmt.Errorf("authcore: jwt: %w", err)
	}

	sink := b.auditSink
	if sink == nil {
		sink = audit.NoOpSink{}
	}
	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	now := b.clock
	if now == nil {
		now = time.Now
	}

	eng := &Engine{
		cfg:      cfg,
		users:    b.users,
		attempts: b.attempts,
		refresh:  b.refresh,
		hasher:   hasher,
		codec:    codec,
		policy: lockout.Policy{
			MaxAttempts:  cfg.Lockout.MaxAttempts,
			LockDuration: cfg.Lockout.LockDuration,
		},
		permCache: permission.NewCache(cfg.Permission.CacheTTL),
		checker:   permission.NewChecker(),
		audit:     dispatcher,
		metrics: metrics.New(metrics.Config{
			Enabled:       cfg.Metrics.Enabled,
			EnableLatency: cfg.Metrics.EnableLatencyHistograms,
		}),
		now: now,
	}
	return eng, nil
}
