package authcore_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tidegate/authcore"
	"github.com/tidegate/authcore/memstore"
)

func validTestConfig() authcore.Config {
	cfg := authcore.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestBuildRequiresStores(t *testing.T) {
	_, err := authcore.NewBuilder().WithConfig(validTestConfig()).Build()
	if err == nil || !strings.Contains(err.Error(), "user store") {
		t.Fatalf("expected user store error, got %v", err)
	}

	_, err = authcore.NewBuilder().
		WithConfig(validTestConfig()).
		WithUserStore(memstore.NewUserStore()).
		Build()
	if err == nil || !strings.Contains(err.Error(), "attempt store") {
		t.Fatalf("expected attempt store error, got %v", err)
	}

	_, err = authcore.NewBuilder().
		WithConfig(validTestConfig()).
		WithUserStore(memstore.NewUserStore()).
		WithLoginAttemptStore(memstore.NewLoginAttemptStore()).
		Build()
	if err == nil || !strings.Contains(err.Error(), "refresh token store") {
		t.Fatalf("expected refresh token store error, got %v", err)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	mutations := map[string]func(*authcore.Config){
		"zero access TTL":        func(c *authcore.Config) { c.JWT.AccessTTL = 0 },
		"refresh below access":   func(c *authcore.Config) { c.JWT.RefreshTTL = time.Minute },
		"excessive leeway":       func(c *authcore.Config) { c.JWT.Leeway = time.Hour },
		"bcrypt cost too low":    func(c *authcore.Config) { c.Password.Cost = 1 },
		"lockout missing window": func(c *authcore.Config) { c.Lockout.LockDuration = 0 },
		"negative auth floor":    func(c *authcore.Config) { c.Security.MinAuthDuration = -time.Second },
	}

	for name, mutate := range mutations {
		cfg := validTestConfig()
		mutate(&cfg)
		_, err := authcore.NewBuilder().
			WithConfig(cfg).
			WithUserStore(memstore.NewUserStore()).
			WithLoginAttemptStore(memstore.NewLoginAttemptStore()).
			WithRefreshTokenStore(memstore.NewRefreshTokenStore()).
			Build()
		if err == nil {
			t.Fatalf("%s: expected build failure", name)
		}
	}
}

func TestBuildFailsFastOnMissingKeyMaterial(t *testing.T) {
	cfg := authcore.DefaultConfig() // rs256 with no key material

	_, err := authcore.NewBuilder().
		WithConfig(cfg).
		WithUserStore(memstore.NewUserStore()).
		WithLoginAttemptStore(memstore.NewLoginAttemptStore()).
		WithRefreshTokenStore(memstore.NewRefreshTokenStore()).
		Build()
	if err == nil || !strings.Contains(err.Error(), "private key") {
		t.Fatalf("expected key material error, got %v", err)
	}
}

func TestEngineEmitsAuditEvents(t *testing.T) {
	sink := authcore.NewChannelAuditSink(32)

	cfg := validTestConfig()
	cfg.Password.Cost = 4
	cfg.Security.MinAuthDuration = 0

	users := memstore.NewUserStore()
	engine, err := authcore.NewBuilder().
		WithConfig(cfg).
		WithUserStore(users).
		WithLoginAttemptStore(memstore.NewLoginAttemptStore()).
		WithRefreshTokenStore(memstore.NewRefreshTokenStore()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	hash, err := engine.HashPassword("Admin@123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users.Put(&authcore.User{
		ID:           "u-1",
		TenantID:     "t-1",
		LoginID:      "admin@example.com",
		PasswordHash: hash,
		Active:       true,
	})

	ctx := context.Background()
	if _, err := engine.Authenticate(ctx, "admin@example.com", "Admin@123", "192.0.2.9"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := engine.Authenticate(ctx, "admin@example.com", "wrong", "192.0.2.9"); !errors.Is(err, authcore.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	engine.Close() // flushes the dispatcher

	got := map[string]authcore.AuditEvent{}
	for {
		select {
		case ev := <-sink.Events():
			got[ev.EventType] = ev
			continue
		default:
		}
		break
	}

	success, ok := got[authcore.AuditLoginSuccess]
	if !ok {
		t.Fatalf("missing login success event, got %v", eventTypes(got))
	}
	if success.UserID != "u-1" || success.IP != "192.0.2.9" || !success.Success {
		t.Fatalf("unexpected success event %+v", success)
	}

	failure, ok := got[authcore.AuditLoginFailure]
	if !ok {
		t.Fatalf("missing login failure event, got %v", eventTypes(got))
	}
	if failure.Success || failure.Error == "" {
		t.Fatalf("unexpected failure event %+v", failure)
	}
}

func eventTypes(events map[string]authcore.AuditEvent) []string {
	out := make([]string, 0, len(events))
	for k := range events {
		out = append(out, k)
	}
	return out
}
