package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tidegate/authcore"
)

func newAttemptStoreTest(t *testing.T, window time.Duration) (*LoginAttemptStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewLoginAttemptStore(rdb, window), mr
}

func attempt(loginID string, success bool) *authcore.LoginAttempt {
	return &authcore.LoginAttempt{
		ID:        uuid.NewString(),
		LoginID:   loginID,
		Success:   success,
		IP:        "192.0.2.10",
		CreatedAt: time.Now(),
	}
}

func TestAttemptFailureCounting(t *testing.T) {
	store, _ := newAttemptStoreTest(t, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Create(ctx, attempt("alice@example.com", false)); err != nil {
			t.Fatalf("create failure %d: %v", i, err)
		}
	}

	count, err := store.CountRecentFailures(ctx, "alice@example.com", 15*time.Minute)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 failures, got %d", count)
	}

	other, err := store.CountRecentFailures(ctx, "bob@example.com", 15*time.Minute)
	if err != nil {
		t.Fatalf("count other: %v", err)
	}
	if other != 0 {
		t.Fatalf("expected 0 for untouched identifier, got %d", other)
	}
}

func TestAttemptSuccessResetsCounter(t *testing.T) {
	store, _ := newAttemptStoreTest(t, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := store.Create(ctx, attempt("alice@example.com", false)); err != nil {
			t.Fatalf("create failure: %v", err)
		}
	}
	if err := store.Create(ctx, attempt("alice@example.com", true)); err != nil {
		t.Fatalf("create success: %v", err)
	}

	count, err := store.CountRecentFailures(ctx, "alice@example.com", 15*time.Minute)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected reset to 0, got %d", count)
	}
}

func TestAttemptCounterExpiresWithWindow(t *testing.T) {
	store, mr := newAttemptStoreTest(t, time.Minute)
	ctx := context.Background()

	if err := store.Create(ctx, attempt("alice@example.com", false)); err != nil {
		t.Fatalf("create failure: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	count, err := store.CountRecentFailures(ctx, "alice@example.com", time.Minute)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected counter to expire, got %d", count)
	}
}

func TestAttemptLogCappedAndReadable(t *testing.T) {
	store, _ := newAttemptStoreTest(t, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < attemptLogMaxLen+20; i++ {
		if err := store.Create(ctx, attempt("alice@example.com", i%2 == 0)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	attempts, err := store.RecentAttempts(ctx, "alice@example.com", 0)
	if err != nil {
		t.Fatalf("recent attempts: %v", err)
	}
	if len(attempts) != attemptLogMaxLen {
		t.Fatalf("expected log capped at %d, got %d", attemptLogMaxLen, len(attempts))
	}
	for _, a := range attempts {
		if a.LoginID != "alice@example.com" || a.ID == "" {
			t.Fatalf("malformed attempt: %+v", a)
		}
	}
}
