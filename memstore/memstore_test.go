package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tidegate/authcore"
)

func TestUserStoreLookupAndIsolation(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	store.Put(&authcore.User{ID: "u-1", LoginID: "a@example.com", Active: true})

	byLogin, err := store.FindByLoginID(ctx, "a@example.com")
	if err != nil || byLogin == nil || byLogin.ID != "u-1" {
		t.Fatalf("FindByLoginID = %+v, %v", byLogin, err)
	}
	byID, err := store.FindByID(ctx, "u-1")
	if err != nil || byID == nil || byID.LoginID != "a@example.com" {
		t.Fatalf("FindByID = %+v, %v", byID, err)
	}

	missing, err := store.FindByLoginID(ctx, "nobody@example.com")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing user, got %+v, %v", missing, err)
	}

	// Mutating a returned copy must not leak into the store.
	byID.Active = false
	again, _ := store.FindByID(ctx, "u-1")
	if !again.Active {
		t.Fatal("store state leaked through returned pointer")
	}
}

func TestUserStoreUpdatePersistsLock(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	store.Put(&authcore.User{ID: "u-1", LoginID: "a@example.com", Active: true})

	user, _ := store.FindByID(ctx, "u-1")
	until := time.Now().Add(time.Hour)
	user.LockedUntil = &until
	if err := store.Update(ctx, user); err != nil {
		t.Fatalf("update: %v", err)
	}

	reloaded, _ := store.FindByID(ctx, "u-1")
	if reloaded.LockedUntil == nil || !reloaded.LockedUntil.Equal(until) {
		t.Fatalf("expected persisted lock %v, got %v", until, reloaded.LockedUntil)
	}
}

func TestAttemptStoreCountsSinceLastSuccess(t *testing.T) {
	store := NewLoginAttemptStore()
	ctx := context.Background()
	now := time.Now()

	add := func(success bool, at time.Time) {
		if err := store.Create(ctx, &authcore.LoginAttempt{
			ID: "a", LoginID: "x@example.com", Success: success, CreatedAt: at,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	add(false, now.Add(-4*time.Minute))
	add(false, now.Add(-3*time.Minute))
	add(true, now.Add(-2*time.Minute))
	add(false, now.Add(-time.Minute))
	add(false, now.Add(-time.Second))

	count, err := store.CountRecentFailures(ctx, "x@example.com", 15*time.Minute)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 failures since last success, got %d", count)
	}
}

func TestAttemptStoreWindowBounds(t *testing.T) {
	store := NewLoginAttemptStore()
	ctx := context.Background()
	now := time.Now()

	for _, age := range []time.Duration{20 * time.Minute, 10 * time.Minute, time.Minute} {
		if err := store.Create(ctx, &authcore.LoginAttempt{
			LoginID: "x@example.com", Success: false, CreatedAt: now.Add(-age),
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	count, err := store.CountRecentFailures(ctx, "x@example.com", 15*time.Minute)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 failures inside the window, got %d", count)
	}
}

func TestRefreshStoreMarkUsedIsExclusive(t *testing.T) {
	store := NewRefreshTokenStore()
	ctx := context.Background()

	if err := store.Create(ctx, &authcore.RefreshTokenRecord{
		ID: "jti-1", UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	const racers = 16
	var wg sync.WaitGroup
	var winners int32
	var mu sync.Mutex
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func() {
			defer wg.Done()
			won, err := store.MarkUsed(ctx, "jti-1", time.Now())
			if err != nil {
				t.Errorf("mark used: %v", err)
				return
			}
			if won {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}
}

func TestRefreshStoreRevokeAllForUser(t *testing.T) {
	store := NewRefreshTokenStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := store.Create(ctx, &authcore.RefreshTokenRecord{
			ID: id, UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour),
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := store.Create(ctx, &authcore.RefreshTokenRecord{
		ID: "c", UserID: "u-2", ExpiresAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	n, err := store.RevokeAllForUser(ctx, "u-1")
	if err != nil || n != 2 {
		t.Fatalf("RevokeAllForUser = %d, %v", n, err)
	}
	if live := store.Live("u-1"); live != 0 {
		t.Fatalf("expected no live tokens for u-1, got %d", live)
	}
	if live := store.Live("u-2"); live != 1 {
		t.Fatalf("expected u-2 untouched, got %d live", live)
	}
}
