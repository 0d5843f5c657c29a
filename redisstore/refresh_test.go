package redisstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tidegate/authcore"
)

func newRefreshStoreTest(t *testing.T) (*RefreshTokenStore, *miniredis.Miniredis) {
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
	return NewRefreshTokenStore(rdb), mr
}

func testRecord(id, userID string) *authcore.RefreshTokenRecord {
	return &authcore.RefreshTokenRecord{
		ID:        id,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestRefreshCreateAndFind(t *testing.T) {
	store, _ := newRefreshStoreTest(t)
	ctx := context.Background()

	if err := store.Create(ctx, testRecord("jti-1", "u-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.FindByID(ctx, "jti-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.UserID != "u-1" || got.Revoked || got.UsedAt != nil {
		t.Fatalf("unexpected record state: %+v", got)
	}

	missing, err := store.FindByID(ctx, "jti-unknown")
	if err != nil {
		t.Fatalf("find missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v", missing)
	}
}

func TestRefreshMarkUsedSingleWinner(t *testing.T) {
	store, _ := newRefreshStoreTest(t)
	ctx := context.Background()

	if err := store.Create(ctx, testRecord("jti-race", "u-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	const racers = 16
	wins := make([]bool, racers)
	var wg sync.WaitGroup
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			won, err := store.MarkUsed(ctx, "jti-race", time.Now())
			if err != nil {
				t.Errorf("mark used: %v", err)
				return
			}
			wins[i] = won
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, won := range wins {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}

	got, err := store.FindByID(ctx, "jti-race")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.Revoked || got.UsedAt == nil {
		t.Fatalf("expected used+revoked record, got %+v", got)
	}
}

func TestRefreshMarkUsedMissingOrRevoked(t *testing.T) {
	store, _ := newRefreshStoreTest(t)
	ctx := context.Background()

	won, err := store.MarkUsed(ctx, "jti-missing", time.Now())
	if err != nil {
		t.Fatalf("mark used missing: %v", err)
	}
	if won {
		t.Fatal("expected loss on missing record")
	}

	if err := store.Create(ctx, testRecord("jti-2", "u-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.RevokeAllForUser(ctx, "u-1"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	won, err = store.MarkUsed(ctx, "jti-2", time.Now())
	if err != nil {
		t.Fatalf("mark used revoked: %v", err)
	}
	if won {
		t.Fatal("expected loss on revoked record")
	}
}

func TestRefreshRevokeAllForUser(t *testing.T) {
	store, _ := newRefreshStoreTest(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Create(ctx, testRecord(id, "u-1")); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := store.Create(ctx, testRecord("other", "u-2")); err != nil {
		t.Fatalf("create other: %v", err)
	}

	n, err := store.RevokeAllForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked, got %d", n)
	}

	for _, id := range []string{"a", "b", "c"} {
		got, err := store.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("find %s: %v", id, err)
		}
		if !got.Revoked {
			t.Fatalf("expected %s revoked", id)
		}
	}
	untouched, err := store.FindByID(ctx, "other")
	if err != nil {
		t.Fatalf("find other: %v", err)
	}
	if untouched.Revoked {
		t.Fatal("unrelated user's token was revoked")
	}

	// Second pass revokes nothing new.
	n, err = store.RevokeAllForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("second revoke all: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 on second pass, got %d", n)
	}
}

func TestRefreshRecordExpiresWithTTL(t *testing.T) {
	store, mr := newRefreshStoreTest(t)
	ctx := context.Background()

	rec := testRecord("jti-ttl", "u-1")
	rec.ExpiresAt = time.Now().Add(time.Minute)
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	got, err := store.FindByID(ctx, "jti-ttl")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Fatalf("expected record to expire, got %+v", got)
	}
}
