package lockout

import (
	"testing"
	"time"
)

func TestLockedAndExpired(t *testing.T) {
	p := Policy{MaxAttempts: 5, LockDuration: 15 * time.Minute}
	now := time.Unix(10_000, 0)

	if p.Locked(nil, now) || p.Expired(nil, now) {
		t.Fatal("nil deadline must be neither locked nor expired")
	}

	future := now.Add(time.Minute)
	if !p.Locked(&future, now) || p.Expired(&future, now) {
		t.Fatal("future deadline must be locked, not expired")
	}

	past := now.Add(-time.Second)
	if p.Locked(&past, now) || !p.Expired(&past, now) {
		t.Fatal("past deadline must be expired, not locked")
	}

	// A deadline exactly at now is no longer a lock.
	if p.Locked(&now, now) || !p.Expired(&now, now) {
		t.Fatal("deadline equal to now must count as expired")
	}
}

func TestLockUntilThreshold(t *testing.T) {
	p := Policy{MaxAttempts: 5, LockDuration: 15 * time.Minute}
	now := time.Unix(10_000, 0)

	for failures := 1; failures < 5; failures++ {
		if until := p.LockUntil(failures, now); until != nil {
			t.Fatalf("failure %d must not lock, got deadline %v", failures, until)
		}
	}

	until := p.LockUntil(5, now)
	if until == nil {
		t.Fatal("threshold failure must lock")
	}
	if want := now.Add(15 * time.Minute); !until.Equal(want) {
		t.Fatalf("deadline = %v, want %v", until, want)
	}

	if p.LockUntil(100, now) == nil {
		t.Fatal("counts above threshold must still lock")
	}
}

func TestDisabledPolicyNeverLocks(t *testing.T) {
	p := Policy{MaxAttempts: 0, LockDuration: time.Minute}
	if p.LockUntil(50, time.Now()) != nil {
		t.Fatal("MaxAttempts <= 0 must disable locking")
	}
}
