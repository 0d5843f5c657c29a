// Package lockout decides when repeated authentication failures lock an
// account and when an existing lock still applies. The policy is pure:
// failure counts come from the caller's login-attempt query, and lock
// state persistence is the caller's responsibility.
package lockout

import "time"

// Policy configures the lockout rules. The failure-counting window equals
// LockDuration, so the counter resets naturally once a lock would have
// elapsed anyway.
type Policy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// Window returns the rolling window over which failures count.
func (p Policy) Window() time.Duration {
	return p.LockDuration
}

// Locked reports whether a lock deadline is still in the future.
func (p Policy) Locked(until *time.Time, now time.Time) bool {
	return until != nil && now.Before(*until)
}

// Expired reports whether a lock deadline is set but already passed.
// Callers clear and persist the field before proceeding with normal
// credential checks.
func (p Policy) Expired(until *time.Time, now time.Time) bool {
	return until != nil && !now.Before(*until)
}

// LockUntil returns the lock deadline this failure triggers, or nil when
// the window total is still below the threshold. windowFailures includes
// the failure being processed.
func (p Policy) LockUntil(windowFailures int, now time.Time) *time.Time {
	if p.MaxAttempts <= 0 || windowFailures < p.MaxAttempts {
		return nil
	}
	until := now.Add(p.LockDuration)
	return &until
}
