// Package memstore provides in-memory implementations of the engine's
// store contracts. They are intended for tests, examples and single-node
// evaluation; production deployments back the same interfaces with a
// database or Redis.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tidegate/authcore"
)

// UserStore is a mutex-guarded user map keyed by ID with a loginID index.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]authcore.User
	byLogin map[string]string // loginID -> userID
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]authcore.User),
		byLogin: make(map[string]string),
	}
}

// Put inserts or replaces a user. Used for seeding.
func (s *UserStore) Put(user *authcore.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[user.ID] = cloneUser(user)
	s.byLogin[user.LoginID] = user.ID
}

func (s *UserStore) FindByLoginID(_ context.Context, loginID string) (*authcore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byLogin[loginID]
	if !ok {
		return nil, nil
	}
	u := s.byID[id]
	return cloneUserValue(u), nil
}

func (s *UserStore) FindByID(_ context.Context, id string) (*authcore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneUserValue(u), nil
}

func (s *UserStore) Update(_ context.Context, user *authcore.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[user.ID] = cloneUser(user)
	s.byLogin[user.LoginID] = user.ID
	return nil
}

func cloneUser(u *authcore.User) authcore.User {
	out := *u
	if u.LockedUntil != nil {
		until := *u.LockedUntil
		out.LockedUntil = &until
	}
	out.TenantIDs = append([]string(nil), u.TenantIDs...)
	out.Roles = append([]authcore.RoleAssignment(nil), u.Roles...)
	return out
}

func cloneUserValue(u authcore.User) *authcore.User {
	return &u
}

// LoginAttemptStore keeps an append-only attempt log per login identifier.
type LoginAttemptStore struct {
	mu       sync.Mutex
	attempts map[string][]authcore.LoginAttempt // loginID -> chronological log
}

func NewLoginAttemptStore() *LoginAttemptStore {
	return &LoginAttemptStore{attempts: make(map[string][]authcore.LoginAttempt)}
}

func (s *LoginAttemptStore) Create(_ context.Context, attempt *authcore.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.LoginID] = append(s.attempts[attempt.LoginID], *attempt)
	return nil
}

// CountRecentFailures counts failed attempts inside the window, stopping
// at the most recent success so a successful login resets the run.
func (s *LoginAttemptStore) CountRecentFailures(_ context.Context, loginID string, window time.Duration) (int, error) {
	cutoff := time.Now().Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.attempts[loginID]
	count := 0
	for i := len(log) - 1; i >= 0; i-- {
		a := log[i]
		if a.Success {
			break
		}
		if a.CreatedAt.Before(cutoff) {
			break
		}
		count++
	}
	return count, nil
}

// All returns the attempt log for one login identifier, oldest first.
func (s *LoginAttemptStore) All(loginID string) []authcore.LoginAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]authcore.LoginAttempt(nil), s.attempts[loginID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// RefreshTokenStore tracks refresh-token records. MarkUsed is atomic
// under the store mutex, which is what makes the single-winner rotation
// guarantee hold in-process.
type RefreshTokenStore struct {
	mu      sync.Mutex
	records map[string]*authcore.RefreshTokenRecord
}

func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{records: make(map[string]*authcore.RefreshTokenRecord)}
}

func (s *RefreshTokenStore) Create(_ context.Context, record *authcore.RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *record
	s.records[record.ID] = &stored
	return nil
}

func (s *RefreshTokenStore) FindByID(_ context.Context, id string) (*authcore.RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	out := *r
	return &out, nil
}

func (s *RefreshTokenStore) MarkUsed(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.Revoked || r.UsedAt != nil {
		return false, nil
	}
	used := at
	r.UsedAt = &used
	r.Revoked = true
	return true, nil
}

func (s *RefreshTokenStore) RevokeAllForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.UserID == userID && !r.Revoked {
			r.Revoked = true
			n++
		}
	}
	return n, nil
}

// Live reports how many unrevoked records a user holds.
func (s *RefreshTokenStore) Live(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.UserID == userID && !r.Revoked {
			n++
		}
	}
	return n
}
