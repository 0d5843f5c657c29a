package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tidegate/authcore"
)

const (
	attemptLogPrefix   = "authcore:att:"
	failCounterPrefix  = "authcore:fail:"
	attemptLogMaxLen   = 100
	attemptLogLifetime = 30 * 24 * time.Hour
)

// LoginAttemptStore implements authcore.LoginAttemptStore on Redis. The
// attempt log is a capped list per login identifier; the failure count
// the lockout policy consumes is a separate fixed-window counter so the
// hot-path query is a single GET.
//
// window must match the engine's lockout window; it anchors the counter
// TTL at write time.
type LoginAttemptStore struct {
	redis  redis.UniversalClient
	window time.Duration
}

func NewLoginAttemptStore(client redis.UniversalClient, window time.Duration) *LoginAttemptStore {
	return &LoginAttemptStore{redis: client, window: window}
}

func (s *LoginAttemptStore) logKey(loginID string) string {
	return attemptLogPrefix + loginID
}

func (s *LoginAttemptStore) failKey(loginID string) string {
	return failCounterPrefix + loginID
}

type attemptRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Success   bool      `json:"success"`
	IP        string    `json:"ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// failIncrScript is the fixed-window counter: INCR plus EXPIRE on first
// hit, so the window is anchored at the first failure after the last
// success.
const failIncrScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 and tonumber(ARGV[1]) > 0 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count
`

var failIncrLua = redis.NewScript(failIncrScript)

// Create appends the attempt and maintains the failure counter: a
// success deletes it, a failure increments it.
func (s *LoginAttemptStore) Create(ctx context.Context, attempt *authcore.LoginAttempt) error {
	payload, err := json.Marshal(attemptRecord{
		ID:        attempt.ID,
		UserID:    attempt.UserID,
		Success:   attempt.Success,
		IP:        attempt.IP,
		CreatedAt: attempt.CreatedAt,
	})
	if err != nil {
		return err
	}

	key := s.logKey(attempt.LoginID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, attemptLogMaxLen-1)
		pipe.Expire(ctx, key, attemptLogLifetime)
		if attempt.Success {
			pipe.Del(ctx, s.failKey(attempt.LoginID))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !attempt.Success {
		windowSecs := int64(s.window / time.Second)
		if err := failIncrLua.Run(ctx, s.redis, []string{s.failKey(attempt.LoginID)}, windowSecs).Err(); err != nil {
			return err
		}
	}
	return nil
}

// CountRecentFailures reports the live failure-counter value. The window
// argument is part of the store contract but the counter's TTL was fixed
// at write time; the two must agree via the constructor.
func (s *LoginAttemptStore) CountRecentFailures(ctx context.Context, loginID string, _ time.Duration) (int, error) {
	count, err := s.redis.Get(ctx, s.failKey(loginID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// RecentAttempts returns up to limit attempts for the identifier, newest
// first.
func (s *LoginAttemptStore) RecentAttempts(ctx context.Context, loginID string, limit int) ([]authcore.LoginAttempt, error) {
	if limit <= 0 {
		limit = attemptLogMaxLen
	}
	raws, err := s.redis.LRange(ctx, s.logKey(loginID), 0, int64(limit-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]authcore.LoginAttempt, 0, len(raws))
	for _, raw := range raws {
		var rec attemptRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		out = append(out, authcore.LoginAttempt{
			ID:        rec.ID,
			UserID:    rec.UserID,
			LoginID:   loginID,
			Success:   rec.Success,
			IP:        rec.IP,
			CreatedAt: rec.CreatedAt,
		})
	}
	return out, nil
}
