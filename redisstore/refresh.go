package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tidegate/authcore"
)

const (
	refreshKeyPrefix = "authcore:rt:"
	userSetKeyPrefix = "authcore:rtu:"
)

// markUsedScript marks a token used and revoked only when it is still
// unused and unrevoked. Returns 1 when this caller won, 0 otherwise.
const markUsedScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "revoked") == "1" then
  return 0
end
if redis.call("HGET", KEYS[1], "used_at") then
  return 0
end
redis.call("HSET", KEYS[1], "used_at", ARGV[1], "revoked", "1")
return 1
`

var markUsedLua = redis.NewScript(markUsedScript)

// revokeScript revokes one live token. Returns 1 only when the record
// existed and was not already revoked, so the caller's count is exact.
const revokeScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "revoked") == "1" then
  return 0
end
redis.call("HSET", KEYS[1], "revoked", "1")
return 1
`

var revokeLua = redis.NewScript(revokeScript)

// RefreshTokenStore implements authcore.RefreshTokenStore on Redis.
type RefreshTokenStore struct {
	redis redis.UniversalClient
}

func NewRefreshTokenStore(client redis.UniversalClient) *RefreshTokenStore {
	return &RefreshTokenStore{redis: client}
}

func (s *RefreshTokenStore) key(id string) string {
	return refreshKeyPrefix + id
}

func (s *RefreshTokenStore) userKey(userID string) string {
	return userSetKeyPrefix + userID
}

func (s *RefreshTokenStore) Create(ctx context.Context, record *authcore.RefreshTokenRecord) error {
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("refresh record %s already expired", record.ID)
	}

	key := s.key(record.ID)
	userKey := s.userKey(record.UserID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"user_id", record.UserID,
			"expires_at", strconv.FormatInt(record.ExpiresAt.Unix(), 10),
			"revoked", boolField(record.Revoked),
		)
		pipe.Expire(ctx, key, ttl)
		pipe.SAdd(ctx, userKey, record.ID)
		// The user set outlives its longest-lived member slightly; stale
		// IDs are skipped on revocation because their hashes are gone.
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	return err
}

func (s *RefreshTokenStore) FindByID(ctx context.Context, id string) (*authcore.RefreshTokenRecord, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	expiresUnix, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh record %s: %w", id, err)
	}

	record := &authcore.RefreshTokenRecord{
		ID:        id,
		UserID:    fields["user_id"],
		ExpiresAt: time.Unix(expiresUnix, 0),
		Revoked:   fields["revoked"] == "1",
	}
	if raw, ok := fields["used_at"]; ok && raw != "" {
		usedUnix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt refresh record %s: %w", id, err)
		}
		used := time.Unix(usedUnix, 0)
		record.UsedAt = &used
	}
	return record, nil
}

func (s *RefreshTokenStore) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := markUsedLua.Run(ctx, s.redis, []string{s.key(id)},
		strconv.FormatInt(at.Unix(), 10)).Int64()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// RevokeAllForUser reads the user's token set, then revokes each live
// member. A token created between the read and the write survives, which
// matches the at-least-once semantics the engine needs.
func (s *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	revoked := 0
	for _, id := range ids {
		result, err := revokeLua.Run(ctx, s.redis, []string{s.key(id)}).Int64()
		if err != nil {
			return revoked, err
		}
		if result == 1 {
			revoked++
		} else {
			// Expired record; drop the stale set member.
			_ = s.redis.SRem(ctx, s.userKey(userID), id).Err()
		}
	}
	return revoked, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
