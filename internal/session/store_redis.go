package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix    = "posadmin:session:"
	fieldAccessToken  = "authToken"
	fieldRefreshToken = "refreshToken"
	fieldUser         = "user"
)

// RedisStore keeps the session record in a Redis hash, keyed by profile.
// Used when several terminals in a store share one operator session.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, profile string) (*RedisStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return nil, fmt.Errorf("session profile is required")
	}
	return &RedisStore{rdb: rdb, key: redisKeyPrefix + profile}, nil
}

func (s *RedisStore) Load(ctx context.Context) (Record, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Record{}, fmt.Errorf("load session hash: %w", err)
	}
	rec := Record{
		AccessToken:  vals[fieldAccessToken],
		RefreshToken: vals[fieldRefreshToken],
	}
	if u := vals[fieldUser]; u != "" {
		rec.User = []byte(u)
	}
	return rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	fields := map[string]any{
		fieldAccessToken:  rec.AccessToken,
		fieldRefreshToken: rec.RefreshToken,
		fieldUser:         string(rec.User),
	}
	if err := s.rdb.HSet(ctx, s.key, fields).Err(); err != nil {
		return fmt.Errorf("save session hash: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear session hash: %w", err)
	}
	return nil
}
