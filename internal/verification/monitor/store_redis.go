package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for suspicious activity lists.
	activityKeyPrefix = "susact:"

	// defaultActivityTTL bounds retention: activity only matters for the
	// lifetime of a registration attempt plus investigation headroom.
	defaultActivityTTL = 24 * time.Hour
)

// RedisStore is a Redis-backed implementation of Store. Recommended for
// distributed deployments where multiple gateway instances must share
// per-session activity counts.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithTTL overrides the activity retention window.
func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedisStore constructs a Redis-backed suspicious activity store.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, ttl: defaultActivityTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(sessionKey string) string {
	return activityKeyPrefix + sessionKey
}

func (s *RedisStore) Append(ctx context.Context, sessionKey string, activity Activity) (int, error) {
	payload, err := json.Marshal(activity)
	if err != nil {
		return 0, fmt.Errorf("marshal activity: %w", err)
	}

	key := s.key(sessionKey)
	pipe := s.client.TxPipeline()
	count := pipe.RPush(ctx, key, payload)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("append activity: %w", err)
	}
	return int(count.Val()), nil
}

func (s *RedisStore) Count(ctx context.Context, sessionKey string) (int, error) {
	n, err := s.client.LLen(ctx, s.key(sessionKey)).Result()
	if err != nil {
		return 0, fmt.Errorf("count activity: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionKey string) error {
	if err := s.client.Del(ctx, s.key(sessionKey)).Err(); err != nil {
		return fmt.Errorf("clear activity: %w", err)
	}
	return nil
}
