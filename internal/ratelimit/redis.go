package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares window counters across processes. INCR is atomic, so
// concurrent observations for the same key never under-count.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a store over the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "ratelimit:"}
}

// Observe increments the counter, starting the window on first observation.
func (s *RedisStore) Observe(ctx context.Context, key string, window time.Duration, max int) (int, time.Time, error) {
	rkey := s.prefix + key
	count, err := s.client.Incr(ctx, rkey).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, rkey, window).Err(); err != nil {
			return 0, time.Time{}, err
		}
	}
	if count > int64(max)+1 {
		// Cap the stored value so a flood does not grow the counter.
		_ = s.client.Set(ctx, rkey, max+1, redis.KeepTTL).Err()
		count = int64(max) + 1
	}
	resetAt, err := s.resetAt(ctx, rkey)
	if err != nil {
		return 0, time.Time{}, err
	}
	return int(count), resetAt, nil
}

// Peek returns the counter state without incrementing.
func (s *RedisStore) Peek(ctx context.Context, key string) (int, time.Time, error) {
	rkey := s.prefix + key
	count, err := s.client.Get(ctx, rkey).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, time.Time{}, nil
		}
		return 0, time.Time{}, err
	}
	resetAt, err := s.resetAt(ctx, rkey)
	if err != nil {
		return 0, time.Time{}, err
	}
	return count, resetAt, nil
}

// Reset deletes the counter.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func (s *RedisStore) resetAt(ctx context.Context, rkey string) (time.Time, error) {
	ttl, err := s.client.PTTL(ctx, rkey).Result()
	if err != nil {
		return time.Time{}, err
	}
	if ttl <= 0 {
		return time.Time{}, nil
	}
	return time.Now().Add(ttl), nil
}

var _ Store = (*RedisStore)(nil)
