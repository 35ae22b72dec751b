package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDedupStore implements ports.DedupStore with a single `SET key val
// NX EX ttl` round trip per TryAcquire, rather than a two-step
// check-then-set that would race across worker processes.
type RedisDedupStore struct {
	client *redis.Client
}

// NewRedisDedupStore wraps an existing go-redis client.
func NewRedisDedupStore(client *redis.Client) *RedisDedupStore {
	return &RedisDedupStore{client: client}
}

// TryAcquire claims key for ttl, returning true only if it was not
// already held.
func (s *RedisDedupStore) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Release drops key early, e.g. once a job reaches a terminal state well
// before its dedup TTL would naturally expire.
func (s *RedisDedupStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
