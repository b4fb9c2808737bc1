package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fieldledger/pkg/platform/sentinel"
)

const keyPrefix = "fieldledger:sequence:"

// RedisStore keeps per-category counters in Redis. INCR is atomic on the
// server, so no client-side locking is needed. Use a persistent Redis
// deployment; losing the keyspace would restart counters and recycle
// identifiers.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed counter store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Next(ctx context.Context, category string) (int64, error) {
	value, err := s.client.Incr(ctx, keyPrefix+category).Result()
	if err != nil {
		return 0, fmt.Errorf("incr counter %q: %w: %w", category, sentinel.ErrStorageUnavailable, err)
	}
	return value, nil
}
