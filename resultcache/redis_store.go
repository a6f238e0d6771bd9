/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix is prepended to cache keys in Redis.
const DefaultRedisKeyPrefix = "shop:cache:"

// RedisStore is a Store shared by all service replicas. Entries are JSON-encoded
// and Redis expires them with the entry ttl.
type RedisStore[V any] struct {
	client    redis.Cmdable
	keyPrefix string
}

var _ Store[int] = (*RedisStore[int])(nil)

// NewRedisStore creates a new RedisStore. DefaultRedisKeyPrefix is used if keyPrefix is empty.
func NewRedisStore[V any](client redis.Cmdable, keyPrefix string) *RedisStore[V] {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisStore[V]{client: client, keyPrefix: keyPrefix}
}

// Get implements Store.
func (s *RedisStore[V]) Get(ctx context.Context, key string) (Entry[V], bool, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry[V]{}, false, nil
		}
		return Entry[V]{}, false, err
	}
	var entry Entry[V]
	if err = json.Unmarshal(data, &entry); err != nil {
		return Entry[V]{}, false, fmt.Errorf("unmarshal entry: %w", err)
	}
	return entry, true, nil
}

// Set implements Store.
func (s *RedisStore[V]) Set(ctx context.Context, key string, entry Entry[V], ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	return s.client.Set(ctx, s.keyPrefix+key, data, ttl).Err()
}

// Delete implements Store.
func (s *RedisStore[V]) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.keyPrefix+key).Err()
}
