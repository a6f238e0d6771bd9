/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package rateguard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix is prepended to client keys in Redis.
const DefaultRedisKeyPrefix = "shop:throttle:"

// KEYS[1] - record key; ARGV: now (us), window (us), rearm (0|1), ttl (ms, 0 - none).
var admitScript = redis.NewScript(`
local last = redis.call("GET", KEYS[1])
local now = tonumber(ARGV[1])
local allow = (not last) or (now - tonumber(last) >= tonumber(ARGV[2]))
if allow or ARGV[3] == "1" then
	local ttl = tonumber(ARGV[4])
	if ttl > 0 then
		redis.call("SET", KEYS[1], ARGV[1], "PX", ttl)
	else
		redis.call("SET", KEYS[1], ARGV[1])
	end
end
if allow then
	return 1
end
return 0
`)

// RedisStoreOpts represents options for RedisStore.
type RedisStoreOpts struct {
	// KeyPrefix is DefaultRedisKeyPrefix if empty.
	KeyPrefix string
	// RecordTTL lets Redis expire idle records. Zero keeps them forever.
	RecordTTL time.Duration
}

// RedisStore is a Store shared by all service replicas.
// Timestamps are kept with microsecond precision.
type RedisStore struct {
	client    redis.Scripter
	keyPrefix string
	recordTTL time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a new RedisStore.
func NewRedisStore(client redis.Scripter, opts RedisStoreOpts) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: opts.KeyPrefix, recordTTL: opts.RecordTTL}
}

// Admit implements Store.
func (s *RedisStore) Admit(ctx context.Context, clientKey string, now time.Time, policy Policy) (Decision, error) {
	rearm := 0
	if policy.RearmOnReject {
		rearm = 1
	}
	res, err := admitScript.Run(ctx, s.client, []string{s.keyPrefix + clientKey},
		now.UnixMicro(), policy.Window.Microseconds(), rearm, s.recordTTL.Milliseconds()).Int()
	if err != nil {
		return Reject, fmt.Errorf("run admit script: %w", err)
	}
	if res == 1 {
		return Allow, nil
	}
	return Reject, nil
}
