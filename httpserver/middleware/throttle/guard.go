/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acronis/shop-service/internal/rateguard"
	"github.com/acronis/shop-service/log"
	"github.com/acronis/shop-service/lrucache"
)

// GuardOpts represents options for NewGuardFromConfig.
type GuardOpts struct {
	// RedisClient is required for the "redis" store.
	RedisClient redis.Scripter
	// LRUMetrics collects metrics of the "lru" store.
	LRUMetrics lrucache.MetricsCollector
	Clock      rateguard.Clock
	// Logger gets a debug entry for every client the "lru" store forgets by capacity. Optional.
	Logger log.FieldLogger
}

// NewGuardFromConfig builds the store chosen in the configuration and a guard on top of it.
// The store is returned too so the caller can sweep a memory store.
func NewGuardFromConfig(cfg *Config, opts GuardOpts) (*rateguard.Guard, rateguard.Store, error) {
	var store rateguard.Store
	switch cfg.Store {
	case StoreMemory, "":
		store = rateguard.NewMemoryStore(0)
	case StoreLRU:
		lruOpts := rateguard.LRUStoreOpts{Metrics: opts.LRUMetrics, IdleTimeout: cfg.IdleTimeout, Clock: opts.Clock}
		if opts.Logger != nil {
			logger := opts.Logger
			lruOpts.OnEvict = func(clientKey string, lastSeen time.Time) {
				logger.Debug("throttle client forgotten", log.String("client", clientKey), log.Time("last_seen", lastSeen))
			}
		}
		lruStore, err := rateguard.NewLRUStore(cfg.MaxClients, lruOpts)
		if err != nil {
			return nil, nil, fmt.Errorf("create lru store: %w", err)
		}
		store = lruStore
	case StoreRedis:
		if opts.RedisClient == nil {
			return nil, nil, fmt.Errorf("redis client is required for %q store", StoreRedis)
		}
		store = rateguard.NewRedisStore(opts.RedisClient, rateguard.RedisStoreOpts{
			KeyPrefix: cfg.Redis.KeyPrefix,
			RecordTTL: cfg.Redis.RecordTTL,
		})
	default:
		return nil, nil, fmt.Errorf("unknown throttle store %q", cfg.Store)
	}

	guard, err := rateguard.NewGuard(store, cfg.Policy(), rateguard.GuardOpts{Clock: opts.Clock, Methods: cfg.Methods})
	if err != nil {
		return nil, nil, err
	}
	return guard, store, nil
}
