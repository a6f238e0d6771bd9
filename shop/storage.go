/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package shop

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/acronis/shop-service/log"
	"github.com/acronis/shop-service/lrucache"
	"github.com/acronis/shop-service/resultcache"
	"github.com/acronis/shop-service/service"
)

// Storage is a Repository with a connection that can be checked and closed.
type Storage interface {
	Repository
	Ping(ctx context.Context) error
	Close() error
}

type memoryStorage struct {
	*MemoryRepository
}

func (memoryStorage) Ping(context.Context) error { return nil }
func (memoryStorage) Close() error               { return nil }

// OpenStorage opens the storage chosen in the configuration and migrates its schema if configured.
func OpenStorage(cfg *DBConfig, logger log.FieldLogger) (Storage, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DBDriverMemory, "":
		return memoryStorage{NewMemoryRepository(nil)}, nil
	case DBDriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DBDriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	repo, err := OpenGormRepository(dialector, cfg, NewGormLogger(logger, cfg.SlowQueryThreshold))
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err = repo.AutoMigrate(); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("migrate database schema: %w", err)
		}
	}
	return repo, nil
}

// ExportCacheOpts represents options for NewOrdersExportCache.
type ExportCacheOpts struct {
	// RedisClient is required for the "redis" store.
	RedisClient redis.Cmdable
	LRUMetrics  lrucache.MetricsCollector
	Metrics     resultcache.MetricsCollector
}

// NewOrdersExportCache creates the result cache for per-user order exports.
// For the "lru" store with a positive cleanup interval it also returns a worker that drops expired entries,
// otherwise the worker is nil.
func NewOrdersExportCache(cfg *CacheConfig, opts ExportCacheOpts) (*resultcache.ResultCache[OrdersExport], service.Worker, error) {
	var store resultcache.Store[OrdersExport]
	var cleanupWorker service.Worker
	switch cfg.Store {
	case CacheStoreMemory, "":
		store = resultcache.NewMemoryStore[OrdersExport]()
	case CacheStoreLRU:
		lruStore, err := resultcache.NewLRUStore[OrdersExport](cfg.MaxEntries, resultcache.LRUStoreOpts{Metrics: opts.LRUMetrics})
		if err != nil {
			return nil, nil, err
		}
		store = lruStore
		if cfg.CleanupInterval > 0 {
			cleanupWorker = service.WorkerFunc(func(ctx context.Context) error {
				lruStore.RunPeriodicCleanup(ctx, cfg.CleanupInterval)
				return nil
			})
		}
	case CacheStoreRedis:
		if opts.RedisClient == nil {
			return nil, nil, fmt.Errorf("redis client is required for %q cache store", CacheStoreRedis)
		}
		store = resultcache.NewRedisStore[OrdersExport](opts.RedisClient, cfg.RedisKeyPrefix)
	default:
		return nil, nil, fmt.Errorf("unknown cache store %q", cfg.Store)
	}
	cache := resultcache.New[OrdersExport](store, resultcache.Opts{SingleFlight: cfg.SingleFlight, Metrics: opts.Metrics})
	return cache, cleanupWorker, nil
}
