/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package shop

import (
	"fmt"
	"time"

	"github.com/acronis/shop-service/config"
	"github.com/acronis/shop-service/resultcache"
)

// Database drivers.
const (
	DBDriverMemory   = "memory"
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Cache stores.
const (
	CacheStoreMemory = "memory"
	CacheStoreLRU    = "lru"
	CacheStoreRedis  = "redis"
)

const (
	cfgKeyDBDriver             = "driver"
	cfgKeyDBDSN                = "dsn"
	cfgKeyDBMaxOpenConns       = "maxOpenConns"
	cfgKeyDBMaxIdleConns       = "maxIdleConns"
	cfgKeyDBConnMaxLifetime    = "connMaxLifetime"
	cfgKeyDBAutoMigrate        = "autoMigrate"
	cfgKeyDBSlowQueryThreshold = "slowQueryThreshold"

	cfgKeyCacheStore           = "store"
	cfgKeyCacheMaxEntries      = "maxEntries"
	cfgKeyCacheOrdersExportTTL = "ordersExportTTL"
	cfgKeyCacheSingleFlight    = "singleFlight"
	cfgKeyCacheRedisKeyPrefix  = "redisKeyPrefix"
	cfgKeyCacheCleanupInterval = "cleanupInterval"
)

// DBConfig is a configuration of the shop storage.
type DBConfig struct {
	// Driver is one of "memory", "postgres" or "sqlite".
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	AutoMigrate        bool
	SlowQueryThreshold time.Duration

	keyPrefix string
}

var _ config.Config = (*DBConfig)(nil)
var _ config.KeyPrefixProvider = (*DBConfig)(nil)

// NewDBConfig creates a DBConfig read from the "db" section.
func NewDBConfig() *DBConfig {
	return &DBConfig{keyPrefix: "db"}
}

// KeyPrefix returns the key prefix of the section.
func (c *DBConfig) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *DBConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyDBDriver, DBDriverMemory)
	dp.SetDefault(cfgKeyDBMaxOpenConns, 100)
	dp.SetDefault(cfgKeyDBMaxIdleConns, 10)
	dp.SetDefault(cfgKeyDBConnMaxLifetime, "1h")
	dp.SetDefault(cfgKeyDBAutoMigrate, true)
	dp.SetDefault(cfgKeyDBSlowQueryThreshold, "200ms")
}

// Set sets database configuration values from config.DataProvider.
func (c *DBConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Driver, err = dp.GetStringFromSet(cfgKeyDBDriver, []string{DBDriverMemory, DBDriverPostgres, DBDriverSQLite}, true); err != nil {
		return err
	}
	if c.DSN, err = dp.GetString(cfgKeyDBDSN); err != nil {
		return err
	}
	if c.Driver != DBDriverMemory && c.DSN == "" {
		return dp.WrapKeyErr(cfgKeyDBDSN, fmt.Errorf("cannot be empty for %q driver", c.Driver))
	}
	if c.MaxOpenConns, err = dp.GetInt(cfgKeyDBMaxOpenConns); err != nil {
		return err
	}
	if c.MaxIdleConns, err = dp.GetInt(cfgKeyDBMaxIdleConns); err != nil {
		return err
	}
	if c.ConnMaxLifetime, err = dp.GetDuration(cfgKeyDBConnMaxLifetime); err != nil {
		return err
	}
	if c.AutoMigrate, err = dp.GetBool(cfgKeyDBAutoMigrate); err != nil {
		return err
	}
	if c.SlowQueryThreshold, err = dp.GetDuration(cfgKeyDBSlowQueryThreshold); err != nil {
		return err
	}
	return nil
}

// CacheConfig is a configuration of the result cache.
type CacheConfig struct {
	// Store is one of "memory", "lru" or "redis".
	Store           string
	MaxEntries      int
	OrdersExportTTL time.Duration
	SingleFlight    bool
	RedisKeyPrefix  string
	// CleanupInterval is how often expired entries are dropped from the "lru" store. Zero disables it.
	CleanupInterval time.Duration

	keyPrefix string
}

var _ config.Config = (*CacheConfig)(nil)
var _ config.KeyPrefixProvider = (*CacheConfig)(nil)

// NewCacheConfig creates a CacheConfig read from the "cache" section.
func NewCacheConfig() *CacheConfig {
	return &CacheConfig{keyPrefix: "cache"}
}

// KeyPrefix returns the key prefix of the section.
func (c *CacheConfig) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *CacheConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyCacheStore, CacheStoreMemory)
	dp.SetDefault(cfgKeyCacheMaxEntries, 10000)
	dp.SetDefault(cfgKeyCacheOrdersExportTTL, DefaultOrdersExportTTL.String())
	dp.SetDefault(cfgKeyCacheSingleFlight, false)
	dp.SetDefault(cfgKeyCacheRedisKeyPrefix, resultcache.DefaultRedisKeyPrefix)
	dp.SetDefault(cfgKeyCacheCleanupInterval, "1m")
}

// Set sets cache configuration values from config.DataProvider.
func (c *CacheConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Store, err = dp.GetStringFromSet(cfgKeyCacheStore, []string{CacheStoreMemory, CacheStoreLRU, CacheStoreRedis}, true); err != nil {
		return err
	}
	if c.MaxEntries, err = dp.GetInt(cfgKeyCacheMaxEntries); err != nil {
		return err
	}
	if c.Store == CacheStoreLRU && c.MaxEntries <= 0 {
		return dp.WrapKeyErr(cfgKeyCacheMaxEntries, fmt.Errorf("must be positive for %q store", CacheStoreLRU))
	}
	if c.OrdersExportTTL, err = dp.GetDuration(cfgKeyCacheOrdersExportTTL); err != nil {
		return err
	}
	if c.OrdersExportTTL <= 0 {
		return dp.WrapKeyErr(cfgKeyCacheOrdersExportTTL, fmt.Errorf("must be positive"))
	}
	if c.SingleFlight, err = dp.GetBool(cfgKeyCacheSingleFlight); err != nil {
		return err
	}
	if c.RedisKeyPrefix, err = dp.GetString(cfgKeyCacheRedisKeyPrefix); err != nil {
		return err
	}
	if c.CleanupInterval, err = dp.GetDuration(cfgKeyCacheCleanupInterval); err != nil {
		return err
	}
	if c.CleanupInterval < 0 {
		return dp.WrapKeyErr(cfgKeyCacheCleanupInterval, fmt.Errorf("must not be negative"))
	}
	return nil
}
