/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"github.com/acronis/shop-service/config"
	"github.com/acronis/shop-service/httpserver"
	"github.com/acronis/shop-service/httpserver/middleware/throttle"
	"github.com/acronis/shop-service/internal/redisconn"
	"github.com/acronis/shop-service/log"
	"github.com/acronis/shop-service/profserver"
	"github.com/acronis/shop-service/retry"
	"github.com/acronis/shop-service/shop"
)

// envVarsPrefix makes SHOP_SERVER_ADDRESS override server.address and so on.
const envVarsPrefix = "shop"

// AppConfig contains all configuration sections of the service.
type AppConfig struct {
	Server   *httpserver.Config
	Log      *log.Config
	Throttle *throttle.Config
	Cache    *shop.CacheConfig
	DB       *shop.DBConfig
	DBRetry  *retry.Config
	Redis    *redisconn.Config
	Prof     *profserver.Config
}

// NewAppConfig creates AppConfig with all sections bound to their keys.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Server:   httpserver.NewConfig(),
		Log:      log.NewConfig(),
		Throttle: throttle.NewConfig(),
		Cache:    shop.NewCacheConfig(),
		DB:       shop.NewDBConfig(),
		DBRetry:  retry.NewConfig("db.retry"),
		Redis:    redisconn.NewConfig(),
		Prof:     profserver.NewConfig(),
	}
}

func (c *AppConfig) sections() []config.Config {
	return []config.Config{c.Server, c.Log, c.Throttle, c.Cache, c.DB, c.DBRetry, c.Redis, c.Prof}
}

// redisRequired tells if any store is configured to keep its state in redis.
func (c *AppConfig) redisRequired() bool {
	return c.Redis.Enabled || (c.Throttle.Enabled && c.Throttle.Store == throttle.StoreRedis) ||
		c.Cache.Store == shop.CacheStoreRedis
}

// loadAppConfig reads the file if the path is not empty. Defaults and environment variables are always applied.
func loadAppConfig(path string) (*AppConfig, error) {
	cfg := NewAppConfig()
	loader := config.NewDefaultLoader(envVarsPrefix)
	sections := cfg.sections()
	if path == "" {
		return cfg, loader.Load(sections[0], sections[1:]...)
	}
	return cfg, loader.LoadFromFile(path, config.DataTypeYAML, sections[0], sections[1:]...)
}
