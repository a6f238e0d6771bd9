/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package redisconn configures and opens the redis client shared by the throttle store and the result cache.
package redisconn

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acronis/shop-service/config"
	"github.com/acronis/shop-service/log"
	"github.com/acronis/shop-service/retry"
)

const (
	cfgKeyEnabled      = "enabled"
	cfgKeyAddress      = "address"
	cfgKeyPassword     = "password"
	cfgKeyDB           = "db"
	cfgKeyDialTimeout  = "timeouts.dial"
	cfgKeyReadTimeout  = "timeouts.read"
	cfgKeyWriteTimeout = "timeouts.write"
)

// Config is a configuration of the redis connection.
type Config struct {
	// Enabled is required only when the throttle or cache store is "redis".
	Enabled      bool
	Address      string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Retry        *retry.Config

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a Config read from the "redis" section.
func NewConfig() *Config {
	return &Config{keyPrefix: "redis", Retry: retry.NewConfig("retry")}
}

// KeyPrefix returns the key prefix of the section.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyEnabled, false)
	dp.SetDefault(cfgKeyAddress, "localhost:6379")
	dp.SetDefault(cfgKeyDB, 0)
	dp.SetDefault(cfgKeyDialTimeout, "5s")
	dp.SetDefault(cfgKeyReadTimeout, "3s")
	dp.SetDefault(cfgKeyWriteTimeout, "3s")
	c.Retry.SetProviderDefaults(config.DataProviderFor(c.Retry, dp))
}

// Set sets redis configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}
	if c.Address, err = dp.GetString(cfgKeyAddress); err != nil {
		return err
	}
	if c.Enabled && c.Address == "" {
		return dp.WrapKeyErr(cfgKeyAddress, fmt.Errorf("cannot be empty"))
	}
	if c.Password, err = dp.GetString(cfgKeyPassword); err != nil {
		return err
	}
	if c.DB, err = dp.GetInt(cfgKeyDB); err != nil {
		return err
	}
	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{cfgKeyDialTimeout, &c.DialTimeout},
		{cfgKeyReadTimeout, &c.ReadTimeout},
		{cfgKeyWriteTimeout, &c.WriteTimeout},
	} {
		if *d.dst, err = dp.GetDuration(d.key); err != nil {
			return err
		}
	}
	return c.Retry.Set(config.DataProviderFor(c.Retry, dp))
}

// Connect creates a client and pings the server until it answers or the retry policy gives up.
func Connect(ctx context.Context, cfg *Config, logger log.FieldLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	err := retry.DoWithRetry(ctx, cfg.Retry.Policy(), nil, retry.NewLoggingNotify(logger, "redis ping"),
		func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Address, err)
	}
	logger.Info("connected to redis", log.String("address", cfg.Address), log.Int("db", cfg.DB))
	return client, nil
}
