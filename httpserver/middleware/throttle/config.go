/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/acronis/shop-service/config"
	"github.com/acronis/shop-service/internal/rateguard"
)

const cfgDefaultKeyPrefix = "throttle"

const (
	cfgKeyEnabled            = "enabled"
	cfgKeyWindow             = "window"
	cfgKeyRearmOnReject      = "rearmOnReject"
	cfgKeyStore              = "store"
	cfgKeyMaxClients         = "maxClients"
	cfgKeySweepInterval      = "sweepInterval"
	cfgKeyIdleTimeout        = "idleTimeout"
	cfgKeyResponseStatusCode = "responseStatusCode"
	cfgKeyMethods            = "methods"
	cfgKeyExcludedEndpoints  = "excludedEndpoints"
	cfgKeyRedisKeyPrefix     = "redis.keyPrefix"
	cfgKeyRedisRecordTTL     = "redis.recordTTL"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreLRU    = "lru"
	StoreRedis  = "redis"
)

// Default values.
const (
	DefaultMaxClients         = 10000
	DefaultResponseStatusCode = http.StatusTooManyRequests
)

var availableStores = []string{StoreMemory, StoreLRU, StoreRedis}

// Config represents a configuration for the per-client throttling of HTTP requests.
type Config struct {
	Enabled       bool
	Window        time.Duration
	RearmOnReject bool

	// Store is one of "memory", "lru" or "redis".
	Store string
	// MaxClients bounds the "lru" store.
	MaxClients int
	// SweepInterval and IdleTimeout control the periodic cleanup of the "memory" store.
	// Zero SweepInterval disables it, so records are never evicted.
	// For the "lru" store a positive IdleTimeout makes records of idle clients expire.
	SweepInterval time.Duration
	IdleTimeout   time.Duration

	ResponseStatusCode int
	Methods            []string
	// ExcludedEndpoints are full URL paths (e.g. "/api/shop/v1/products/latest/feed") that are never throttled.
	// The middleware serves API routes only, system endpoints like /healthz never reach it.
	ExcludedEndpoints []string

	Redis RedisConfig

	keyPrefix string
}

// RedisConfig is a configuration of the "redis" store.
type RedisConfig struct {
	KeyPrefix string
	RecordTTL time.Duration
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a functional option for NewConfig.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix sets the key prefix used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Enabled = true
	cfg.Window = rateguard.DefaultWindow
	cfg.RearmOnReject = true
	cfg.Store = StoreMemory
	cfg.MaxClients = DefaultMaxClients
	cfg.ResponseStatusCode = DefaultResponseStatusCode
	cfg.Methods = []string{http.MethodGet}
	cfg.Redis.KeyPrefix = rateguard.DefaultRedisKeyPrefix
	return cfg
}

// KeyPrefix returns the key prefix of the section.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyEnabled, true)
	dp.SetDefault(cfgKeyWindow, rateguard.DefaultWindow.String())
	dp.SetDefault(cfgKeyRearmOnReject, true)
	dp.SetDefault(cfgKeyStore, StoreMemory)
	dp.SetDefault(cfgKeyMaxClients, DefaultMaxClients)
	dp.SetDefault(cfgKeySweepInterval, "0s")
	dp.SetDefault(cfgKeyIdleTimeout, "0s")
	dp.SetDefault(cfgKeyResponseStatusCode, DefaultResponseStatusCode)
	dp.SetDefault(cfgKeyMethods, []string{http.MethodGet})
	dp.SetDefault(cfgKeyRedisKeyPrefix, rateguard.DefaultRedisKeyPrefix)
	dp.SetDefault(cfgKeyRedisRecordTTL, "0s")
}

// Set sets throttling configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}
	if c.Window, err = dp.GetDuration(cfgKeyWindow); err != nil {
		return err
	}
	if c.Window <= 0 {
		return dp.WrapKeyErr(cfgKeyWindow, fmt.Errorf("must be positive"))
	}
	if c.RearmOnReject, err = dp.GetBool(cfgKeyRearmOnReject); err != nil {
		return err
	}
	if c.Store, err = dp.GetStringFromSet(cfgKeyStore, availableStores, true); err != nil {
		return err
	}
	if c.MaxClients, err = dp.GetInt(cfgKeyMaxClients); err != nil {
		return err
	}
	if c.Store == StoreLRU && c.MaxClients <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxClients, fmt.Errorf("must be positive for %q store", StoreLRU))
	}
	if err = c.setSweep(dp); err != nil {
		return err
	}
	if c.ResponseStatusCode, err = dp.GetInt(cfgKeyResponseStatusCode); err != nil {
		return err
	}
	if c.ResponseStatusCode < 400 || c.ResponseStatusCode > 599 {
		return dp.WrapKeyErr(cfgKeyResponseStatusCode, fmt.Errorf("must be in range [400, 599]"))
	}
	if c.Methods, err = dp.GetStringSlice(cfgKeyMethods); err != nil {
		return err
	}
	for i := range c.Methods {
		c.Methods[i] = strings.ToUpper(strings.TrimSpace(c.Methods[i]))
	}
	if c.ExcludedEndpoints, err = dp.GetStringSlice(cfgKeyExcludedEndpoints); err != nil {
		return err
	}
	if c.Redis.KeyPrefix, err = dp.GetString(cfgKeyRedisKeyPrefix); err != nil {
		return err
	}
	if c.Redis.RecordTTL, err = dp.GetDuration(cfgKeyRedisRecordTTL); err != nil {
		return err
	}
	return nil
}

func (c *Config) setSweep(dp config.DataProvider) error {
	var err error
	if c.SweepInterval, err = dp.GetDuration(cfgKeySweepInterval); err != nil {
		return err
	}
	if c.SweepInterval < 0 {
		return dp.WrapKeyErr(cfgKeySweepInterval, fmt.Errorf("must not be negative"))
	}
	if c.IdleTimeout, err = dp.GetDuration(cfgKeyIdleTimeout); err != nil {
		return err
	}
	if c.IdleTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyIdleTimeout, fmt.Errorf("must not be negative"))
	}
	if c.SweepInterval > 0 && c.IdleTimeout < c.Window {
		return dp.WrapKeyErr(cfgKeyIdleTimeout, fmt.Errorf("must be >= window (%s) when sweeping is enabled", c.Window))
	}
	if c.Store == StoreLRU && c.IdleTimeout > 0 && c.IdleTimeout < c.Window {
		return dp.WrapKeyErr(cfgKeyIdleTimeout, fmt.Errorf("must be >= window (%s) for %q store", c.Window, StoreLRU))
	}
	return nil
}

// Policy returns the guard policy described by the configuration.
func (c *Config) Policy() rateguard.Policy {
	return rateguard.Policy{Window: c.Window, RearmOnReject: c.RearmOnReject}
}
