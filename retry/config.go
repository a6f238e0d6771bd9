/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"fmt"
	"time"

	"github.com/acronis/shop-service/config"
)

const (
	cfgKeyMaxAttempts     = "maxAttempts"
	cfgKeyInitialInterval = "initialInterval"
	cfgKeyMaxInterval     = "maxInterval"
)

// Default values.
const (
	DefaultMaxAttempts     = 10
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
)

// Config is a configuration of the exponential backoff used for startup connections.
type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a Config read from the section with the given key prefix.
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns the key prefix of the section.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxAttempts, DefaultMaxAttempts)
	dp.SetDefault(cfgKeyInitialInterval, DefaultInitialInterval.String())
	dp.SetDefault(cfgKeyMaxInterval, DefaultMaxInterval.String())
}

// Set sets retry configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.MaxAttempts, err = dp.GetInt(cfgKeyMaxAttempts); err != nil {
		return err
	}
	if c.MaxAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyMaxAttempts, fmt.Errorf("must not be negative"))
	}
	if c.InitialInterval, err = dp.GetDuration(cfgKeyInitialInterval); err != nil {
		return err
	}
	if c.InitialInterval <= 0 {
		return dp.WrapKeyErr(cfgKeyInitialInterval, fmt.Errorf("must be positive"))
	}
	if c.MaxInterval, err = dp.GetDuration(cfgKeyMaxInterval); err != nil {
		return err
	}
	if c.MaxInterval < c.InitialInterval {
		return dp.WrapKeyErr(cfgKeyMaxInterval, fmt.Errorf("must not be less than %s", cfgKeyInitialInterval))
	}
	return nil
}

// Policy returns the exponential backoff policy described by the configuration.
func (c *Config) Policy() ExponentialBackoffPolicy {
	return NewExponentialBackoffPolicy(c.InitialInterval, c.MaxAttempts).WithMaxInterval(c.MaxInterval)
}
