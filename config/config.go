/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads service configuration from files and environment variables.
// Every configuration section implements Config and may be scoped under a key prefix.
package config

// Config is a configuration section that may be loaded by Loader.
type Config interface {
	// SetProviderDefaults registers default values before the data is read.
	SetProviderDefaults(dp DataProvider)
	// Set reads and validates values from the provider.
	Set(dp DataProvider) error
}

// KeyPrefixProvider is implemented by sections whose keys live under a common prefix (e.g. "server").
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// DataProviderFor returns dp scoped to the key prefix of cfg, if it has one.
func DataProviderFor(cfg Config, dp DataProvider) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(dp, kp.KeyPrefix())
	}
	return dp
}
