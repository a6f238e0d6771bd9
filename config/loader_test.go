/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testServerConfig struct {
	Address string
	Timeout time.Duration
}

func (c *testServerConfig) KeyPrefix() string { return "server" }

func (c *testServerConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("address", ":8080")
	dp.SetDefault("timeout", "5s")
}

func (c *testServerConfig) Set(dp DataProvider) (err error) {
	if c.Address, err = dp.GetString("address"); err != nil {
		return err
	}
	if c.Address == "" {
		return dp.WrapKeyErr("address", errors.New("must not be empty"))
	}
	if c.Timeout, err = dp.GetDuration("timeout"); err != nil {
		return err
	}
	return nil
}

type testStoreConfig struct {
	Kind    string
	Methods []string
	MaxBody ByteSize
}

func (c *testStoreConfig) KeyPrefix() string { return "store" }

func (c *testStoreConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("kind", "memory")
	dp.SetDefault("methods", []string{"GET"})
	dp.SetDefault("maxBody", "1M")
}

func (c *testStoreConfig) Set(dp DataProvider) (err error) {
	if c.Kind, err = dp.GetStringFromSet("kind", []string{"memory", "redis"}, true); err != nil {
		return err
	}
	if c.Methods, err = dp.GetStringSlice("methods"); err != nil {
		return err
	}
	if c.MaxBody, err = dp.GetByteSize("maxBody"); err != nil {
		return err
	}
	return nil
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		serverCfg, storeCfg := &testServerConfig{}, &testStoreConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, serverCfg, storeCfg)
		require.NoError(t, err)
		require.Equal(t, ":8080", serverCfg.Address)
		require.Equal(t, 5*time.Second, serverCfg.Timeout)
		require.Equal(t, "memory", storeCfg.Kind)
		require.Equal(t, []string{"GET"}, storeCfg.Methods)
		require.Equal(t, ByteSize(1024*1024), storeCfg.MaxBody)
	})

	t.Run("yaml values", func(t *testing.T) {
		cfgData := `
server:
  address: ":9090"
  timeout: 10ms
store:
  kind: REDIS
  methods: [GET, HEAD]
  maxBody: 64Ki
`
		serverCfg, storeCfg := &testServerConfig{}, &testStoreConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(cfgData), DataTypeYAML, serverCfg, storeCfg)
		require.NoError(t, err)
		require.Equal(t, ":9090", serverCfg.Address)
		require.Equal(t, 10*time.Millisecond, serverCfg.Timeout)
		require.Equal(t, "redis", storeCfg.Kind)
		require.Equal(t, []string{"GET", "HEAD"}, storeCfg.Methods)
		require.Equal(t, ByteSize(64*1024), storeCfg.MaxBody)
	})

	t.Run("unknown value in set", func(t *testing.T) {
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"store": {"kind": "etcd"}}`), DataTypeJSON, &testStoreConfig{})
		require.EqualError(t, err, `store.kind: unknown value "etcd", should be one of [memory redis]`)
	})

	t.Run("validation error is wrapped with key", func(t *testing.T) {
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"server": {"address": ""}}`), DataTypeJSON, &testServerConfig{})
		require.EqualError(t, err, "server.address: must not be empty")
	})
}

func TestLoader_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \":7070\"\n"), 0o600))

	serverCfg := &testServerConfig{}
	require.NoError(t, NewLoader(NewViperAdapter()).LoadFromFile(path, DataTypeYAML, serverCfg))
	require.Equal(t, ":7070", serverCfg.Address)
}

func TestNewDefaultLoader_EnvVars(t *testing.T) {
	t.Setenv("SHOPTEST_SERVER_ADDRESS", ":6060")
	t.Setenv("SHOPTEST_STORE_METHODS", "GET, HEAD")

	serverCfg, storeCfg := &testServerConfig{}, &testStoreConfig{}
	require.NoError(t, NewDefaultLoader("shoptest").Load(serverCfg, storeCfg))
	require.Equal(t, ":6060", serverCfg.Address)
	require.Equal(t, []string{"GET", "HEAD"}, storeCfg.Methods)
}
