/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/shop-service/config"
)

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, config.NewLoader(config.NewViperAdapter()).Load(cfg))
		want := NewDefaultConfig()
		require.Equal(t, want.Address, cfg.Address)
		require.Equal(t, want.Timeouts, cfg.Timeouts)
		require.Equal(t, want.Limits, cfg.Limits)
		require.False(t, cfg.TLS.Enabled)
		require.False(t, cfg.Log.RequestStart)
	})

	t.Run("from yaml", func(t *testing.T) {
		cfgData := `
server:
  address: "127.0.0.1:8888"
  timeouts:
    write: 2m
    read: 30s
    readHeader: 5s
    idle: 3m
    shutdown: 10s
  limits:
    maxBodySize: 2Mi
  log:
    requestStart: true
    requestHeaders: [X-User-ID]
    excludedEndpoints: [/healthz]
    addRequestInfo: true
`
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:8888", cfg.Address)
		require.Equal(t, TimeoutsConfig{
			Write:      config.TimeDuration(2 * time.Minute),
			Read:       config.TimeDuration(30 * time.Second),
			ReadHeader: config.TimeDuration(5 * time.Second),
			Idle:       config.TimeDuration(3 * time.Minute),
			Shutdown:   config.TimeDuration(10 * time.Second),
		}, cfg.Timeouts)
		require.Equal(t, config.ByteSize(2*1024*1024), cfg.Limits.MaxBodySize)
		require.Equal(t, LogConfig{
			RequestStart:           true,
			RequestHeaders:         []string{"X-User-ID"},
			ExcludedEndpoints:      []string{"/healthz"},
			AddRequestInfoToLogger: true,
		}, cfg.Log)
	})

	t.Run("custom key prefix", func(t *testing.T) {
		cfg := NewConfig(WithKeyPrefix("api"))
		require.Equal(t, "api", cfg.KeyPrefix())
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString("api:\n  address: \":9090\"\n"), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, ":9090", cfg.Address)
	})

	tests := []struct {
		name    string
		cfgData string
		wantErr string
	}{
		{
			name:    "empty address",
			cfgData: "server:\n  address: \"\"\n",
			wantErr: "server.address: cannot be empty",
		},
		{
			name:    "tls without key",
			cfgData: "server:\n  tls:\n    enabled: true\n    cert: /tmp/cert.pem\n",
			wantErr: "server.tls.key: both cert and key should be set",
		},
		{
			name:    "negative timeout",
			cfgData: "server:\n  timeouts:\n    read: -1s\n",
			wantErr: "server.timeouts.read: must not be negative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
				bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			require.EqualError(t, err, tt.wantErr)
		})
	}
}
