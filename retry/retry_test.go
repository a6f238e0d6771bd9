/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/shop-service/config"
	"github.com/acronis/shop-service/log/logtest"
)

func TestDoWithRetry(t *testing.T) {
	errConnRefused := errors.New("connection refused")
	errAuth := errors.New("authentication failed")

	tests := []struct {
		name         string
		policy       Policy
		isRetryable  IsRetryable
		failures     []error
		wantErr      error
		wantAttempts int
	}{
		{
			name:         "succeeds after transient failures",
			policy:       NewConstantBackoffPolicy(time.Millisecond, 5),
			failures:     []error{errConnRefused, errConnRefused},
			wantAttempts: 3,
		},
		{
			name:         "gives up after max attempts",
			policy:       NewExponentialBackoffPolicy(time.Millisecond, 2),
			failures:     []error{errConnRefused, errConnRefused, errConnRefused, errConnRefused},
			wantErr:      errConnRefused,
			wantAttempts: 3,
		},
		{
			name:   "permanent error is not retried",
			policy: NewConstantBackoffPolicy(time.Millisecond, 5),
			isRetryable: func(err error) bool {
				return !errors.Is(err, errAuth)
			},
			failures:     []error{errConnRefused, errAuth, errConnRefused},
			wantErr:      errAuth,
			wantAttempts: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := DoWithRetry(context.Background(), tt.policy, tt.isRetryable, nil, func(ctx context.Context) error {
				attempts++
				if attempts <= len(tt.failures) {
					return tt.failures[attempts-1]
				}
				return nil
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.wantAttempts, attempts)
		})
	}
}

func TestDoWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := DoWithRetry(ctx, NewConstantBackoffPolicy(time.Millisecond, 0), nil, nil, func(ctx context.Context) error {
		attempts++
		if attempts == 3 {
			cancel()
		}
		return errors.New("unavailable")
	})
	require.Error(t, err)
	require.Equal(t, 3, attempts)
}

func TestNewLoggingNotify(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	attempts := 0
	err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 3), nil,
		NewLoggingNotify(logRecorder, "redis ping"), func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("dial tcp: i/o timeout")
			}
			return nil
		})
	require.NoError(t, err)

	entries := logRecorder.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "redis ping failed, will retry", entries[0].Text)
	_, found := entries[0].FindField("retry_in")
	require.True(t, found)
}

func TestConfig(t *testing.T) {
	cfg := NewConfig("db.retry")
	require.NoError(t, config.NewLoader(config.NewViperAdapter()).Load(cfg))
	require.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
	require.Equal(t, DefaultInitialInterval, cfg.InitialInterval)
	require.Equal(t, DefaultMaxInterval, cfg.MaxInterval)

	cfg = NewConfig("db.retry")
	err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`
db:
  retry:
    maxAttempts: 3
    initialInterval: 100ms
    maxInterval: 1s
`), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.MaxAttempts)
	require.Equal(t, time.Second, cfg.Policy().maxInterval)

	err = config.NewLoader(config.NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`
db:
  retry:
    initialInterval: 2s
    maxInterval: 1s
`), config.DataTypeYAML, NewConfig("db.retry"))
	require.EqualError(t, err, "db.retry.maxInterval: must not be less than initialInterval")
}
