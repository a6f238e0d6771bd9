/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureStream redirects os.Stdout or os.Stderr while fn runs and returns what was written.
func captureStream(t *testing.T, output Output, fn func()) []byte {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	target := &os.Stdout
	if output == OutputStderr {
		target = &os.Stderr
	}
	old := *target
	*target = w
	defer func() { *target = old }()

	go func() {
		fn()
		_ = w.Close()
	}()

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestNewLogger_JSON(t *testing.T) {
	tests := []struct {
		name   string
		output Output
		level  Level
		msg    string
		err    error
	}{
		{name: "info to stdout", output: OutputStdout, level: LevelInfo, msg: "request throttled"},
		{name: "warn to stdout", output: OutputStdout, level: LevelWarn, msg: "cache store unavailable"},
		{name: "error with field", output: OutputStdout, level: LevelError, msg: "export failed", err: errors.New("db is down")},
		{name: "info to stderr", output: OutputStderr, level: LevelInfo, msg: "starting"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := captureStream(t, tt.output, func() {
				logger, closeFn := NewLogger(&Config{Output: tt.output, Format: FormatJSON, Level: LevelInfo, ErrorVerboseSuffix: "_verbose"})
				switch tt.level {
				case LevelWarn:
					logger.Warn(tt.msg)
				case LevelError:
					logger.Error(tt.msg, Error(tt.err))
				default:
					logger.Info(tt.msg)
				}
				closeFn()
			})

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &entry))
			require.Equal(t, string(tt.level), entry["level"])
			require.Equal(t, tt.msg, entry["msg"])
			require.Equal(t, os.Getpid(), int(entry["pid"].(float64)))
			if tt.err != nil {
				require.Equal(t, tt.err.Error(), entry["error"])
			}
		})
	}
}

func TestNewLogger_Text(t *testing.T) {
	data := captureStream(t, OutputStderr, func() {
		logger, closeFn := NewLogger(&Config{Output: OutputStderr, NoColor: true, Format: FormatText, Level: LevelInfo})
		logger.AtLevel(LevelError, func(logFunc LogFunc) {
			logFunc("export failed", Error(errors.New("some error")))
		})
		logger.Debugf("suppressed %d", 1)
		closeFn()
	})
	require.Contains(t, string(data), `|ERRO|`)
	require.Contains(t, string(data), ` export failed `)
	require.Contains(t, string(data), `error="some error"`)
	require.Contains(t, string(data), fmt.Sprintf(`pid=%d`, os.Getpid()))
	require.NotContains(t, string(data), "suppressed")
}

func TestResolvePlaceholders(t *testing.T) {
	res := resolvePlaceholders("/var/log/shop-{{pid}}.log")
	require.Equal(t, fmt.Sprintf("/var/log/shop-%d.log", os.Getpid()), res)
}
