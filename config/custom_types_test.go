/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestByteSize_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    ByteSize
		wantErr bool
	}{
		{name: "integer", json: `1024`, want: 1024},
		{name: "human readable", json: `"2M"`, want: 2 * 1024 * 1024},
		{name: "k8s suffix", json: `"512Ki"`, want: 512 * 1024},
		{name: "negative", json: `-1`, wantErr: true},
		{name: "garbage", json: `"abc"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ByteSize
			err := json.Unmarshal([]byte(tt.json), &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	var fromYAML struct {
		Size ByteSize `yaml:"size"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("size: 1K"), &fromYAML))
	require.Equal(t, ByteSize(1024), fromYAML.Size)
}

func TestTimeDuration_Unmarshal(t *testing.T) {
	var fromJSON struct {
		Window TimeDuration `json:"window"`
		TTL    TimeDuration `json:"ttl"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"window": "10ms", "ttl": 1000}`), &fromJSON))
	require.Equal(t, TimeDuration(10*time.Millisecond), fromJSON.Window)
	require.Equal(t, TimeDuration(1000), fromJSON.TTL)

	var fromYAML struct {
		TTL TimeDuration `yaml:"ttl"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("ttl: 5m"), &fromYAML))
	require.Equal(t, TimeDuration(5*time.Minute), fromYAML.TTL)
	require.Error(t, yaml.Unmarshal([]byte("ttl: soon"), &fromYAML))

	b, err := json.Marshal(TimeDuration(300 * time.Second))
	require.NoError(t, err)
	require.Equal(t, `"5m0s"`, string(b))
}
