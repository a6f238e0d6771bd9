/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/shop-service/httpserver/middleware"
	"github.com/acronis/shop-service/log"
	"github.com/acronis/shop-service/restapi"
)

func TestHealthCheckHandler(t *testing.T) {
	makeRequest := func(ctx context.Context) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		return req.WithContext(middleware.NewContextWithLogger(ctx, log.NewDisabledLogger()))
	}

	tests := []struct {
		name         string
		result       HealthCheckResult
		err          error
		wantCode     int
		wantRespData *healthCheckResponseData
	}{
		{
			name:     "error",
			err:      errors.New("db is gone"),
			wantCode: http.StatusInternalServerError,
		},
		{
			name:         "no components",
			result:       HealthCheckResult{},
			wantCode:     http.StatusOK,
			wantRespData: &healthCheckResponseData{Components: map[string]bool{}},
		},
		{
			name:         "unhealthy component",
			result:       HealthCheckResult{"db": HealthCheckStatusOK, "redis": HealthCheckStatusFail},
			wantCode:     http.StatusServiceUnavailable,
			wantRespData: &healthCheckResponseData{Components: map[string]bool{"db": true, "redis": false}},
		},
		{
			name:         "healthy components",
			result:       HealthCheckResult{"db": HealthCheckStatusOK, "redis": HealthCheckStatusOK},
			wantCode:     http.StatusOK,
			wantRespData: &healthCheckResponseData{Components: map[string]bool{"db": true, "redis": true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthCheckHandler(func(_ context.Context) (HealthCheckResult, error) {
				return tt.result, tt.err
			})
			resp := httptest.NewRecorder()
			h.ServeHTTP(resp, makeRequest(context.Background()))

			require.Equal(t, tt.wantCode, resp.Code)
			if tt.wantRespData == nil {
				return
			}
			require.Equal(t, restapi.ContentTypeAppJSON, resp.Header().Get("Content-Type"))
			var gotRespData healthCheckResponseData
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&gotRespData))
			require.Equal(t, *tt.wantRespData, gotRespData)
		})
	}

	t.Run("default handler responds 499 on client cancel", func(t *testing.T) {
		h := NewHealthCheckHandler(nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, makeRequest(ctx))
		require.Equal(t, StatusClientClosedRequest, resp.Code)
	})
}
