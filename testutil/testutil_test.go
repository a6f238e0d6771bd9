/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type mockT struct {
	failed bool
}

func (t *mockT) FailNow() { t.failed = true }

func (t *mockT) Errorf(string, ...interface{}) {}

func TestRequireNoErrorInChannel(t *testing.T) {
	mt := &mockT{}
	ch := make(chan error, 1)

	RequireNoErrorInChannel(mt, ch)
	require.False(t, mt.failed)

	ch <- errors.New("listen failed")
	RequireNoErrorInChannel(mt, ch)
	require.True(t, mt.failed)
}

func TestRequireErrorInRecorder(t *testing.T) {
	resp := httptest.NewRecorder()
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(http.StatusTooManyRequests)
	_, _ = resp.WriteString(`{"error":{"domain":"ShopService","code":"tooManyRequests"}}`)
	RequireErrorInRecorder(t, resp, http.StatusTooManyRequests, "ShopService", "tooManyRequests")
}

func TestRequireSamplesCountInCounter(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total"})
	counter.Add(3)
	RequireSamplesCountInCounter(t, counter, 3)
}
