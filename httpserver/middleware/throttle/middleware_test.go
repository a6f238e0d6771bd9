/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/acronis/shop-service/httpserver"
	"github.com/acronis/shop-service/httpserver/middleware"
	"github.com/acronis/shop-service/internal/rateguard"
	"github.com/acronis/shop-service/log/logtest"
	"github.com/acronis/shop-service/lrucache"
	"github.com/acronis/shop-service/restapi"
	testutilx "github.com/acronis/shop-service/testutil"
)

const testErrDomain = "ShopService"

var testStartTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type nextHandler struct {
	calls     int
	clientKey string
}

func (h *nextHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	h.calls++
	h.clientKey = middleware.GetClientKeyFromContext(r.Context())
	rw.WriteHeader(http.StatusOK)
}

func makeTestGuard(t *testing.T, clock *testClock, policy rateguard.Policy) *rateguard.Guard {
	t.Helper()
	guard, err := rateguard.NewGuard(rateguard.NewMemoryStore(0), policy, rateguard.GuardOpts{Clock: clock.Now})
	require.NoError(t, err)
	return guard
}

func serve(h http.Handler, method, target, remoteAddr string, logger *logtest.Recorder) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = remoteAddr
	if logger != nil {
		req = req.WithContext(middleware.NewContextWithLogger(req.Context(), logger))
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestMiddleware(t *testing.T) {
	t.Run("allow then reject within window", func(t *testing.T) {
		clock := &testClock{now: testStartTime}
		next := &nextHandler{}
		mc := NewPrometheusMetrics()
		logger := logtest.NewRecorder()
		h := Middleware(makeTestGuard(t, clock, rateguard.DefaultPolicy()), testErrDomain, mc, MiddlewareOpts{})(next)

		resp := serve(h, http.MethodGet, "/api/shop/v1/products", "10.0.0.1:5555", logger)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Equal(t, 1, next.calls)
		require.Equal(t, "10.0.0.1", next.clientKey)

		clock.Advance(5 * time.Millisecond)
		resp = serve(h, http.MethodGet, "/api/shop/v1/products", "10.0.0.1:6666", logger)
		testutilx.RequireErrorInRecorder(t, resp, http.StatusTooManyRequests, testErrDomain, restapi.ErrCodeTooManyRequests)
		require.Equal(t, 1, next.calls, "handler must not be invoked on reject")

		entry, found := logger.FindEntry("request throttled")
		require.True(t, found)
		field, found := entry.FindField(ClientKeyLogFieldName)
		require.True(t, found)
		require.Equal(t, "10.0.0.1", string(field.Bytes))

		// Another client is not affected.
		resp = serve(h, http.MethodGet, "/api/shop/v1/products", "10.0.0.2:5555", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Equal(t, 2, next.calls)

		require.Equal(t, 2.0, testutil.ToFloat64(mc.Decisions.WithLabelValues("allow")))
		require.Equal(t, 1.0, testutil.ToFloat64(mc.Decisions.WithLabelValues("reject")))
	})

	t.Run("reject re-arms window", func(t *testing.T) {
		clock := &testClock{now: testStartTime}
		next := &nextHandler{}
		h := Middleware(makeTestGuard(t, clock, rateguard.DefaultPolicy()), testErrDomain, nil, MiddlewareOpts{})(next)

		require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/", "10.0.0.1:1", nil).Code)
		clock.Advance(6 * time.Millisecond)
		require.Equal(t, http.StatusTooManyRequests, serve(h, http.MethodGet, "/", "10.0.0.1:1", nil).Code)
		clock.Advance(6 * time.Millisecond)
		require.Equal(t, http.StatusTooManyRequests, serve(h, http.MethodGet, "/", "10.0.0.1:1", nil).Code)
		clock.Advance(10 * time.Millisecond)
		require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/", "10.0.0.1:1", nil).Code)
	})

	t.Run("non-throttled methods and excluded endpoints", func(t *testing.T) {
		clock := &testClock{now: testStartTime}
		next := &nextHandler{}
		h := Middleware(makeTestGuard(t, clock, rateguard.DefaultPolicy()), testErrDomain, nil, MiddlewareOpts{
			ExcludedEndpoints: []string{"/healthz"},
		})(next)

		for i := 0; i < 3; i++ {
			require.Equal(t, http.StatusOK, serve(h, http.MethodPost, "/api/shop/v1/orders/import", "10.0.0.1:1", nil).Code)
			require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/healthz", "10.0.0.1:1", nil).Code)
		}
		require.Equal(t, 6, next.calls)
		require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/", "10.0.0.1:1", nil).Code)
	})

	t.Run("custom status code", func(t *testing.T) {
		clock := &testClock{now: testStartTime}
		h := Middleware(makeTestGuard(t, clock, rateguard.DefaultPolicy()), testErrDomain, nil, MiddlewareOpts{
			ResponseStatusCode: http.StatusServiceUnavailable,
		})(&nextHandler{})
		serve(h, http.MethodGet, "/", "10.0.0.1:1", nil)
		resp := serve(h, http.MethodGet, "/", "10.0.0.1:1", nil)
		testutilx.RequireErrorInRecorder(t, resp, http.StatusServiceUnavailable, testErrDomain, restapi.ErrCodeTooManyRequests)
	})

	t.Run("store error", func(t *testing.T) {
		guard, err := rateguard.NewGuard(failingStore{}, rateguard.DefaultPolicy(), rateguard.GuardOpts{})
		require.NoError(t, err)
		next := &nextHandler{}
		mc := NewPrometheusMetrics()
		h := Middleware(guard, testErrDomain, mc, MiddlewareOpts{})(next)
		resp := serve(h, http.MethodGet, "/", "10.0.0.1:1", logtest.NewRecorder())
		testutilx.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, testErrDomain, restapi.ErrCodeInternal)
		require.Zero(t, next.calls)
		require.Equal(t, 1.0, testutil.ToFloat64(mc.StoreErrors.WithLabelValues()))
	})
}

type failingStore struct{}

func (failingStore) Admit(context.Context, string, time.Time, rateguard.Policy) (rateguard.Decision, error) {
	return rateguard.Reject, errors.New("connection refused")
}

func TestGetClientKeyFromRemoteAddr(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"10.0.0.1:5555", "10.0.0.1"},
		{"[::1]:8080", "::1"},
		{"10.0.0.1", "10.0.0.1"},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remoteAddr
		require.Equal(t, tt.want, GetClientKeyFromRemoteAddr(req), tt.remoteAddr)
	}
}

func TestNewGuardFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = redisClient.Close() }()

	for _, storeKind := range []string{StoreMemory, StoreLRU, StoreRedis} {
		t.Run(storeKind, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Store = storeKind
			clock := &testClock{now: testStartTime}
			guard, store, err := NewGuardFromConfig(cfg, GuardOpts{
				RedisClient: redisClient,
				LRUMetrics:  lrucache.NewPrometheusMetrics(),
				Clock:       clock.Now,
			})
			require.NoError(t, err)
			require.NotNil(t, store)

			clientKey := "client-" + storeKind
			outcome, err := guard.Admit(context.Background(), rateguard.Request{Method: http.MethodGet, ClientKey: clientKey})
			require.NoError(t, err)
			require.True(t, outcome.Allowed())
			outcome, err = guard.Admit(context.Background(), rateguard.Request{Method: http.MethodGet, ClientKey: clientKey})
			require.NoError(t, err)
			require.False(t, outcome.Allowed())
			require.ErrorIs(t, outcome.Reason, rateguard.ErrThrottled)
		})
	}

	cfg := NewDefaultConfig()
	cfg.Store = StoreRedis
	_, _, err := NewGuardFromConfig(cfg, GuardOpts{})
	require.EqualError(t, err, `redis client is required for "redis" store`)
}

func TestMiddlewareFromConfig_OnAPIRoutes(t *testing.T) {
	newServer := func(cfg *Config) *httpserver.HTTPServer {
		clock := &testClock{now: testStartTime}
		return httpserver.New(httpserver.NewDefaultConfig(), logtest.NewRecorder(), httpserver.Opts{
			ServiceNameInURL: "shop",
			APIRoutes: map[httpserver.APIVersion]httpserver.APIRoute{1: func(router chi.Router) {
				ok := func(rw http.ResponseWriter, r *http.Request) { rw.WriteHeader(http.StatusOK) }
				router.Get("/products", ok)
				router.Get("/products/latest/feed", ok)
			}},
			APIMiddlewares: []func(next http.Handler) http.Handler{
				MiddlewareFromConfig(cfg, makeTestGuard(t, clock, cfg.Policy()), testErrDomain, nil),
			},
			ErrorDomain: testErrDomain,
			HealthCheckContext: func(ctx context.Context) (httpserver.HealthCheckResult, error) {
				return httpserver.HealthCheckResult{"db": httpserver.HealthCheckStatusOK}, nil
			},
		})
	}
	serveServer := func(srv *httpserver.HTTPServer, target string) int {
		resp := httptest.NewRecorder()
		srv.HTTPRouter.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		return resp.Code
	}

	cfg := NewDefaultConfig()
	require.Empty(t, cfg.ExcludedEndpoints)
	srv := newServer(cfg)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, serveServer(srv, "/healthz"))
		require.Equal(t, http.StatusOK, serveServer(srv, "/metrics"))
	}
	require.Equal(t, http.StatusOK, serveServer(srv, "/api/shop/v1/products"))
	require.Equal(t, http.StatusTooManyRequests, serveServer(srv, "/api/shop/v1/products"))
	require.Equal(t, http.StatusOK, serveServer(srv, "/api/shop/v1/products/latest/feed"))
	require.Equal(t, http.StatusTooManyRequests, serveServer(srv, "/api/shop/v1/products/latest/feed"))

	cfg.ExcludedEndpoints = []string{"/api/shop/v1/products/latest/feed"}
	srv = newServer(cfg)
	require.Equal(t, http.StatusOK, serveServer(srv, "/api/shop/v1/products/latest/feed"))
	require.Equal(t, http.StatusOK, serveServer(srv, "/api/shop/v1/products/latest/feed"))
	require.Equal(t, http.StatusOK, serveServer(srv, "/api/shop/v1/products"))
	require.Equal(t, http.StatusTooManyRequests, serveServer(srv, "/api/shop/v1/products"))
}

func TestNewGuardFromConfig_LRUForgetsClients(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store = StoreLRU
	cfg.MaxClients = 1
	cfg.IdleTimeout = time.Minute
	logRecorder := logtest.NewRecorder()
	clock := &testClock{now: testStartTime}
	guard, _, err := NewGuardFromConfig(cfg, GuardOpts{Clock: clock.Now, Logger: logRecorder})
	require.NoError(t, err)

	for _, clientKey := range []string{"10.0.0.1", "10.0.0.2"} {
		outcome, admitErr := guard.Admit(context.Background(), rateguard.Request{Method: http.MethodGet, ClientKey: clientKey})
		require.NoError(t, admitErr)
		require.True(t, outcome.Allowed())
	}
	entry, found := logRecorder.FindEntry("throttle client forgotten")
	require.True(t, found)
	field, found := entry.FindField("client")
	require.True(t, found)
	require.Equal(t, "10.0.0.1", string(field.Bytes))

	// The record of an idle client expires.
	outcome, err := guard.Admit(context.Background(), rateguard.Request{Method: http.MethodGet, ClientKey: "10.0.0.2"})
	require.NoError(t, err)
	require.False(t, outcome.Allowed())
	clock.Advance(2 * time.Minute)
	outcome, err = guard.Admit(context.Background(), rateguard.Request{Method: http.MethodGet, ClientKey: "10.0.0.2"})
	require.NoError(t, err)
	require.True(t, outcome.Allowed())
}

func TestNewSweepWorker(t *testing.T) {
	cfg := NewDefaultConfig()
	require.Nil(t, NewSweepWorker(cfg, rateguard.NewMemoryStore(0), nil, logtest.NewRecorder()))

	cfg.SweepInterval = 10 * time.Millisecond
	cfg.IdleTimeout = time.Minute
	lruStore, err := rateguard.NewLRUStore(10, rateguard.LRUStoreOpts{})
	require.NoError(t, err)
	require.Nil(t, NewSweepWorker(cfg, lruStore, nil, logtest.NewRecorder()))

	clock := &testClock{now: testStartTime}
	store := rateguard.NewMemoryStore(0)
	for _, key := range []string{"a", "b"} {
		_, err = store.Admit(context.Background(), key, clock.Now(), rateguard.DefaultPolicy())
		require.NoError(t, err)
	}
	clock.Advance(2 * time.Minute)
	_, err = store.Admit(context.Background(), "c", clock.Now(), rateguard.DefaultPolicy())
	require.NoError(t, err)

	worker := NewSweepWorker(cfg, store, clock.Now, logtest.NewRecorder())
	require.NotNil(t, worker)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	_, found := store.LastSeen("c")
	require.True(t, found)
}
