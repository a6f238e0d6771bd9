/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package resultcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
)

type report struct {
	Orders []int `json:"orders"`
}

var errUserNotFound = errors.New("user not found")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type ResultCacheTestSuite struct {
	suite.Suite
	newStore func(clock *testClock) Store[report]
}

func TestResultCache(t *testing.T) {
	suite.Run(t, &ResultCacheTestSuite{newStore: func(*testClock) Store[report] {
		return NewMemoryStore[report]()
	}})
	suite.Run(t, &ResultCacheTestSuite{newStore: func(clock *testClock) Store[report] {
		store, err := NewLRUStore[report](100, LRUStoreOpts{Clock: clock.Now})
		require.NoError(t, err)
		return store
	}})
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = redisClient.Close() }()
	suite.Run(t, &ResultCacheTestSuite{newStore: func(*testClock) Store[report] {
		mr.FlushAll()
		return NewRedisStore[report](redisClient, "")
	}})
}

func (s *ResultCacheTestSuite) newCache(opts Opts) (*ResultCache[report], *testClock) {
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts.Clock = clock.Now
	return New[report](s.newStore(clock), opts), clock
}

func (s *ResultCacheTestSuite) TestHitWithinTTL() {
	cache, clock := s.newCache(Opts{})
	computeCalls := 0
	orders := []int{2, 3, 4}
	compute := func(context.Context) (report, error) {
		computeCalls++
		return report{Orders: append([]int{}, orders...)}, nil
	}
	key := Key("orders_export", 1)

	got, err := cache.GetOrCompute(context.Background(), key, 300*time.Second, compute)
	s.Require().NoError(err)
	s.Require().Equal(report{Orders: []int{2, 3, 4}}, got)

	// The underlying data changes, but the stored result is served until it expires.
	orders = append(orders, 5)
	clock.Advance(299 * time.Second)
	got, err = cache.GetOrCompute(context.Background(), key, 300*time.Second, compute)
	s.Require().NoError(err)
	s.Require().Equal(report{Orders: []int{2, 3, 4}}, got)
	s.Require().Equal(1, computeCalls)

	clock.Advance(time.Second)
	got, err = cache.GetOrCompute(context.Background(), key, 300*time.Second, compute)
	s.Require().NoError(err)
	s.Require().Equal(report{Orders: []int{2, 3, 4, 5}}, got)
	s.Require().Equal(2, computeCalls)
}

func (s *ResultCacheTestSuite) TestComputeErrorIsNotStored() {
	cache, _ := s.newCache(Opts{})
	key := Key("orders_export", 42)

	_, err := cache.GetOrCompute(context.Background(), key, time.Minute, func(context.Context) (report, error) {
		return report{}, errUserNotFound
	})
	s.Require().ErrorIs(err, errUserNotFound)

	computeCalls := 0
	got, err := cache.GetOrCompute(context.Background(), key, time.Minute, func(context.Context) (report, error) {
		computeCalls++
		return report{Orders: []int{1}}, nil
	})
	s.Require().NoError(err)
	s.Require().Equal(1, computeCalls)
	s.Require().Equal(report{Orders: []int{1}}, got)
}

func (s *ResultCacheTestSuite) TestKeysAreIndependent() {
	cache, _ := s.newCache(Opts{})
	for _, userID := range []int{1, 2} {
		got, err := cache.GetOrCompute(context.Background(), Key("orders_export", userID), time.Minute,
			func(context.Context) (report, error) { return report{Orders: []int{userID}}, nil })
		s.Require().NoError(err)
		s.Require().Equal(report{Orders: []int{userID}}, got)
	}
}

func (s *ResultCacheTestSuite) TestInvalidate() {
	cache, _ := s.newCache(Opts{})
	key := Key("orders_export", 1)
	computeCalls := 0
	compute := func(context.Context) (report, error) {
		computeCalls++
		return report{Orders: []int{computeCalls}}, nil
	}

	_, err := cache.GetOrCompute(context.Background(), key, time.Minute, compute)
	s.Require().NoError(err)
	s.Require().NoError(cache.Invalidate(context.Background(), key))
	got, err := cache.GetOrCompute(context.Background(), key, time.Minute, compute)
	s.Require().NoError(err)
	s.Require().Equal(report{Orders: []int{2}}, got)
	s.Require().NoError(cache.Invalidate(context.Background(), Key("orders_export", 100500)))
}

func (s *ResultCacheTestSuite) TestSingleFlight() {
	cache, _ := s.newCache(Opts{SingleFlight: true})
	key := Key("orders_export", 1)

	var computeCalls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (report, error) {
		computeCalls.Inc()
		<-release
		return report{Orders: []int{2, 3}}, nil
	}

	const callers = 10
	var wg sync.WaitGroup
	results := make(chan report, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cache.GetOrCompute(context.Background(), key, time.Minute, compute)
			if err == nil {
				results <- got
			}
		}()
	}
	s.Require().Eventually(func() bool { return computeCalls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	n := 0
	for got := range results {
		s.Require().Equal(report{Orders: []int{2, 3}}, got)
		n++
	}
	s.Require().Equal(callers, n)
	s.Require().Equal(int32(1), computeCalls.Load())
	// The following calls are hits.
	computeCalls.Store(0)
	_, err := cache.GetOrCompute(context.Background(), key, time.Minute, compute)
	s.Require().NoError(err)
	s.Require().Zero(computeCalls.Load())
}

func (s *ResultCacheTestSuite) TestSingleFlightCanceledCallerDoesNotFailOthers() {
	cache, _ := s.newCache(Opts{SingleFlight: true})
	key := Key("orders_export", 7)

	computeStarted := make(chan struct{})
	release := make(chan struct{})
	var computeCalls atomic.Int32
	compute := func(ctx context.Context) (report, error) {
		if computeCalls.Inc() == 1 {
			close(computeStarted)
		}
		select {
		case <-release:
			return report{Orders: []int{7}}, nil
		case <-ctx.Done():
			return report{}, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.GetOrCompute(firstCtx, key, time.Minute, compute)
		firstErr <- err
	}()
	<-computeStarted

	type result struct {
		value report
		err   error
	}
	second := make(chan result, 1)
	go func() {
		got, err := cache.GetOrCompute(context.Background(), key, time.Minute, compute)
		second <- result{got, err}
	}()
	time.Sleep(20 * time.Millisecond) // let the second caller join the in-flight computation

	cancelFirst()
	s.Require().ErrorIs(<-firstErr, context.Canceled)

	close(release)
	res := <-second
	s.Require().NoError(res.err)
	s.Require().Equal(report{Orders: []int{7}}, res.value)
	s.Require().Equal(int32(1), computeCalls.Load())

	got, err := cache.GetOrCompute(context.Background(), key, time.Minute, compute)
	s.Require().NoError(err)
	s.Require().Equal(report{Orders: []int{7}}, got)
	s.Require().Equal(int32(1), computeCalls.Load())
}

func TestKey(t *testing.T) {
	require.Equal(t, "orders_export:1", Key("orders_export", 1))
	require.Equal(t, "orders_export:42", Key("orders_export", uint(42)))
	require.Equal(t, "feed:latest", Key("feed", "latest"))
}

func TestResultCacheMetrics(t *testing.T) {
	metrics := NewPrometheusMetrics()
	cache := New[int](NewMemoryStore[int](), Opts{Metrics: metrics})

	compute := func(context.Context) (int, error) { return 1, nil }
	for i := 0; i < 3; i++ {
		_, err := cache.GetOrCompute(context.Background(), "a", time.Minute, compute)
		require.NoError(t, err)
	}
	_, err := cache.GetOrCompute(context.Background(), "b", time.Minute, func(context.Context) (int, error) {
		return 0, errUserNotFound
	})
	require.ErrorIs(t, err, errUserNotFound)

	require.Equal(t, 2.0, testutil.ToFloat64(metrics.Hits))
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.Misses))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ComputeErrors))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = redisClient.Close() }()

	store := NewRedisStore[report](redisClient, "")
	expiresAt := time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC)
	err := store.Set(context.Background(), "orders_export:1", Entry[report]{Value: report{Orders: []int{2}}, ExpiresAt: expiresAt}, 5*time.Minute)
	require.NoError(t, err)

	require.True(t, mr.Exists(DefaultRedisKeyPrefix+"orders_export:1"))
	require.Equal(t, 5*time.Minute, mr.TTL(DefaultRedisKeyPrefix+"orders_export:1"))

	entry, found, err := store.Get(context.Background(), "orders_export:1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, report{Orders: []int{2}}, entry.Value)
	require.True(t, expiresAt.Equal(entry.ExpiresAt))

	mr.FastForward(5 * time.Minute)
	_, found, err = store.Get(context.Background(), "orders_export:1")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, mr.Set(DefaultRedisKeyPrefix+"broken", "{"))
	_, _, err = store.Get(context.Background(), "broken")
	require.ErrorContains(t, err, "unmarshal entry")

	mr.Close()
	_, err = New[report](store, Opts{}).GetOrCompute(context.Background(), "orders_export:1", time.Minute,
		func(context.Context) (report, error) { return report{}, nil })
	require.ErrorContains(t, err, `get cached result "orders_export:1"`)
}

func TestLRUStoreBounded(t *testing.T) {
	store, err := NewLRUStore[int](2, LRUStoreOpts{})
	require.NoError(t, err)
	cache := New[int](store, Opts{})
	for i := 0; i < 3; i++ {
		_, err = cache.GetOrCompute(context.Background(), Key("k", i), time.Minute,
			func(context.Context) (int, error) { return i, nil })
		require.NoError(t, err)
	}
	require.Equal(t, 2, store.Len())
	_, found, err := store.Get(context.Background(), Key("k", 0))
	require.NoError(t, err)
	require.False(t, found)
}
