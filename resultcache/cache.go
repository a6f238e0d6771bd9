/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package resultcache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry is a stored result with its expiration time.
type Entry[V any] struct {
	Value     V         `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store keeps entries by key. Get returns found=false for absent keys.
// Implementations may drop expired entries, but the cache checks ExpiresAt on its own.
type Store[V any] interface {
	Get(ctx context.Context, key string) (entry Entry[V], found bool, err error)
	Set(ctx context.Context, key string, entry Entry[V], ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ComputeFunc produces the value for a missed key.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Opts represents options for ResultCache.
type Opts struct {
	// Clock is time.Now if nil.
	Clock func() time.Time

	// SingleFlight makes concurrent misses of the same key share one computation.
	// Without it, every concurrent miss computes and the last write wins.
	// The shared computation gets a context that keeps the values of the first caller's ctx but is never canceled.
	SingleFlight bool

	Metrics MetricsCollector
}

// ResultCache is a keyed cache of computation results.
type ResultCache[V any] struct {
	store   Store[V]
	now     func() time.Time
	metrics MetricsCollector
	sf      *singleflight.Group
}

// New creates a new ResultCache on top of the store.
func New[V any](store Store[V], opts Opts) *ResultCache[V] {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = disabledMetrics{}
	}
	c := &ResultCache[V]{store: store, now: opts.Clock, metrics: opts.Metrics}
	if opts.SingleFlight {
		c.sf = &singleflight.Group{}
	}
	return c
}

// Key builds a cache key from the operation name and its subject ("orders_export" and 42 give "orders_export:42").
func Key(operation string, subject any) string {
	return fmt.Sprintf("%s:%v", operation, subject)
}

// GetOrCompute returns the cached value for key or computes and stores it with the given ttl.
// Errors of compute are returned as is and nothing is stored for them.
func (c *ResultCache[V]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc[V]) (V, error) {
	var zero V

	entry, found, err := c.store.Get(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("get cached result %q: %w", key, err)
	}
	if found && c.now().Before(entry.ExpiresAt) {
		c.metrics.IncHits()
		return entry.Value, nil
	}
	c.metrics.IncMisses()

	if c.sf == nil {
		return c.computeAndStore(ctx, key, ttl, compute)
	}
	// A caller stops waiting when its own ctx is done, the shared computation goes on for the rest.
	sharedCtx := context.WithoutCancel(ctx)
	resCh := c.sf.DoChan(key, func() (interface{}, error) {
		return c.computeAndStore(sharedCtx, key, ttl, compute)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-resCh:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

func (c *ResultCache[V]) computeAndStore(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc[V]) (V, error) {
	var zero V
	value, err := compute(ctx)
	if err != nil {
		c.metrics.IncComputeErrors()
		return zero, err
	}
	if err = c.store.Set(ctx, key, Entry[V]{Value: value, ExpiresAt: c.now().Add(ttl)}, ttl); err != nil {
		return zero, fmt.Errorf("store result %q: %w", key, err)
	}
	return value, nil
}

// Invalidate removes the entry so the next GetOrCompute computes it again.
func (c *ResultCache[V]) Invalidate(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate cached result %q: %w", key, err)
	}
	return nil
}
