/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package resultcache

import (
	"context"
	"fmt"
	"time"

	"github.com/acronis/shop-service/lrucache"
)

// LRUStore is a Store bounded by the number of entries. The least recently used entry is dropped first.
type LRUStore[V any] struct {
	cache *lrucache.LRUCache[string, Entry[V]]
}

var _ Store[int] = (*LRUStore[int])(nil)

// LRUStoreOpts represents options for LRUStore.
type LRUStoreOpts struct {
	Metrics lrucache.MetricsCollector
	// Clock is used for dropping expired entries. time.Now if nil.
	Clock func() time.Time
}

// NewLRUStore creates a new LRUStore.
func NewLRUStore[V any](maxEntries int, opts LRUStoreOpts) (*LRUStore[V], error) {
	cache, err := lrucache.NewWithOpts[string, Entry[V]](maxEntries, opts.Metrics,
		lrucache.Options[string, Entry[V]]{Clock: opts.Clock})
	if err != nil {
		return nil, fmt.Errorf("new LRU cache for results: %w", err)
	}
	return &LRUStore[V]{cache: cache}, nil
}

// Get implements Store.
func (s *LRUStore[V]) Get(_ context.Context, key string) (Entry[V], bool, error) {
	entry, ok := s.cache.Get(key)
	return entry, ok, nil
}

// Set implements Store.
func (s *LRUStore[V]) Set(_ context.Context, key string, entry Entry[V], ttl time.Duration) error {
	s.cache.AddWithTTL(key, entry, ttl)
	return nil
}

// Delete implements Store.
func (s *LRUStore[V]) Delete(_ context.Context, key string) error {
	s.cache.Remove(key)
	return nil
}

// Len returns the number of stored entries.
func (s *LRUStore[V]) Len() int {
	return s.cache.Len()
}

// RunPeriodicCleanup drops expired entries every interval until ctx is done.
func (s *LRUStore[V]) RunPeriodicCleanup(ctx context.Context, interval time.Duration) {
	s.cache.RunPeriodicCleanup(ctx, interval)
}
