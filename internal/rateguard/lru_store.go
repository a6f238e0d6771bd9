/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package rateguard

import (
	"context"
	"fmt"
	"time"

	"github.com/acronis/shop-service/lrucache"
)

// LRUStore is a Store bounded by the number of clients.
// When full, the least recently seen client is forgotten and its next request is treated as the first one.
type LRUStore struct {
	cache *lrucache.LRUCache[string, time.Time]
}

var _ Store = (*LRUStore)(nil)

// LRUStoreOpts represents options for LRUStore.
type LRUStoreOpts struct {
	// Metrics is disabled if nil.
	Metrics lrucache.MetricsCollector

	// IdleTimeout makes a record expire when its client is not seen for that long. Zero keeps records until evicted.
	// It must not be less than the policy window, otherwise a rejected client could be forgotten too early.
	IdleTimeout time.Duration

	// Clock is used for record expiration. time.Now if nil.
	Clock Clock

	// OnEvict is called for every client pushed out by capacity, under the store lock.
	OnEvict func(clientKey string, lastSeen time.Time)
}

// NewLRUStore creates a new LRUStore.
func NewLRUStore(maxClients int, opts LRUStoreOpts) (*LRUStore, error) {
	cache, err := lrucache.NewWithOpts[string, time.Time](maxClients, opts.Metrics, lrucache.Options[string, time.Time]{
		DefaultTTL: opts.IdleTimeout,
		Clock:      opts.Clock,
		OnEvict:    opts.OnEvict,
	})
	if err != nil {
		return nil, fmt.Errorf("new LRU cache for throttle records: %w", err)
	}
	return &LRUStore{cache: cache}, nil
}

// Admit implements Store.
func (s *LRUStore) Admit(_ context.Context, clientKey string, now time.Time, policy Policy) (Decision, error) {
	var decision Decision
	s.cache.Upsert(clientKey, func(lastSeen time.Time, found bool) time.Time {
		var update bool
		decision, update = decide(lastSeen, found, now, policy)
		if update {
			return now
		}
		return lastSeen
	})
	return decision, nil
}

// Len returns the number of tracked clients.
func (s *LRUStore) Len() int {
	return s.cache.Len()
}
