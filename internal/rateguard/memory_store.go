/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package rateguard

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// DefaultMemoryStoreShards is the number of shards used when zero is passed to NewMemoryStore.
const DefaultMemoryStoreShards = 32

type memoryShard struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// MemoryStore is an unbounded in-process Store. Records are never removed unless Sweep is called.
type MemoryStore struct {
	shards []*memoryShard
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore split into shardsNum independently locked shards.
func NewMemoryStore(shardsNum int) *MemoryStore {
	if shardsNum <= 0 {
		shardsNum = DefaultMemoryStoreShards
	}
	shards := make([]*memoryShard, shardsNum)
	for i := range shards {
		shards[i] = &memoryShard{lastSeen: make(map[string]time.Time)}
	}
	return &MemoryStore{shards: shards}
}

func (s *MemoryStore) shard(clientKey string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(clientKey))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Admit implements Store.
func (s *MemoryStore) Admit(_ context.Context, clientKey string, now time.Time, policy Policy) (Decision, error) {
	sh := s.shard(clientKey)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	lastSeen, found := sh.lastSeen[clientKey]
	decision, update := decide(lastSeen, found, now, policy)
	if update {
		sh.lastSeen[clientKey] = now
	}
	return decision, nil
}

// LastSeen returns the stored time for the client.
func (s *MemoryStore) LastSeen(clientKey string) (time.Time, bool) {
	sh := s.shard(clientKey)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	t, ok := sh.lastSeen[clientKey]
	return t, ok
}

// Len returns the number of tracked clients.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.lastSeen)
		sh.mu.Unlock()
	}
	return n
}

// Sweep removes clients last seen before olderThan and returns how many were removed.
func (s *MemoryStore) Sweep(olderThan time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, lastSeen := range sh.lastSeen {
			if lastSeen.Before(olderThan) {
				delete(sh.lastSeen, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}
