/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package rateguard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, key := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		_, err := store.Admit(ctx, key, base.Add(time.Duration(i)*time.Minute), DefaultPolicy())
		require.NoError(t, err)
	}
	require.Equal(t, 3, store.Len())

	require.Equal(t, 2, store.Sweep(base.Add(2*time.Minute)))
	require.Equal(t, 1, store.Len())
	_, found := store.LastSeen("10.0.0.1")
	require.False(t, found)
	lastSeen, found := store.LastSeen("10.0.0.3")
	require.True(t, found)
	require.Equal(t, base.Add(2*time.Minute), lastSeen)
}

func TestMemoryStore_NeverEvictsWithoutSweep(t *testing.T) {
	store := NewMemoryStore(2)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 1000; i++ {
		_, err := store.Admit(context.Background(), time.Duration(i).String(), now, DefaultPolicy())
		require.NoError(t, err)
	}
	require.Equal(t, 1000, store.Len())
}

func TestLRUStore_ForgetsOldestClient(t *testing.T) {
	store, err := NewLRUStore(2, LRUStoreOpts{})
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, key := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		decision, admitErr := store.Admit(ctx, key, now, DefaultPolicy())
		require.NoError(t, admitErr)
		require.Equal(t, Allow, decision)
	}
	require.Equal(t, 2, store.Len())

	// 10.0.0.1 was pushed out, so it is seen as a new client.
	decision, err := store.Admit(ctx, "10.0.0.1", now, DefaultPolicy())
	require.NoError(t, err)
	require.Equal(t, Allow, decision)

	decision, err = store.Admit(ctx, "10.0.0.3", now, DefaultPolicy())
	require.NoError(t, err)
	require.Equal(t, Reject, decision)

	_, err = NewLRUStore(0, LRUStoreOpts{})
	require.Error(t, err)
}

func TestLRUStore_IdleTimeoutAndOnEvict(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cacheNow := now
	var evicted []string
	store, err := NewLRUStore(2, LRUStoreOpts{
		IdleTimeout: 2 * time.Second,
		Clock:       func() time.Time { return cacheNow },
		OnEvict: func(clientKey string, lastSeen time.Time) {
			require.Equal(t, now, lastSeen)
			evicted = append(evicted, clientKey)
		},
	})
	require.NoError(t, err)

	for _, key := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		_, err = store.Admit(ctx, key, now, DefaultPolicy())
		require.NoError(t, err)
	}
	require.Equal(t, []string{"10.0.0.1"}, evicted)

	decision, err := store.Admit(ctx, "10.0.0.3", now, DefaultPolicy())
	require.NoError(t, err)
	require.Equal(t, Reject, decision)

	// An idle client record expires and the client is seen as a new one.
	cacheNow = now.Add(3 * time.Second)
	decision, err = store.Admit(ctx, "10.0.0.3", now, DefaultPolicy())
	require.NoError(t, err)
	require.Equal(t, Allow, decision)
}

func TestRedisStore_KeysAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	store := NewRedisStore(client, RedisStoreOpts{KeyPrefix: "test:throttle:", RecordTTL: time.Minute})
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	decision, err := store.Admit(context.Background(), "10.0.0.1", now, DefaultPolicy())
	require.NoError(t, err)
	require.Equal(t, Allow, decision)

	require.True(t, mr.Exists("test:throttle:10.0.0.1"))
	val, err := mr.Get("test:throttle:10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, "1740830400000000", val)
	require.Equal(t, time.Minute, mr.TTL("test:throttle:10.0.0.1"))

	mr.FastForward(time.Minute)
	require.False(t, mr.Exists("test:throttle:10.0.0.1"))
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = client.Close() }()
	mr.Close()

	_, err := NewRedisStore(client, RedisStoreOpts{}).Admit(context.Background(), "10.0.0.1", time.Now(), DefaultPolicy())
	require.Error(t, err)
}
