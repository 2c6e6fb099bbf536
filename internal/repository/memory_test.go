package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		value := []byte("payload")
		require.NoError(t, store.Set(ctx, "k", value, time.Minute))
		value[0] = 'X'

		got, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "payload", string(got), "stored value is a copy")
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "short", []byte("x"), time.Second))
		require.NoError(t, store.Set(ctx, "forever", []byte("y"), 0))
		now = now.Add(2 * time.Second)

		_, ok, _ := store.Get(ctx, "short")
		assert.False(t, ok)
		_, ok, _ = store.Get(ctx, "forever")
		assert.True(t, ok)
	})

	t.Run("DeleteAndPrefix", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "cache:spaces:1", []byte("a"), 0))
		require.NoError(t, store.Set(ctx, "cache:spaces:2", []byte("b"), 0))
		require.NoError(t, store.Set(ctx, "cache:other", []byte("c"), 0))

		require.NoError(t, store.DeletePrefix(ctx, "cache:spaces:"))
		_, ok, _ := store.Get(ctx, "cache:spaces:1")
		assert.False(t, ok)
		_, ok, _ = store.Get(ctx, "cache:other")
		assert.True(t, ok)

		require.NoError(t, store.Delete(ctx, "cache:other"))
		_, ok, _ = store.Get(ctx, "cache:other")
		assert.False(t, ok)
	})

	t.Run("RateLimit", func(t *testing.T) {
		allowed, _ := store.CheckRateLimit(ctx, "chat:1", 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = store.CheckRateLimit(ctx, "chat:1", 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = store.CheckRateLimit(ctx, "chat:1", 2, time.Second)
		assert.False(t, allowed)

		allowed, _ = store.CheckRateLimit(ctx, "chat:2", 2, time.Second)
		assert.True(t, allowed, "keys are counted separately")

		now = now.Add(time.Second + time.Millisecond)
		allowed, _ = store.CheckRateLimit(ctx, "chat:1", 2, time.Second)
		assert.True(t, allowed)
	})
}

func TestMemoryStoreSweepsExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	// the first write sweeps an empty store and starts the interval
	require.NoError(t, store.Set(ctx, "stale", []byte("x"), time.Second))
	require.NoError(t, store.Set(ctx, "kept", []byte("y"), 0))
	_, err := store.CheckRateLimit(ctx, "chat:1", 5, time.Second)
	require.NoError(t, err)

	now = now.Add(sweepInterval + time.Second)
	require.NoError(t, store.Set(ctx, "fresh", []byte("z"), time.Hour))

	var keys []string
	store.entries.Range(func(k, _ interface{}) bool {
		keys = append(keys, k.(string))
		return true
	})
	assert.ElementsMatch(t, []string{"kept", "fresh"}, keys)
	assert.Empty(t, store.rateLimits)
}
