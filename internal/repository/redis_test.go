package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"spacehub/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	store := NewRedisStore(client)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "spacehub:cache:a", []byte(`{"ok":true}`), time.Minute))

		got, ok, err := store.Get(ctx, "spacehub:cache:a")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"ok":true}`, string(got))
	})

	t.Run("Miss", func(t *testing.T) {
		got, ok, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("TTL", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "short", []byte("x"), time.Second))
		s.FastForward(2 * time.Second)
		_, ok, err := store.Get(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "gone", []byte("x"), 0))
		require.NoError(t, store.Delete(ctx, "gone"))
		assert.False(t, s.Exists("gone"))
	})

	t.Run("DeletePrefix", func(t *testing.T) {
		for i := 0; i < 250; i++ {
			require.NoError(t, s.Set(fmt.Sprintf("spacehub:cache:spaces:%d", i), "v"))
		}
		require.NoError(t, store.Set(ctx, "link_code:ABC123", []byte("user"), time.Minute))

		require.NoError(t, store.DeletePrefix(ctx, "spacehub:cache:spaces:"))

		keys, _, err := client.Scan(ctx, 0, "spacehub:cache:spaces:*", 1000).Result()
		require.NoError(t, err)
		assert.Empty(t, keys)
		assert.True(t, s.Exists("link_code:ABC123"))
	})

	t.Run("RateLimit", func(t *testing.T) {
		key := "login:ada@example.com"
		window := time.Second

		allowed, err := store.CheckRateLimit(ctx, key, 2, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = store.CheckRateLimit(ctx, key, 2, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = store.CheckRateLimit(ctx, key, 2, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(window + time.Millisecond)

		allowed, err = store.CheckRateLimit(ctx, key, 2, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("NilClient", func(t *testing.T) {
		empty := NewRedisStore(nil)
		_, _, err := empty.Get(ctx, "a")
		assert.ErrorIs(t, err, errNilClient)
		assert.ErrorIs(t, empty.DeletePrefix(ctx, "a"), errNilClient)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("ServerDown", func(t *testing.T) {
		down, err := miniredis.Run()
		require.NoError(t, err)
		downClient := redis.NewClient(&redis.Options{Addr: down.Addr(), MaxRetries: -1})
		defer downClient.Close()
		down.Close()

		_, _, err = NewRedisStore(downClient).Get(ctx, "a")
		assert.Error(t, err)
		assert.Error(t, Ping(ctx, downClient))
	})

	t.Run("Close", func(t *testing.T) {
		assert.NoError(t, Close(nil))
	})
}
