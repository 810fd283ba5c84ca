// Package cachetest holds the behaviour every apicore.CacheStore backend shares.
package cachetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/apicore"
)

// Run exercises store against the CacheStore contract. newStore must return
// an empty store; it is called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) apicore.CacheStore) {
	t.Helper()

	t.Run("get missing key", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), apicore.BucketRequest, "missing")
		assert.ErrorIs(t, err, apicore.ErrCacheMiss)
	})

	t.Run("set then get", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, apicore.BucketRequest, "k", []byte("v1"), 0))
		got, err := store.Get(ctx, apicore.BucketRequest, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)

		require.NoError(t, store.Set(ctx, apicore.BucketRequest, "k", []byte("v2"), 0))
		got, err = store.Get(ctx, apicore.BucketRequest, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got, "set overwrites")
	})

	t.Run("buckets are isolated", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, apicore.BucketConfiguration, "k", []byte("config"), 0))
		require.NoError(t, store.Set(ctx, apicore.BucketRequest, "k", []byte("request"), 0))

		got, err := store.Get(ctx, apicore.BucketConfiguration, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("config"), got)

		got, err = store.Get(ctx, apicore.BucketRequest, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("request"), got)
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, apicore.BucketRequest, "k", []byte("v"), 0))
		require.NoError(t, store.Delete(ctx, apicore.BucketRequest, "k"))

		_, err := store.Get(ctx, apicore.BucketRequest, "k")
		assert.ErrorIs(t, err, apicore.ErrCacheMiss)

		assert.NoError(t, store.Delete(ctx, apicore.BucketRequest, "k"), "deleting a missing key is not an error")
	})

	t.Run("clear removes only the named bucket", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i := range 3 {
			key := fmt.Sprintf("key-%d", i)
			require.NoError(t, store.Set(ctx, apicore.BucketRequest, key, []byte("r"), 0))
			require.NoError(t, store.Set(ctx, apicore.BucketConfiguration, key, []byte("c"), 0))
		}

		require.NoError(t, store.Clear(ctx, apicore.BucketRequest))

		for i := range 3 {
			key := fmt.Sprintf("key-%d", i)
			_, err := store.Get(ctx, apicore.BucketRequest, key)
			assert.ErrorIs(t, err, apicore.ErrCacheMiss, key)

			got, err := store.Get(ctx, apicore.BucketConfiguration, key)
			require.NoError(t, err, key)
			assert.Equal(t, []byte("c"), got)
		}
	})

	t.Run("clear empty bucket", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Clear(context.Background(), "never-used"))
	})

	t.Run("clear caches", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, apicore.BucketConfiguration, "routes.yaml", []byte("[]"), 0))
		require.NoError(t, store.Set(ctx, apicore.BucketRequest, "GET /", []byte("{}"), 0))
		require.NoError(t, store.Set(ctx, "other", "k", []byte("kept"), 0))

		require.NoError(t, apicore.ClearCaches(ctx, store))

		_, err := store.Get(ctx, apicore.BucketConfiguration, "routes.yaml")
		assert.ErrorIs(t, err, apicore.ErrCacheMiss)
		_, err = store.Get(ctx, apicore.BucketRequest, "GET /")
		assert.ErrorIs(t, err, apicore.ErrCacheMiss)

		got, err := store.Get(ctx, "other", "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("kept"), got)
	})

	t.Run("ttl expiry", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, apicore.BucketRequest, "short", []byte("v"), 50*time.Millisecond))
		require.NoError(t, store.Set(ctx, apicore.BucketRequest, "long", []byte("v"), time.Hour))

		Expire(t, store, 50*time.Millisecond)

		_, err := store.Get(ctx, apicore.BucketRequest, "short")
		assert.ErrorIs(t, err, apicore.ErrCacheMiss)

		_, err = store.Get(ctx, apicore.BucketRequest, "long")
		assert.NoError(t, err)
	})

	t.Run("concurrent access", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				key := fmt.Sprintf("key-%d", n)
				assert.NoError(t, store.Set(ctx, apicore.BucketRequest, key, []byte(key), 0))
				got, err := store.Get(ctx, apicore.BucketRequest, key)
				assert.NoError(t, err)
				assert.Equal(t, []byte(key), got)
			}(i)
		}
		wg.Wait()
	})
}

// Clock is implemented by backends whose expiry can be advanced without sleeping.
type Clock interface {
	FastForward(d time.Duration)
}

// Expire makes d elapse for store, advancing a Clock when available.
func Expire(t *testing.T, store apicore.CacheStore, d time.Duration) {
	t.Helper()
	if c, ok := store.(Clock); ok {
		c.FastForward(d)
		return
	}
	time.Sleep(d + 50*time.Millisecond)
}
