//go:build integration

package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisLocker_MutualExclusion(t *testing.T) {
	client := NewTestRedis(t)
	locker := cache.NewRedisLocker(client, 10*time.Second, zap.NewNop())
	ctx := context.Background()

	var inside, maxInside, runs int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "cart:user-1", 5*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			atomic.AddInt32(&runs, 1)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, runs)
	assert.EqualValues(t, 1, maxInside)
}

func TestRedisLocker_TimesOutWhileHeld(t *testing.T) {
	client := NewTestRedis(t)
	locker := cache.NewRedisLocker(client, 10*time.Second, zap.NewNop())
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "cart:user-2", time.Second)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "cart:user-2", 100*time.Millisecond)
	assert.ErrorIs(t, err, shared.ErrLockTimeout)

	unlock()
	again, err := locker.Lock(ctx, "cart:user-2", time.Second)
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ExpiresAfterTTL(t *testing.T) {
	client := NewTestRedis(t)
	locker := cache.NewRedisLocker(client, 200*time.Millisecond, zap.NewNop())
	ctx := context.Background()

	_, err := locker.Lock(ctx, "cart:crashed", time.Second)
	require.NoError(t, err)

	unlock, err := locker.Lock(ctx, "cart:crashed", 2*time.Second)
	require.NoError(t, err)
	unlock()
}

func TestRedisIdempotencyStore(t *testing.T) {
	client := NewTestRedis(t)
	store := cache.NewRedisIdempotencyStore(client, "idem:test:")
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "webhook:offline:evt_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.MarkProcessed(ctx, "webhook:offline:evt_1", time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	processed, err := store.IsProcessed(ctx, "webhook:offline:evt_1")
	require.NoError(t, err)
	assert.True(t, processed)

	require.NoError(t, store.Release(ctx, "webhook:offline:evt_1"))
	processed, err = store.IsProcessed(ctx, "webhook:offline:evt_1")
	require.NoError(t, err)
	assert.False(t, processed)

	ttl, err := client.TTL(ctx, "idem:test:webhook:offline:evt_1").Result()
	require.NoError(t, err)
	assert.Negative(t, ttl)
}
