package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestThrottle(t *testing.T) (*RedisThrottle, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisThrottle(client), mr
}

func TestRedisThrottle_FirstHitAllowed(t *testing.T) {
	throttle, mr := newTestThrottle(t)
	ctx := context.Background()

	allowed, occurrences, err := throttle.Allow(ctx, "shop:GET:/cart", 5*time.Minute)

	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(1), occurrences)

	gate := alertKeyPrefix + "shop:GET:/cart"
	assert.True(t, mr.Exists(gate))
	assert.Equal(t, 5*time.Minute, mr.TTL(gate))
}

func TestRedisThrottle_SuppressesWithinWindow(t *testing.T) {
	throttle, mr := newTestThrottle(t)
	ctx := context.Background()
	window := time.Minute

	_, _, err := throttle.Allow(ctx, "shop:GET:/cart", window)
	require.NoError(t, err)

	for range 3 {
		allowed, occurrences, err := throttle.Allow(ctx, "shop:GET:/cart", window)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Zero(t, occurrences)
	}

	counter := alertKeyPrefix + "shop:GET:/cart:suppressed"
	got, err := mr.Get(counter)
	require.NoError(t, err)
	assert.Equal(t, "3", got)
	assert.Equal(t, 2*window, mr.TTL(counter))

	// other endpoints have their own gate
	allowed, _, err := throttle.Allow(ctx, "shop:GET:/checkout", window)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisThrottle_ReportsSuppressedOnNextAlert(t *testing.T) {
	throttle, mr := newTestThrottle(t)
	ctx := context.Background()
	window := time.Minute

	_, _, err := throttle.Allow(ctx, "shop:GET:/cart", window)
	require.NoError(t, err)
	for range 2 {
		_, _, err := throttle.Allow(ctx, "shop:GET:/cart", window)
		require.NoError(t, err)
	}

	mr.FastForward(window + time.Second)

	allowed, occurrences, err := throttle.Allow(ctx, "shop:GET:/cart", window)
	require.NoError(t, err)
	assert.True(t, allowed)
	// this detection plus the two suppressed ones
	assert.Equal(t, int64(3), occurrences)

	// the counter is consumed
	assert.False(t, mr.Exists(alertKeyPrefix+"shop:GET:/cart:suppressed"))
}

func TestRedisThrottle_ZeroWindowAlwaysAllows(t *testing.T) {
	throttle, mr := newTestThrottle(t)
	ctx := context.Background()

	for range 3 {
		allowed, occurrences, err := throttle.Allow(ctx, "shop:GET:/cart", 0)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, int64(1), occurrences)
	}
	assert.Empty(t, mr.Keys())
}

func TestRedisThrottle_RedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	throttle := NewRedisThrottle(client)

	allowed, _, err := throttle.Allow(context.Background(), "shop:GET:/cart", time.Minute)

	assert.Error(t, err)
	assert.False(t, allowed)
}
