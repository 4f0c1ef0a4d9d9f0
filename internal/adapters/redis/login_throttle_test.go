package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hostelhub/portal/internal/ports"
	"github.com/hostelhub/portal/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestLoginThrottle_BlocksAfterMaxFailures(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	throttle := NewLoginThrottle(client, ThrottleOptions{MaxAttempts: 3, Window: time.Minute})
	ctx := context.Background()
	key := "login:kip@hostel.test"

	for range 3 {
		require.NoError(t, throttle.Allow(ctx, key))
		require.NoError(t, throttle.Fail(ctx, key))
	}
	assert.ErrorIs(t, throttle.Allow(ctx, key), ports.ErrTooManyAttempts)

	n, err := throttle.Failures(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ttl, err := client.TTL(ctx, "throttle:"+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	// other keys are unaffected
	assert.NoError(t, throttle.Allow(ctx, "login:other@hostel.test"))
}

func TestLoginThrottle_Reset(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	throttle := NewLoginThrottle(client, ThrottleOptions{MaxAttempts: 1})
	ctx := context.Background()

	require.NoError(t, throttle.Fail(ctx, "k"))
	require.ErrorIs(t, throttle.Allow(ctx, "k"), ports.ErrTooManyAttempts)

	require.NoError(t, throttle.Reset(ctx, "k"))
	assert.NoError(t, throttle.Allow(ctx, "k"))
	n, err := throttle.Failures(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoginThrottle_WindowExpires(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	throttle := NewLoginThrottle(client, ThrottleOptions{MaxAttempts: 1, Window: time.Second, Prefix: "t:"})
	ctx := context.Background()

	require.NoError(t, throttle.Fail(ctx, "k"))
	require.ErrorIs(t, throttle.Allow(ctx, "k"), ports.ErrTooManyAttempts)

	assert.Eventually(t, func() bool { return throttle.Allow(ctx, "k") == nil }, 3*time.Second, 100*time.Millisecond)
}

func TestLoginThrottle_ConcurrentFailuresCountExactly(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	throttle := NewLoginThrottle(client, ThrottleOptions{MaxAttempts: 5, Window: time.Minute, Prefix: "burst:"})
	ctx := context.Background()

	var g errgroup.Group
	for range 20 {
		g.Go(func() error { return throttle.Fail(ctx, "k") })
	}
	require.NoError(t, g.Wait())

	n, err := throttle.Failures(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.ErrorIs(t, throttle.Allow(ctx, "k"), ports.ErrTooManyAttempts)

	ttl, err := client.PTTL(ctx, "burst:k").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestLoginThrottle_Defaults(t *testing.T) {
	throttle := NewLoginThrottle(nil, ThrottleOptions{})
	assert.Equal(t, 5, throttle.max)
	assert.Equal(t, 15*time.Minute, throttle.window)
	assert.Equal(t, "throttle:", throttle.prefix)
}

func TestLoginThrottle_UnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	throttle := NewLoginThrottle(client, ThrottleOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := throttle.Allow(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrTooManyAttempts)
	assert.Error(t, throttle.Fail(ctx, "k"))
}
