// Package redis provides Redis-backed adapters for the portal.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hostelhub/portal/internal/ports"
)

// LoginThrottle counts failed sign-in attempts per key in a fixed window.
// The window starts at the first failure and is not extended by later ones.
//
// Allow and Fail are separate round trips, so attempts already in flight when the limit is
// reached still run: a burst of N concurrent wrong passwords can overshoot MaxAttempts by up
// to N-1. The counter itself is exact.
type LoginThrottle struct {
	client redis.UniversalClient
	prefix string
	max    int
	window time.Duration
}

var _ ports.LoginThrottle = (*LoginThrottle)(nil)

// failScript increments the counter and starts the window on the first failure in one step,
// so a counter never outlives its window.
var failScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// ThrottleOptions configures NewLoginThrottle.
type ThrottleOptions struct {
	MaxAttempts int           // default 5
	Window      time.Duration // default 15m
	Prefix      string        // default "throttle:"
}

// NewLoginThrottle creates a Redis-based login throttle.
func NewLoginThrottle(client redis.UniversalClient, opts ThrottleOptions) *LoginThrottle {
	t := &LoginThrottle{
		client: client,
		prefix: opts.Prefix,
		max:    opts.MaxAttempts,
		window: opts.Window,
	}
	if t.prefix == "" {
		t.prefix = "throttle:"
	}
	if t.max <= 0 {
		t.max = 5
	}
	if t.window <= 0 {
		t.window = 15 * time.Minute
	}
	return t
}

// Allow returns ports.ErrTooManyAttempts once the key has reached the failure limit.
func (t *LoginThrottle) Allow(ctx context.Context, key string) error {
	v, err := t.client.Get(ctx, t.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis get: %w", err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse attempt counter %q: %w", v, err)
	}
	if n >= t.max {
		return ports.ErrTooManyAttempts
	}
	return nil
}

// Fail records one failed attempt.
func (t *LoginThrottle) Fail(ctx context.Context, key string) error {
	err := failScript.Run(ctx, t.client, []string{t.prefix + key}, t.window.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis incr: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful sign-in.
func (t *LoginThrottle) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, t.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Failures reports the current failure count for key.
func (t *LoginThrottle) Failures(ctx context.Context, key string) (int, error) {
	n, err := t.client.Get(ctx, t.prefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
