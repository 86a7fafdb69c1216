package service

import (
	"context"
	"testing"
	"time"

	"toolx/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	clock := test.NewFakeClock()
	limiter := NewWindowLimiter(test.NewMemoryStore(clock), clock, "route", 3, 5*time.Minute)

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Allow(ctx, "email:user@example.com"))
		clock.Advance(time.Minute)
	}

	rateErr := requireRateLimited(t, limiter.Allow(ctx, "email:user@example.com"))
	assert.Equal(t, 120, rateErr.RetryAfter)

	assert.NoError(t, limiter.Allow(ctx, "email:other@example.com"))

	clock.Advance(2 * time.Minute)
	assert.NoError(t, limiter.Allow(ctx, "email:user@example.com"), "window resets")
}

func TestWindowLimiter_RetryAfterNeverBelowOne(t *testing.T) {
	ctx := context.Background()
	clock := test.NewFakeClock()
	limiter := NewWindowLimiter(test.NewMemoryStore(clock), clock, "route", 1, time.Minute)

	require.NoError(t, limiter.Allow(ctx, "k"))
	clock.Advance(time.Minute - 100*time.Millisecond)

	rateErr := requireRateLimited(t, limiter.Allow(ctx, "k"))
	assert.Equal(t, 1, rateErr.RetryAfter)
}

func TestWindowLimiter_Redis(t *testing.T) {
	ctx := context.Background()
	clock := test.NewFakeClock()
	_, client := test.SetupRedis(t)
	limiter := NewWindowLimiter(newRedisState(client), clock, "route", 2, 5*time.Minute)

	require.NoError(t, limiter.Allow(ctx, "ip:198.51.100.1"))
	require.NoError(t, limiter.Allow(ctx, "ip:198.51.100.1"))
	rateErr := requireRateLimited(t, limiter.Allow(ctx, "ip:198.51.100.1"))
	assert.Equal(t, 300, rateErr.RetryAfter)
}

func TestRouteLimitKey(t *testing.T) {
	assert.Equal(t, "email:user@example.com", RouteLimitKey("user@example.com", "10.0.0.1"))
	assert.Equal(t, "ip:10.0.0.1", RouteLimitKey("", "10.0.0.1"))
}
