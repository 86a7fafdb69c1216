package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"toolx/config"
	"toolx/entity"
	"toolx/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireRateLimited(t *testing.T, err error) *entity.RateLimitedError {
	t.Helper()
	var rateErr *entity.RateLimitedError
	require.True(t, errors.As(err, &rateErr), "expected RateLimitedError, got %v", err)
	return rateErr
}

func newTestThrottle(clock *test.FakeClock) *Throttle {
	return NewThrottle(test.NewMemoryStore(clock), clock, config.Throttle{
		MinInterval: 30 * time.Second,
		MaxPerHour:  5,
		MaxPerDay:   20,
	})
}

func TestThrottle_MinInterval(t *testing.T) {
	ctx := context.Background()
	clock := test.NewFakeClock()
	throttle := newTestThrottle(clock)

	require.NoError(t, throttle.Check(ctx, "user@example.com"))

	rateErr := requireRateLimited(t, throttle.Check(ctx, "user@example.com"))
	assert.Equal(t, 30, rateErr.RetryAfter)

	clock.Advance(10 * time.Second)
	rateErr = requireRateLimited(t, throttle.Check(ctx, "user@example.com"))
	assert.Equal(t, 20, rateErr.RetryAfter)

	clock.Advance(20 * time.Second)
	assert.NoError(t, throttle.Check(ctx, "user@example.com"))
}

func TestThrottle_IdentitiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	clock := test.NewFakeClock()
	throttle := newTestThrottle(clock)

	require.NoError(t, throttle.Check(ctx, "a@example.com"))
	assert.NoError(t, throttle.Check(ctx, "b@example.com"))
	assert.NoError(t, throttle.Check(ctx, "203.0.113.9"))
}

func TestThrottle_HourlyCap(t *testing.T) {
	ctx := context.Background()
	clock := test.NewFakeClock()
	throttle := newTestThrottle(clock)

	for i := 0; i < 5; i++ {
		require.NoError(t, throttle.Check(ctx, "user@example.com"), "request %d", i+1)
		clock.Advance(31 * time.Second)
	}

	// 5 * 31s have elapsed since the hour window opened
	rateErr := requireRateLimited(t, throttle.Check(ctx, "user@example.com"))
	assert.Equal(t, 3600-5*31, rateErr.RetryAfter)

	clock.Advance(time.Duration(rateErr.RetryAfter) * time.Second)
	assert.NoError(t, throttle.Check(ctx, "user@example.com"))
}

func TestThrottle_DailyCap(t *testing.T) {
	ctx := context.Background()
	clock := test.NewFakeClock()
	throttle := NewThrottle(test.NewMemoryStore(clock), clock, config.Throttle{
		MinInterval: 0,
		MaxPerHour:  100,
		MaxPerDay:   3,
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, throttle.Check(ctx, "user@example.com"))
		clock.Advance(2 * time.Hour)
	}

	rateErr := requireRateLimited(t, throttle.Check(ctx, "user@example.com"))
	assert.Equal(t, int((18 * time.Hour).Seconds()), rateErr.RetryAfter)
}

func TestThrottle_RejectionDoesNotConsumeBudget(t *testing.T) {
	ctx := context.Background()
	clock := test.NewFakeClock()
	throttle := newTestThrottle(clock)

	require.NoError(t, throttle.Check(ctx, "user@example.com"))
	for i := 0; i < 10; i++ {
		requireRateLimited(t, throttle.Check(ctx, "user@example.com"))
	}

	for i := 0; i < 4; i++ {
		clock.Advance(30 * time.Second)
		require.NoError(t, throttle.Check(ctx, "user@example.com"), "request %d", i+2)
	}
}
