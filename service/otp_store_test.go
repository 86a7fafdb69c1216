package service

import (
	"context"
	"testing"
	"time"

	"toolx/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPStore_VerifyLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := test.NewFakeClock()
	store := NewOTPStore(test.NewMemoryStore(clock), clock, 5*time.Minute, true)

	ok, err := store.Verify(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok, "nothing issued yet")

	require.NoError(t, store.Set(ctx, "user@example.com", "123456"))

	ok, err = store.Verify(ctx, "user@example.com", "000000")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Verify(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Verify(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, ok, "reuse is enabled")

	clock.Advance(5 * time.Minute)
	ok, err = store.Verify(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok, "code expires at its TTL")
}

func TestOTPStore_SingleUse(t *testing.T) {
	ctx := context.Background()
	clock := test.NewFakeClock()
	store := NewOTPStore(test.NewMemoryStore(clock), clock, 5*time.Minute, false)

	require.NoError(t, store.Set(ctx, "user@example.com", "123456"))

	ok, err := store.Verify(ctx, "user@example.com", "999999")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Verify(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, ok, "a wrong guess must not burn the code")

	ok, err = store.Verify(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPStore_SetReplacesPreviousCode(t *testing.T) {
	ctx := context.Background()
	clock := test.NewFakeClock()
	store := NewOTPStore(test.NewMemoryStore(clock), clock, 5*time.Minute, true)

	require.NoError(t, store.Set(ctx, "user@example.com", "111111"))
	clock.Advance(4 * time.Minute)
	require.NoError(t, store.Set(ctx, "user@example.com", "222222"))

	ok, err := store.Verify(ctx, "user@example.com", "111111")
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(4 * time.Minute)
	ok, err = store.Verify(ctx, "user@example.com", "222222")
	require.NoError(t, err)
	assert.True(t, ok, "the TTL restarts with the new code")
}

func TestOTPStore_Redis(t *testing.T) {
	ctx := context.Background()
	clock := test.NewFakeClock()
	_, client := test.SetupRedis(t)
	state := newRedisState(client)
	store := NewOTPStore(state, clock, 5*time.Minute, false)

	require.NoError(t, store.Set(ctx, "user@example.com", "654321"))

	ok, err := store.Verify(ctx, "user@example.com", "654321")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Verify(ctx, "user@example.com", "654321")
	require.NoError(t, err)
	assert.False(t, ok)
}
