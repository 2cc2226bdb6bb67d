package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/chat-widget/internal/config"
)

// newTestClient connects to the Redis named by TEST_REDIS_HOST, skipping
// the test when none is available.
func newTestClient(t *testing.T) *Client {
	t.Helper()

	host := os.Getenv("TEST_REDIS_HOST")
	if host == "" {
		t.Skip("TEST_REDIS_HOST not set")
	}

	client, err := NewClient(config.RedisConfig{Host: host, Port: 6379, DB: 15})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRateLimiter_Allow(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	limiter := NewRateLimiter(client, 2, 1)
	key := "agent-7:" + uuid.NewString()
	t.Cleanup(func() { _ = limiter.Reset(ctx, key) })

	for i := 0; i < limiter.Limit(); i++ {
		allowed, remaining, reset, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, limiter.Limit()-i-1, remaining)
		assert.True(t, reset.After(time.Now()))
	}

	allowed, remaining, _, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)

	require.NoError(t, limiter.Reset(ctx, key))
	allowed, _, _, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestTurnGuard(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	guard := NewTurnGuard(client, 5*time.Second)
	session := "session_" + uuid.NewString()

	token, ok, err := guard.Acquire(ctx, session)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = guard.Acquire(ctx, session)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while the first turn is in flight")

	require.NoError(t, guard.Release(ctx, session, token))

	token, ok, err = guard.Acquire(ctx, session)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, guard.Release(ctx, session, token))
}

func TestTurnGuard_StaleReleaseKeepsNewHolder(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	guard := NewTurnGuard(client, 5*time.Second)
	session := "session_" + uuid.NewString()

	stale, ok, err := guard.Acquire(ctx, session)
	require.NoError(t, err)
	require.True(t, ok)

	// the first lock expires mid-turn and another replica takes over
	require.NoError(t, client.rdb.Del(ctx, turnGuardPrefix+session).Err())
	current, ok, err := guard.Acquire(ctx, session)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, guard.Release(ctx, session, stale))

	_, ok, err = guard.Acquire(ctx, session)
	require.NoError(t, err)
	assert.False(t, ok, "stale release must not clear the current holder's lock")

	require.NoError(t, guard.Release(ctx, session, current))
	_, ok, err = guard.Acquire(ctx, session)
	require.NoError(t, err)
	assert.True(t, ok)
	t.Cleanup(func() { _ = client.rdb.Del(ctx, turnGuardPrefix+session).Err() })
}

func TestClient_Ping(t *testing.T) {
	client := newTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}
