package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewLimiter_DefaultWindow(t *testing.T) {
	limiter := NewLimiter(nil, "test:", 10, 0)
	assert.Equal(t, time.Minute, limiter.window)
	assert.Equal(t, "test:", limiter.keyPrefix)
}

func TestLimiter_Allow(t *testing.T) {
	client := setupRedis(t)
	limiter := NewLimiter(client, "chat_relay:test:", 3, time.Minute)
	ctx := context.Background()
	key := uuid.NewString()
	t.Cleanup(func() { _ = limiter.Reset(ctx, key) })

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		assert.Greater(t, res.ResetIn, time.Duration(0))
	}

	res, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)

	require.NoError(t, limiter.Reset(ctx, key))
	res, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiter_WindowExpires(t *testing.T) {
	client := setupRedis(t)
	limiter := NewLimiter(client, "chat_relay:test:", 1, 200*time.Millisecond)
	ctx := context.Background()
	key := uuid.NewString()

	res, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	time.Sleep(300 * time.Millisecond)
	res, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiter_RestoresMissingTTL(t *testing.T) {
	client := setupRedis(t)
	limiter := NewLimiter(client, "chat_relay:test:", 1, time.Minute)
	ctx := context.Background()
	key := uuid.NewString()
	t.Cleanup(func() { _ = limiter.Reset(ctx, key) })

	// a counter left over limit without an expiry
	require.NoError(t, client.Set(ctx, "chat_relay:test:"+key, 5, 0).Err())

	res, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.ResetIn, time.Duration(0))

	ttl, err := client.PTTL(ctx, "chat_relay:test:"+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
