package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window request counter kept in Redis.
type Limiter struct {
	client    redis.Cmdable
	keyPrefix string
	limit     int
	window    time.Duration
}

type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

func NewLimiter(client redis.Cmdable, keyPrefix string, limit int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
	}
}

// fixedWindow increments the counter and gives it the window's TTL whenever
// it has none, so a counter can never outlive its window.
var fixedWindow = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return {count, ttl}
`)

// Allow counts one request for key in the current window.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	redisKey := l.keyPrefix + key

	res, err := fixedWindow.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("ratelimit: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("ratelimit: unexpected script result length %d", len(res))
	}

	count := int(res[0])
	return &Result{
		Allowed:   count <= l.limit,
		Remaining: max(l.limit-count, 0),
		ResetIn:   time.Duration(res[1]) * time.Millisecond,
		Limit:     l.limit,
	}, nil
}

func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.keyPrefix+key).Err()
}
