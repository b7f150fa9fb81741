package middlewares

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a sliding-window limiter on redis sorted sets, for
// deployments running more than one auth instance.
type RedisLimiter struct {
	client    redis.Cmdable
	keyPrefix string
	limit     int
	window    time.Duration
}

func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		keyPrefix: "ratelimit:",
		limit:     limit,
		window:    window,
	}
}

// Lua keeps the prune + count + add atomic per key.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local window_start = tonumber(ARGV[1])
	local now = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)

	if count + 1 > limit then
		return 0
	end

	redis.call('ZADD', key, now, now)
	redis.call('PEXPIRE', key, window_ms)

	return 1
`)

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := r.keyPrefix + key
	now := time.Now()
	windowStart := now.Add(-r.window).UnixMicro()

	result, err := slidingWindowScript.Run(ctx, r.client, []string{redisKey},
		windowStart,
		now.UnixMicro(),
		r.limit,
		r.window.Milliseconds(),
	).Int()

	if err != nil {
		return false, 0, fmt.Errorf("redis rate limit script failed: %w", err)
	}

	if result != 1 {
		// the oldest entry ages out within one window at most
		return false, r.window, nil
	}

	return true, 0, nil
}
