package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// slidingWindowScript checks and records a request in one round trip. Members
// older than the window are pruned first so the count only sees live entries.
// Returns 1 when the request fits under the limit.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('PEXPIRE', key, window)
    return 1
else
    return 0
end
`)

// RedisLimiter enforces a sliding-window limit shared across instances. When
// Redis is unreachable it degrades to the in-process Manager rather than
// rejecting or waving through everything.
type RedisLimiter struct {
	client   *redis.Client
	window   time.Duration
	limit    int
	fallback *Manager
	log      *logrus.Logger
}

func NewRedisLimiter(client *redis.Client, window time.Duration, limit int, fallback Config, log *logrus.Logger) *RedisLimiter {
	if window <= 0 {
		window = time.Second
	}
	if limit < 1 {
		limit = int(DefaultConfig().PerSecond)
	}
	return &RedisLimiter{
		client:   client,
		window:   window,
		limit:    limit,
		fallback: NewManager(fallback),
		log:      log,
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) bool {
	now := time.Now().UnixMilli()
	member := fmt.Sprintf("%d:%d", now, time.Now().UnixNano()%1000000)

	result, err := slidingWindowScript.Run(ctx, r.client,
		[]string{"ratelimit:" + key},
		now, r.window.Milliseconds(), r.limit, member,
	).Int()
	if err != nil {
		r.log.WithError(err).WithField("key", key).Warn("redis rate limiter unavailable, using in-process fallback")
		return r.fallback.Allow(ctx, key)
	}
	return result == 1
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
