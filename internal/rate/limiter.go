package rate

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript prunes, counts and conditionally records one attempt.
// KEYS[1] = key, ARGV = now(ms), window(ms), max, member. Returns 1 if admitted.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= max then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// Config holds limiter construction options.
type Config struct {
	// KeyPrefix is prepended to every key, e.g. "rl:".
	KeyPrefix string
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Limiter enforces sliding-window limits in Redis sorted sets.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
	seq    atomic.Uint64
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		redis:  redisClient,
		prefix: cfg.KeyPrefix,
		now:    now,
	}
}

// Allow records one attempt for key if fewer than max attempts were admitted
// within window. It returns [ErrRateLimited] when the budget is spent and
// wraps [ErrRedisUnavailable] on backend failure.
func (l *Limiter) Allow(ctx context.Context, key string, max int, window time.Duration) error {
	if max <= 0 {
		return ErrRateLimited
	}

	now := l.now().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + strconv.FormatUint(l.seq.Add(1), 10)

	admitted, err := slidingWindowScript.Run(ctx, l.redis,
		[]string{l.prefix + key},
		now, window.Milliseconds(), max, member,
	).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if admitted != 1 {
		return ErrRateLimited
	}
	return nil
}

// Count returns the number of attempts admitted for key inside window.
func (l *Limiter) Count(ctx context.Context, key string, window time.Duration) (int, error) {
	floor := strconv.FormatInt(l.now().Add(-window).UnixMilli(), 10)
	n, err := l.redis.ZCount(ctx, l.prefix+key, "("+floor, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}

// Reset clears all attempts for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
