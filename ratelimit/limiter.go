package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces limiter keys in Redis
const DefaultKeyPrefix = "rl:"

// Result describes the state of a key after a hit
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Limiter counts hits for key under policy
type Limiter interface {
	Allow(ctx context.Context, key string, policy Policy) (Result, error)
}

// RedisLimiter enforces fixed windows with Redis counters.
type RedisLimiter struct {
	redis  redis.UniversalClient
	prefix string
}

var _ Limiter = (*RedisLimiter)(nil)

// Option configures a RedisLimiter
type Option func(*RedisLimiter)

// WithKeyPrefix overrides DefaultKeyPrefix
func WithKeyPrefix(prefix string) Option {
	return func(l *RedisLimiter) {
		l.prefix = prefix
	}
}

// NewRedisLimiter creates a limiter backed by the given Redis client.
func NewRedisLimiter(client redis.UniversalClient, opts ...Option) *RedisLimiter {
	l := &RedisLimiter{
		redis:  client,
		prefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Allow records a hit and reports whether it fits in the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string, policy Policy) (Result, error) {
	if err := policy.Validate(); err != nil {
		return Result{}, err
	}

	redisKey := l.key(key, policy)

	count, err := l.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, redisKey, policy.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	ttl, err := l.redis.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// a key without expiry would block forever, restart its window
	if ttl < 0 {
		if err := l.redis.Expire(ctx, redisKey, policy.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		ttl = policy.Window
	}

	remaining := policy.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:    count <= int64(policy.Limit),
		Limit:      policy.Limit,
		Remaining:  remaining,
		ResetAfter: ttl,
	}, nil
}

// Reset clears the counter for key under policy
func (l *RedisLimiter) Reset(ctx context.Context, key string, policy Policy) error {
	if err := l.redis.Del(ctx, l.key(key, policy)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *RedisLimiter) key(key string, policy Policy) string {
	return l.prefix + policy.Name + ":" + key
}

// NoopLimiter admits every request. Used when limiting is disabled.
type NoopLimiter struct{}

var _ Limiter = NoopLimiter{}

func (NoopLimiter) Allow(_ context.Context, _ string, policy Policy) (Result, error) {
	return Result{Allowed: true, Limit: policy.Limit, Remaining: policy.Limit}, nil
}
