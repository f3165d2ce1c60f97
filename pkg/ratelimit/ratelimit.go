// Package ratelimit implements keyed request throttling over Redis
// INCR+EXPIRE, generalized from the login-attempt limiter so it can bound
// any sensitive endpoint (login, magic-link issuance, quote requests).
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cleanco/backend/internal/telemetry"
)

// Limiter bounds attempts per key within a fixed window.
type Limiter struct {
	redis      *redis.Client
	maxAttempt int
	window     time.Duration
}

// New creates a Limiter. maxAttempt is the number of calls allowed per key
// within window.
func New(rdb *redis.Client, maxAttempt int, window time.Duration) *Limiter {
	return &Limiter{redis: rdb, maxAttempt: maxAttempt, window: window}
}

// Result holds the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	RetryAt   time.Time
}

// Check reports whether key is currently within budget. It fails open (logs
// and allows the request through) if Redis is unreachable, recording
// telemetry.RateLimitFailOpenTotal so sustained outages are visible.
func (l *Limiter) Check(ctx context.Context, namespace, key string) (Result, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", namespace, key)

	count, err := l.redis.Get(ctx, redisKey).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		telemetry.RateLimitFailOpenTotal.Inc()
		return Result{Allowed: true, Remaining: l.maxAttempt}, nil
	}

	if count >= l.maxAttempt {
		ttl, err := l.redis.TTL(ctx, redisKey).Result()
		if err != nil {
			telemetry.RateLimitFailOpenTotal.Inc()
			return Result{Allowed: true, Remaining: l.maxAttempt}, nil
		}
		return Result{Allowed: false, Remaining: 0, RetryAt: time.Now().Add(ttl)}, nil
	}

	return Result{Allowed: true, Remaining: l.maxAttempt - count}, nil
}

// Record registers one attempt against key, starting its window on the first
// increment.
func (l *Limiter) Record(ctx context.Context, namespace, key string) error {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", namespace, key)

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		telemetry.RateLimitFailOpenTotal.Inc()
		return nil
	}
	if incr.Val() == 1 {
		l.redis.Expire(ctx, redisKey, l.window)
	}
	return nil
}

// Reset clears the counter for key, e.g. after a successful login.
func (l *Limiter) Reset(ctx context.Context, namespace, key string) error {
	return l.redis.Del(ctx, fmt.Sprintf("ratelimit:%s:%s", namespace, key)).Err()
}
