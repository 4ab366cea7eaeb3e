// Package ratelimit enforces a fixed-window per-client request budget
// backed by Redis, so limits hold across serving instances.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter answers whether a client may make another request right now.
type Limiter interface {
	// Allow reports whether the key is under its window budget, along with
	// the remaining budget for the current window.
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
}

// Unlimited never rejects. Used when rate limiting is disabled.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, int, error) { return true, -1, nil }

// RedisLimiter counts requests per key in fixed windows. On Redis failure it
// fails open: a broken limiter must not take chat traffic down with it.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter builds a limiter allowing limit requests per window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{client: client, limit: limit, window: window}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	window := time.Now().Unix() / int64(l.window.Seconds())
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, window)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[RateLimit] redis unavailable, failing open: %v", err)
		return true, -1, nil
	}

	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= l.limit, remaining, nil
}
