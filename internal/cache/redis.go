package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter per key. A nil limiter or a limiter
// without a client allows everything.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow counts one hit for key and reports whether the window still has
// room. retryAfter is the time left in the current window.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (ok bool, retryAfter time.Duration, err error) {
	if l == nil || l.client == nil {
		return true, 0, nil
	}

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}

	retryAfter = ttl.Val()
	if retryAfter < 0 {
		retryAfter = window
	}
	return incr.Val() <= int64(limit), retryAfter, nil
}
