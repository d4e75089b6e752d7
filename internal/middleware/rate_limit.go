package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	CartAddMaxRequests = 20
	CartAddWindow      = time.Minute

	LoginMaxAttempts = 10
	LoginWindow      = 15 * time.Minute
)

// Limiter is a fixed-window counter, see cache.RateLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// CartRateLimit limits cart additions per authenticated user.
func CartRateLimit(l Limiter) gin.HandlerFunc {
	return rateLimit(l, CartAddMaxRequests, CartAddWindow, func(c *gin.Context) string {
		id, _ := CurrentUserID(c)
		return "cart_add:" + id.String()
	})
}

// LoginRateLimit limits login attempts per client IP.
func LoginRateLimit(l Limiter) gin.HandlerFunc {
	return rateLimit(l, LoginMaxAttempts, LoginWindow, func(c *gin.Context) string {
		return "login_attempts:" + c.ClientIP()
	})
}

func rateLimit(l Limiter, limit int, window time.Duration, key func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		k := key(c)
		ok, retryAfter, err := l.Allow(c.Request.Context(), k, limit, window)
		if err != nil {
			// fail open
			slog.WarnContext(c.Request.Context(), "rate limiter unavailable", "key", k, "err", err)
			c.Next()
			return
		}
		if !ok {
			secs := int(retryAfter.Round(time.Second).Seconds())
			c.Header("Retry-After", fmt.Sprintf("%d", secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("too many requests, retry in %d seconds", secs),
				"retry_after": secs,
			})
			return
		}
		c.Next()
	}
}
