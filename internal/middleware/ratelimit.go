package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sellerfunnel/api/pkg/response"
)

// Counter counts hits against a key within a fixed window.
type Counter interface {
	// Hit increments key and returns the new count and the time left in the
	// current window.
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisCounter keeps fixed-window counters in Redis.
type RedisCounter struct {
	redis redis.Cmdable
}

func NewRedisCounter(client redis.Cmdable) *RedisCounter {
	return &RedisCounter{redis: client}
}

// Hit opens the window and counts the hit in one MULTI/EXEC, so a key never
// exists without its expiry.
func (rc *RedisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rc.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		_, incr, ttl = queueHit(ctx, pipe, key, window)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}

// queueHit creates key with a zero count and the window's expiry unless it
// already exists, then increments it and reads the time left.
func queueHit(ctx context.Context, pipe redis.Pipeliner, key string, window time.Duration) (*redis.BoolCmd, *redis.IntCmd, *redis.DurationCmd) {
	open := pipe.SetNX(ctx, key, 0, window)
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	return open, incr, ttl
}

type RateLimiter struct {
	counter Counter
	timeout time.Duration
}

func NewRateLimiter(counter Counter) *RateLimiter {
	return &RateLimiter{counter: counter, timeout: time.Second}
}

// Limit creates a rate limiting middleware keyed by client IP. When the
// counter store is unavailable requests are let through.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if maxRequests <= 0 {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, c.IP())
		ctx, cancel := context.WithTimeout(c.UserContext(), rl.timeout)
		defer cancel()

		count, ttl, err := rl.counter.Hit(ctx, key, window)
		if err != nil {
			log.Warn().
				Str("component", "ratelimit").
				Str("key", key).
				Err(err).
				Msg("Rate limit check failed, allowing request")
			return c.Next()
		}

		if count > int64(maxRequests) {
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// ImportLimit limits spreadsheet uploads per hour
func (rl *RateLimiter) ImportLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("import", maxPerHour, time.Hour)
}

// CampaignLimit limits campaign submissions per hour
func (rl *RateLimiter) CampaignLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("campaign", maxPerHour, time.Hour)
}
