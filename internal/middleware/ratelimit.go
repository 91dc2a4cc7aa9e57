package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/makeasinger/genqueue/pkg/response"
)

// RateLimiter limits requests per client IP. With Redis the counters are
// shared between replicas (fixed window, INCR/EXPIRE); without it each
// process keeps its own token buckets.
type RateLimiter struct {
	redis *redis.Client

	mu    sync.Mutex
	local map[string]*ipLimiter
}

// ipLimiter holds a rate limiter and the last time it was seen.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter. redisClient may be nil.
func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis: redisClient,
		local: make(map[string]*ipLimiter),
	}
}

// Limit creates a rate limiting middleware. maxRequests <= 0 disables it.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	if maxRequests <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, c.IP())

		if rl.redis == nil {
			return rl.limitLocal(c, key, maxRequests, window)
		}

		ctx := context.Background()

		// Increment counter
		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			slog.Warn("rate limit counter unavailable, using local limiter", "error", err)
			return rl.limitLocal(c, key, maxRequests, window)
		}

		// Set expiration on first request
		if count == 1 {
			rl.redis.Expire(ctx, key, window)
		}

		if count > int64(maxRequests) {
			// Get TTL for retry-after header
			ttl, _ := rl.redis.TTL(ctx, key).Result()
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		// Add rate limit headers
		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// SubmitLimit returns the rate limiter for job submission
func (rl *RateLimiter) SubmitLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("submit", maxPerMin, time.Minute)
}

func (rl *RateLimiter) limitLocal(c *fiber.Ctx, key string, maxRequests int, window time.Duration) error {
	l := rl.localLimiter(key, maxRequests, window)
	if !l.Allow() {
		wait := time.Duration(float64(time.Second) / float64(l.Limit()))
		c.Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(wait.Seconds()))))
		return response.RateLimited(c)
	}

	c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
	c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", int(l.Tokens())))
	return c.Next()
}

func (rl *RateLimiter) localLimiter(key string, maxRequests int, window time.Duration) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.local[key]
	if !ok {
		every := rate.Every(window / time.Duration(maxRequests))
		l = &ipLimiter{limiter: rate.NewLimiter(every, maxRequests)}
		rl.local[key] = l
	}
	l.lastSeen = time.Now()
	return l.limiter
}

// Cleanup removes local limiters for IPs not seen in the last 5 minutes,
// until ctx is done.
func (rl *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict(time.Now().Add(-5 * time.Minute))
		}
	}
}

func (rl *RateLimiter) evict(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for key, l := range rl.local {
		if l.lastSeen.Before(cutoff) {
			delete(rl.local, key)
			n++
		}
	}
	return n
}
