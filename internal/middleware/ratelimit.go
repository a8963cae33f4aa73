package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
)

// RateLimitConfig defines the limit for a specific route or group.
type RateLimitConfig struct {
	Max    int                      // Maximum requests allowed in the window
	Window time.Duration            // Time window for the limit
	KeyFn  func(c fiber.Ctx) string // Returns the key to rate limit on
}

// entry tracks request count and window start for a single key.
type entry struct {
	count     int
	windowEnd time.Time
}

// RateLimiter is an in-memory fixed-window rate limiter.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	config  RateLimitConfig
	done    chan struct{} // closed when the cleanup goroutine exits
}

// NewRateLimiter creates a rate limiter with the given config. Expired
// entries are swept every 5 minutes until ctx is cancelled.
func NewRateLimiter(ctx context.Context, cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		entries: make(map[string]*entry),
		config:  cfg,
		done:    make(chan struct{}),
	}
	go rl.cleanup(ctx)
	return rl
}

// hit counts one request for key and returns the new count and window end.
func (rl *RateLimiter) hit(key string) (int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	e, exists := rl.entries[key]
	if !exists || now.After(e.windowEnd) {
		e = &entry{windowEnd: now.Add(rl.config.Window)}
		rl.entries[key] = e
	}
	e.count++
	return e.count, e.windowEnd
}

// Handler returns a Fiber middleware handler that enforces the rate limit.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		count, windowEnd := rl.hit(rl.config.KeyFn(c))
		remaining := rl.config.Max - count

		setRateLimitHeaders(c, rl.config.Max, remaining, windowEnd)

		if remaining < 0 {
			retryAfter := int(time.Until(windowEnd).Seconds()) + 1
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fiber.Map{
					"code":       "RATE_LIMITED",
					"message":    fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
					"retryAfter": retryAfter,
				},
			})
		}

		return c.Next()
	}
}

// Allow checks if a request with the given key is allowed (for testing).
func (rl *RateLimiter) Allow(key string) bool {
	count, _ := rl.hit(key)
	return count <= rl.config.Max
}

func setRateLimitHeaders(c fiber.Ctx, limit, remaining int, resetAt time.Time) {
	c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(remaining, 0)))
	c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))
}

func (rl *RateLimiter) cleanup(ctx context.Context) {
	defer close(rl.done)
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// sweep drops entries whose window ended before now.
func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, e := range rl.entries {
		if now.After(e.windowEnd) {
			delete(rl.entries, key)
		}
	}
}

// KeyByIP returns the client IP as the rate limit key.
func KeyByIP(c fiber.Ctx) string {
	return "ip:" + c.IP()
}

// KeyByCycle limits per cycle regardless of caller, so a whole-cycle
// recompute cannot be queued repeatedly from different hosts.
func KeyByCycle(c fiber.Ctx) string {
	return "cycle:" + c.Params("cycleId")
}

// --- Pre-configured rate limiters ---

// NewReadRateLimiter: 120 req/min per IP
func NewReadRateLimiter(ctx context.Context) *RateLimiter {
	return NewRateLimiter(ctx, RateLimitConfig{
		Max:    120,
		Window: time.Minute,
		KeyFn:  KeyByIP,
	})
}

// NewRecomputeRateLimiter: 20 req/min per IP
func NewRecomputeRateLimiter(ctx context.Context) *RateLimiter {
	return NewRateLimiter(ctx, RateLimitConfig{
		Max:    20,
		Window: time.Minute,
		KeyFn:  KeyByIP,
	})
}

// NewBulkRecomputeRateLimiter: 2 req/10min per cycle
func NewBulkRecomputeRateLimiter(ctx context.Context) *RateLimiter {
	return NewRateLimiter(ctx, RateLimitConfig{
		Max:    2,
		Window: 10 * time.Minute,
		KeyFn:  KeyByCycle,
	})
}

// NewExportRateLimiter: 10 req/hour per IP
func NewExportRateLimiter(ctx context.Context) *RateLimiter {
	return NewRateLimiter(ctx, RateLimitConfig{
		Max:    10,
		Window: time.Hour,
		KeyFn:  KeyByIP,
	})
}
