package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter hands out one token bucket per signed-in user. Buckets
// idle long enough to have refilled are evicted by Cleanup.
type UserRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// NewUserRateLimiter allows perMinute requests per user with a burst of a
// tenth of that (at least one).
func NewUserRateLimiter(perMinute int) *UserRateLimiter {
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	every := time.Minute / time.Duration(max(perMinute, 1))
	return &UserRateLimiter{
		visitors: map[string]*visitor{},
		limit:    rate.Every(every),
		burst:    burst,
		idle:     max(time.Minute, every*time.Duration(burst)),
		now:      time.Now,
	}
}

func (l *UserRateLimiter) Allow(userID string) bool {
	l.mu.Lock()
	v, ok := l.visitors[userID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[userID] = v
	}
	v.lastSeen = l.now()
	l.mu.Unlock()
	return v.limiter.Allow()
}

// Cleanup drops buckets unused for longer than it takes them to refill and
// returns how many were dropped.
func (l *UserRateLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idle)
	dropped := 0
	for id, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, id)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of tracked users.
func (l *UserRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Run calls Cleanup every interval until ctx is done.
func (l *UserRateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// Handler rejects requests over the limit with 429. It must run after
// AuthMiddleware.
func (l *UserRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.Next()
		}
		if !l.Allow(user.ID) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"status":  "error",
				"message": "Too many requests",
				"data":    nil,
			})
		}
		return c.Next()
	}
}
