package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UploadRateLimiter allows each client a token-bucket budget of uploads.
type UploadRateLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	idle    time.Duration
	clients map[string]*clientLimiter
	now     func() time.Time
}

// NewUploadRateLimiter permits burst uploads at once and one more every interval.
func NewUploadRateLimiter(interval time.Duration, burst int) *UploadRateLimiter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	return &UploadRateLimiter{
		every:   rate.Every(interval),
		burst:   burst,
		idle:    10 * time.Minute,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

func (rl *UploadRateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for k, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > rl.idle {
			delete(rl.clients, k)
		}
	}

	cl, ok := rl.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Middleware keys clients by authenticated email, falling back to the remote IP.
func (rl *UploadRateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		if user := CurrentUser(c); user != nil && user.Email != "" {
			key = user.Email
		}
		if key == "" {
			key = "unknown"
		}
		if !rl.allow(key) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many uploads",
				"error":   "Rate limit exceeded, try again shortly",
			})
		}
		return c.Next()
	}
}
