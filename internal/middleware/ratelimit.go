package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
	"github.com/noah-isme/tutoring-api/pkg/response"
)

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	r       rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

// NewRateLimiter allows rps requests per second per client with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		clients: make(map[string]*limiterEntry),
		r:       rate.Limit(rps),
		burst:   burst,
		ttl:     3 * time.Minute,
		now:     time.Now,
	}
}

// Allow consumes a token for key.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	entry, ok := rl.clients[key]
	if !ok {
		entry = &limiterEntry{lim: rate.NewLimiter(rl.r, rl.burst)}
		rl.clients[key] = entry
	}
	entry.seen = now
	return entry.lim.AllowN(now, 1)
}

// Sweep drops clients idle for longer than the ttl.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for key, entry := range rl.clients {
		if rl.now().Sub(entry.seen) > rl.ttl {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps idle clients every interval until stop is closed.
func (rl *RateLimiter) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// RateLimit rejects requests once the caller's bucket is empty. Authenticated callers are keyed by
// person id, anonymous ones by client IP.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.r <= 0 {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		if claims, ok := Claims(c); ok && claims.PersonID != "" {
			key = "person:" + claims.PersonID
		}
		if !rl.Allow(key) {
			c.Header("Retry-After", "1")
			response.Error(c, appErrors.ErrTooManyCalls)
			c.Abort()
			return
		}
		c.Next()
	}
}
