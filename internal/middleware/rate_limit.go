// internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const clientIdleTTL = 3 * time.Minute

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// Limiter applies a per-IP token bucket. Each Limiter owns its own client
// map: two engines never share buckets, which also keeps parallel test
// engines independent.
type Limiter struct {
	mtx       sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

func NewLimiter(limit rate.Limit, burst int) *Limiter {
	return &Limiter{
		clients:   make(map[string]*client),
		limit:     limit,
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// acquire returns the caller's bucket, sweeping idle entries opportunistically
// so the map does not grow without bound.
func (l *Limiter) acquire(ip string) *rate.Limiter {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > clientIdleTTL {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) > clientIdleTTL {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &client{bucket: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.bucket
}

func (l *Limiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.acquire(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}
		c.Next()
	}
}

// RateLimits bundles the per-surface limiters wired into one engine.
type RateLimits struct {
	General *Limiter
	Auth    *Limiter
	Upload  *Limiter
}

func NewRateLimits() *RateLimits {
	return &RateLimits{
		General: NewLimiter(rate.Every(time.Second/10), 20),  // 10 requests per second
		Auth:    NewLimiter(rate.Every(time.Minute/5), 5),    // 5 auth requests per minute
		Upload:  NewLimiter(rate.Every(time.Minute/10), 10),  // 10 uploads per minute
	}
}
