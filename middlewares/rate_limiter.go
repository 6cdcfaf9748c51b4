package middlewares

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/utils"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

// NewRateLimiter allows requests per interval for each IP, with bursts up
// to requests.
func NewRateLimiter(requests int, interval time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	return &RateLimiter{
		limit:    rate.Every(interval / time.Duration(requests)),
		burst:    requests,
		ttl:      10 * time.Minute,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// NewStrictRateLimiter guards login and register: 5 attempts per minute.
func NewStrictRateLimiter() *RateLimiter {
	return NewRateLimiter(5, time.Minute)
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Cleanup forgets idle visitors until stop is closed.
func (rl *RateLimiter) Cleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.prune()
		case <-stop:
			return
		}
	}
}

func (rl *RateLimiter) prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.ttl)
	removed := 0
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			utils.AbortWithError(c, http.StatusTooManyRequests, errors.New("too many requests, please slow down"), nil)
			return
		}
		c.Next()
	}
}
