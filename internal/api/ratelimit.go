package api

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/kartikbazzad/bunbase/bunstore/pkg/errors"
)

// RateLimiter stores rate limiters per IP address
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	rate     rate.Limit
	burst    int
	ttl      time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter. Entries idle for longer than ttl
// are dropped on the next lookup sweep.
func NewRateLimiter(rateLimit rate.Limit, burst int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*visitor),
		rate:     rateLimit,
		burst:    burst,
		ttl:      ttl,
	}
}

// Allow reports whether a request from ip may proceed now.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.getLimiter(ip, time.Now()).Allow()
}

// getLimiter returns the rate limiter for the given IP, creating one if needed
func (rl *RateLimiter) getLimiter(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.limiters {
		if now.Sub(v.lastSeen) > rl.ttl {
			delete(rl.limiters, key)
		}
	}

	v, exists := rl.limiters[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// RateLimit limits requests per client IP. A non-positive requestsPerMinute
// disables limiting.
func RateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	if requestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := NewRateLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst, 15*time.Minute)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = c.RemoteIP()
		}
		if !limiter.Allow(ip) {
			renderError(c, apperrors.TooManyRequests("rate limit exceeded"))
			return
		}
		c.Next()
	}
}
