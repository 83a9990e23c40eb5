package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
	"github.com/noah-isme/agenda-api/pkg/response"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterSweepEveryN  = 1000
	calendarIDParamName = "calendarId"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per calendar and client IP.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
}

// NewRateLimiter returns nil when rps is not positive; a nil limiter lets every request through.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= limiterSweepEveryN {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= limiterIdleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// Handler aborts with 429 once a calendar/client pair runs out of tokens.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil {
			c.Next()
			return
		}
		key := c.Param(calendarIDParamName) + "|" + c.ClientIP()
		if rl.limiterFor(key).AllowN(rl.now(), 1) {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		response.Error(c, appErrors.WithDetails(appErrors.ErrRateLimited, map[string]interface{}{
			"calendar_id": c.Param(calendarIDParamName),
		}))
		c.Abort()
	}
}
