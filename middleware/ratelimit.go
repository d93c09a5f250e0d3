package middleware

import (
	"fmt"
	"math"
	"sync"
	"time"

	"restaurant-ordering-api/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP. Idle buckets age out of
// an LRU so the table stays bounded.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
	name     string
}

func NewRateLimiter(name string, rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](10000, nil, 15*time.Minute),
		rate:     rate.Limit(rps),
		burst:    burst,
		name:     name,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if l, ok := rl.limiters.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters.Add(key, l)
	return l
}

// Handler rejects requests over the limit with 429
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}
		key := c.ClientIP()
		if !rl.limiter(key).Allow() {
			retry := int(math.Ceil(1 / float64(rl.rate)))
			c.Header("Retry-After", fmt.Sprint(retry))
			Logger(c).Warn("Rate limit exceeded",
				zap.String("limiter", rl.name),
				zap.String("ip", key),
				zap.String("path", c.Request.URL.Path),
			)
			WriteError(c, apperrors.RateLimited("Too many requests, please try again later"))
			return
		}
		c.Next()
	}
}
