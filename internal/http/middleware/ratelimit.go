// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the process-local token-bucket limiter. Buckets are keyed
// by acting account (or client IP for anonymous callers) and idle buckets are
// evicted opportunistically. Sending thanks notifies another user, so unsafe
// methods can be charged more than one token. Idempotent replays are free.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to its bucket.
type keyFunc func(*gin.Context) string

// KeyByActorOrIP keys by "actor:<id>" when Actor resolved one, else "ip:<addr>".
func KeyByActorOrIP() keyFunc {
	return func(c *gin.Context) string {
		if id := ActorID(c); id > 0 {
			return "actor:" + strconv.FormatInt(id, 10)
		}
		return "ip:" + c.ClientIP()
	}
}

var rateLimited = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "thanks",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by route.",
	},
	[]string{"route"},
)

func init() {
	prometheus.MustRegister(rateLimited)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. Safe for concurrent use.
type RateLimiter struct {
	rps       rate.Limit
	burst     int
	keyFn     keyFunc
	writeCost int

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  uint64
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to
// burst (coerced to at least 1). Every request costs one token.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		keyFn:     keyFn,
		writeCost: 1,
		visitors:  make(map[string]*visitor),
		ttl:       10 * time.Minute,
	}
}

// WithWriteCost charges n tokens (capped at burst) for POST, PUT, PATCH and
// DELETE requests.
func (rl *RateLimiter) WithWriteCost(n int) *RateLimiter {
	switch {
	case n < 1:
		n = 1
	case n > rl.burst:
		n = rl.burst
	}
	rl.writeCost = n
	return rl
}

func (rl *RateLimiter) cost(method string) int {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return rl.writeCost
	}
	return 1
}

// getVisitor returns the limiter for key, creating it if needed. Every 5000
// lookups idle buckets are swept first, so a stale bucket is replaced
// rather than refreshed.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator found a stored result
// for this request.
func IsRateBypass(c *gin.Context) bool {
	b, _ := c.Get(ctxKeyRateBypass)
	v, _ := b.(bool)
	return v
}

// Handler enforces the limits. Rejections get 429 with the standard error
// envelope (code "rate_limited") and a Retry-After in whole seconds.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := time.Now()
		lim := rl.getVisitor(rl.keyFn(c))
		res := lim.ReserveN(now, rl.cost(c.Request.Method))
		delay := res.DelayFrom(now)
		if res.OK() && delay == 0 {
			c.Next()
			return
		}
		res.CancelAt(now)

		retry := 1
		if res.OK() {
			retry = int(math.Ceil(delay.Seconds()))
		}
		rateLimited.WithLabelValues(routeOf(c)).Inc()

		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
