package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/erp/docflow/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window limiter keyed by an arbitrary string.
// The API uses it to throttle manually triggered sweeps, which scan whole tables.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   int
	window  time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type client struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window and key
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanup(window * 2)
	return rl
}

// Stop ends the background cleanup
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, c := range rl.clients {
				if now.Sub(c.lastReset) > rl.window*2 {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow reports whether a request for key fits in the current window
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, exists := rl.clients[key]
	if !exists || now.Sub(c.lastReset) >= rl.window {
		rl.clients[key] = &client{tokens: rl.limit - 1, lastReset: now}
		return rl.limit > 0
	}
	if c.tokens > 0 {
		c.tokens--
		return true
	}
	return false
}

// Remaining returns the number of requests left for key in the current window
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, exists := rl.clients[key]
	if !exists || rl.now().Sub(c.lastReset) >= rl.window {
		return rl.limit
	}
	return c.tokens
}

// RouteKey limits per matched route, shared by every caller
func RouteKey(c *gin.Context) string {
	return c.Request.Method + " " + getRoutePattern(c)
}

// ClientKey limits per route and client IP
func ClientKey(c *gin.Context) string {
	return RouteKey(c) + "|" + c.ClientIP()
}

// RateLimit returns a rate limiting middleware using keyFunc to bucket requests
func RateLimit(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
		c.Next()
	}
}
