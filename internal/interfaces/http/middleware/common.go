package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the header carrying the request id
const RequestIDKey = "X-Request-ID"

// requestIDContextKey is where RequestID stores the id in the gin context
const requestIDContextKey = "request_id"

// CORSConfig holds CORS middleware configuration
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns default CORS configuration.
// AllowOrigins is empty, so cross-origin requests get no CORS headers until configured.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", RequestIDKey, "Accept", "Origin"},
		ExposeHeaders:    []string{RequestIDKey, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORSWithConfig answers CORS for the configured origins. Preflight
// requests always end here, allowed or not.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	origins := make(map[string]bool, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		origins[o] = true
	}

	static := http.Header{}
	static.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))
	static.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))
	if len(cfg.ExposeHeaders) > 0 {
		static.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposeHeaders, ", "))
	}
	if cfg.MaxAge > 0 {
		static.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
	}

	return func(c *gin.Context) {
		allow := ""
		switch origin := c.GetHeader("Origin"); {
		case origins["*"]:
			allow = "*"
		case origin != "" && origins[origin]:
			allow = origin
		}

		if allow != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allow)
			if cfg.AllowCredentials && allow != "*" {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			for k, v := range static {
				h[k] = v
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID echoes the caller's X-Request-ID, or a fresh one when it is
// missing or longer than MaxRequestIDLength
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDKey)
		if id == "" || len(id) > MaxRequestIDLength {
			id = newRequestID()
		}
		c.Set(requestIDContextKey, id)
		c.Header(RequestIDKey, id)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, if any
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

// newRequestID is 32 hex characters
func newRequestID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return hex.EncodeToString(b[:])
}

// Secure adds the basic security headers to every response
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}

// Timeout bounds the request context, so store calls made by the handler
// observe the deadline. A zero timeout disables it.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
