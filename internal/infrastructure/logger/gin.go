package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ginLoggerKey = "logger"

// GinMiddleware writes one access log line per request. The request logger
// is stored on the gin context and on the request context so handlers and
// the engine log with the same method, path and request id.
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		rid := c.GetString("request_id")

		scoped := base.With(
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Set(ginLoggerKey, scoped.With(zap.String("request_id", rid)))

		ctx := WithContext(c.Request.Context(), scoped)
		if rid != "" {
			ctx = WithRequestID(ctx, rid)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		if ce := scoped.Check(accessLevel(status), "HTTP Request"); ce != nil {
			fields := []zap.Field{
				zap.String("request_id", rid),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(began)),
				zap.String("client_ip", c.ClientIP()),
				zap.Int("body_size", c.Writer.Size()),
			}
			if q := c.Request.URL.RawQuery; q != "" {
				fields = append(fields, zap.String("query", q))
			}
			if len(c.Errors) > 0 {
				fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
			}
			ce.Write(fields...)
		}
	}
}

func accessLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// Recovery turns a handler panic into a logged 500 with the error envelope
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			base.Error("Panic recovered",
				zap.String("request_id", c.GetString("request_id")),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("error", r),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   gin.H{"code": "INTERNAL_ERROR", "message": "An internal error occurred"},
			})
		}()
		c.Next()
	}
}

// GetGinLogger returns the request logger, or a no-op logger outside GinMiddleware
func GetGinLogger(c *gin.Context) *zap.Logger {
	if zl, ok := c.Value(ginLoggerKey).(*zap.Logger); ok {
		return zl
	}
	return zap.NewNop()
}
