// Package middleware provides HTTP middleware for the document API.
package middleware

import (
	"net/http"

	"github.com/erp/docflow/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps caller supplied request ids
const MaxRequestIDLength = 128

// TracingConfig configures the request span middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

func DefaultTracingConfig() TracingConfig {
	return TracingConfig{ServiceName: "docflow", Enabled: true}
}

// TracingWithConfig opens one server span per request, named after the
// route pattern, e.g. "POST /api/v1/documents/:kind/:id/transitions".
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// TracingAttributeInjector copies the request id and the document kind and
// id from the path onto the request span. Ids that are not UUIDs are skipped.
// It must run after TracingWithConfig.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			span.SetAttributes(documentAttributes(c)...)
		}
		c.Next()
	}
}

func documentAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if rid := getRequestID(c); rid != "" {
		attrs = append(attrs, attribute.String("request_id", rid))
	}
	if kind := c.Param("kind"); kind != "" {
		attrs = append(attrs, attribute.String(telemetry.SpanAttrDocumentKind, kind))
	}
	if id, err := uuid.Parse(c.Param("id")); err == nil {
		attrs = append(attrs, attribute.String(telemetry.SpanAttrDocumentID, id.String()))
	}
	return attrs
}

// getRequestID prefers the id set by RequestID and falls back to the
// header, cut to MaxRequestIDLength
func getRequestID(c *gin.Context) string {
	if id := GetRequestID(c); id != "" {
		return id
	}
	id := c.GetHeader(RequestIDKey)
	if len(id) > MaxRequestIDLength {
		id = id[:MaxRequestIDLength]
	}
	return id
}

// SpanErrorMarker flags the request span as failed on 4xx and 5xx answers.
// Place it after the tracing middleware.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		span := trace.SpanFromContext(c.Request.Context())
		if status < http.StatusBadRequest || !span.IsRecording() {
			return
		}
		span.SetStatus(codes.Error, statusDescription(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}

func statusDescription(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "Internal Server Error"
	case status == http.StatusNotFound:
		return "Not Found"
	case status == http.StatusConflict:
		return "Conflict"
	default:
		return "Client Error"
	}
}
