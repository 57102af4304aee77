package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})

	return sr
}

func findSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	ended := sr.Ended()
	for i := len(ended) - 1; i >= 0; i-- {
		if ended[i].Name() == name {
			return ended[i]
		}
	}
	require.Failf(t, "span not found", "no span named %q", name)
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, attr := range span.Attributes() {
		if string(attr.Key) == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false, ServiceName: "test-service"}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracingAttributeInjector(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(RequestID())
	router.Use(TracingWithConfig(DefaultTracingConfig()))
	router.Use(TracingAttributeInjector())
	router.GET("/documents/:kind/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("document route", func(t *testing.T) {
		id := uuid.New()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/documents/invoice/"+id.String(), nil)
		req.Header.Set(RequestIDKey, "req-42")
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		span := findSpan(t, sr, "GET /documents/:kind/:id")
		v, ok := spanAttr(span, "request_id")
		require.True(t, ok)
		assert.Equal(t, "req-42", v.AsString())
		v, ok = spanAttr(span, "document.kind")
		require.True(t, ok)
		assert.Equal(t, "invoice", v.AsString())
		v, ok = spanAttr(span, "document.id")
		require.True(t, ok)
		assert.Equal(t, id.String(), v.AsString())
	})

	t.Run("malformed id is not recorded", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/order/not-a-uuid", nil))

		span := findSpan(t, sr, "GET /documents/:kind/:id")
		_, ok := spanAttr(span, "document.id")
		assert.False(t, ok)
	})
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantCode    codes.Code
		description string
	}{
		{name: "success", status: http.StatusOK, wantCode: codes.Unset},
		{name: "bad request", status: http.StatusBadRequest, wantCode: codes.Error, description: "Client Error"},
		{name: "not found", status: http.StatusNotFound, wantCode: codes.Error, description: "Not Found"},
		{name: "conflict", status: http.StatusConflict, wantCode: codes.Error, description: "Conflict"},
		{name: "internal", status: http.StatusInternalServerError, wantCode: codes.Error, description: "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := setupTestTracer(t)

			router := gin.New()
			router.Use(TracingWithConfig(DefaultTracingConfig()))
			router.Use(SpanErrorMarker())
			router.GET("/test", func(c *gin.Context) { c.Status(tt.status) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			span := findSpan(t, sr, "GET /test")
			assert.Equal(t, tt.wantCode, span.Status().Code)
			assert.Equal(t, tt.description, span.Status().Description)
		})
	}
}

func TestSpanErrorMarker_WithNoSpan(t *testing.T) {
	router := gin.New()
	router.Use(SpanErrorMarker())
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetRequestID_LongHeader_Truncated(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	c.Request.Header.Set(RequestIDKey, strings.Repeat("a", 300))

	assert.Len(t, getRequestID(c), MaxRequestIDLength)
}
