package middleware

import (
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var sizeBuckets = []float64{128, 512, 1 << 10, 4 << 10, 16 << 10, 64 << 10, 256 << 10, 1 << 20, 4 << 20}

// HTTPMetricsConfig holds configuration for HTTP metrics middleware
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Enabled       bool
}

type httpInstruments struct {
	requests     *telemetry.Counter
	latency      *telemetry.Histogram
	requestSize  *telemetry.Histogram
	responseSize *telemetry.Histogram
	inFlight     metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var (
		in  httpInstruments
		err error
	)
	if in.requests, err = telemetry.NewCounter(meter, "http_server_request_total",
		"HTTP requests served", "{request}"); err != nil {
		return nil, err
	}
	if in.latency, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if in.requestSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "HTTP request body size",
		Unit:        "By",
		Boundaries:  sizeBuckets,
	}); err != nil {
		return nil, err
	}
	if in.responseSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size",
		Unit:        "By",
		Boundaries:  sizeBuckets,
	}); err != nil {
		return nil, err
	}
	in.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"), metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// HTTPMetrics counts requests per route, status and document kind and
// records latency and body sizes. Disabled configs pass requests through.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), true)
}

// HTTPMetricsWithMeter is HTTPMetrics on an existing meter
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled || meter == nil {
		return passThrough
	}
	in, err := newHTTPInstruments(meter)
	if err != nil {
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		in.inFlight.Add(ctx, 1)
		c.Next()
		in.inFlight.Add(ctx, -1)

		route := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(getRoutePattern(c)),
		}
		counted := append([]attribute.KeyValue{telemetry.AttrHTTPStatusCode.Int(c.Writer.Status())}, route...)
		if kind := documentKind(c); kind != "" {
			counted = append(counted, telemetry.AttrKind.String(kind))
		}
		in.requests.Inc(ctx, counted...)
		in.latency.RecordDuration(ctx, time.Since(start), route...)
		if n := c.Request.ContentLength; n > 0 {
			in.requestSize.Record(ctx, float64(n), route...)
		}
		if n := c.Writer.Size(); n > 0 {
			in.responseSize.Record(ctx, float64(n), route...)
		}
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}

// getRoutePattern keeps document ids out of label values
func getRoutePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

// documentKind returns the kind path parameter when it names a real kind
func documentKind(c *gin.Context) string {
	kind, err := document.ParseKind(c.Param("kind"))
	if err != nil {
		return ""
	}
	return string(kind)
}
