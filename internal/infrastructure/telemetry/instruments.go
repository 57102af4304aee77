package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys shared by HTTP and database instruments
var (
	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrHTTPRoute      = attribute.Key("http.route")

	AttrDBOperation = attribute.Key("db.operation")
	AttrDBTable     = attribute.Key("db.table")
	AttrDBState     = attribute.Key("db.pool.state")
)

// Histogram bucket boundaries in seconds
var (
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	DBDurationBuckets   = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
)

// Counter is a monotonically increasing int64 instrument
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a Counter on meter
func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return &Counter{counter: c}, nil
}

// Add increments the counter by value. Zero is skipped.
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	if value == 0 {
		return
	}
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Inc increments the counter by one
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Histogram records a float64 distribution
type Histogram struct {
	histogram metric.Float64Histogram
}

// HistogramOpts describes a histogram. Boundaries are optional.
type HistogramOpts struct {
	Name        string
	Description string
	Unit        string
	Boundaries  []float64
}

// NewHistogram creates a Histogram on meter
func NewHistogram(meter metric.Meter, opts HistogramOpts) (*Histogram, error) {
	hopts := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(opts.Boundaries) > 0 {
		hopts = append(hopts, metric.WithExplicitBucketBoundaries(opts.Boundaries...))
	}
	h, err := meter.Float64Histogram(opts.Name, hopts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", opts.Name, err)
	}
	return &Histogram{histogram: h}, nil
}

// Record records value
func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// RecordDuration records d in seconds
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// Gauge records the current int64 value
type Gauge struct {
	gauge metric.Int64Gauge
}

// NewGauge creates a Gauge on meter
func NewGauge(meter metric.Meter, name, description, unit string) (*Gauge, error) {
	g, err := meter.Int64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge %s: %w", name, err)
	}
	return &Gauge{gauge: g}, nil
}

// Record sets the gauge to value
func (g *Gauge) Record(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	g.gauge.Record(ctx, value, metric.WithAttributes(attrs...))
}
