package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of lifecycle spans
const TracerName = "github.com/erp/docflow"

// Span attribute keys for document lifecycle spans.
// Metric attributes are attribute.Key values in lifecycle_metrics.go.
const (
	SpanAttrDocumentKind   = "document.kind"
	SpanAttrDocumentID     = "document.id"
	SpanAttrDocumentNumber = "document.number"
	SpanAttrAction         = "document.action"
	SpanAttrTargetKind     = "document.target_kind"
	SpanAttrBatchSize      = "bulk.size"
	SpanAttrSweep          = "sweep"
)

// SpanOption adds start attributes to a service span
type SpanOption func(*[]attribute.KeyValue)

// WithAttribute adds an attribute to the span
func WithAttribute(key string, value any) SpanOption {
	return func(attrs *[]attribute.KeyValue) {
		*attrs = append(*attrs, toAttribute(key, value))
	}
}

// StartServiceSpan starts an internal span named {service}.{method}, e.g.
// "lifecycle.transition". The caller ends it.
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	var attrs []attribute.KeyValue
	for _, opt := range opts {
		opt(&attrs)
	}

	startOpts := []trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindInternal)}
	if len(attrs) > 0 {
		startOpts = append(startOpts, trace.WithAttributes(attrs...))
	}
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, service+"."+method, startOpts...)
}

// SetAttributes adds alternating key, value pairs to span.
// Pairs whose key is not a string are dropped.
func SetAttributes(span trace.Span, keyValues ...any) {
	if span == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		if key, ok := keyValues[i].(string); ok {
			attrs = append(attrs, toAttribute(key, keyValues[i+1]))
		}
	}
	span.SetAttributes(attrs...)
}

// RecordError records err on span and marks it failed
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetOK marks span as successful
func SetOK(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
