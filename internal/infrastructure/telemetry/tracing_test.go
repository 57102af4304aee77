package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/docflow/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// recordSpans installs an in-memory tracer provider for the duration of the test
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

type kindStringer struct{}

func (kindStringer) String() string { return "invoice" }

func TestStartServiceSpan(t *testing.T) {
	sr := recordSpans(t)
	id := uuid.New()

	_, span := telemetry.StartServiceSpan(context.Background(), "lifecycle", "transition",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentKind, kindStringer{}),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id),
		telemetry.WithAttribute(telemetry.SpanAttrBatchSize, 12),
	)
	telemetry.SetAttributes(span, telemetry.SpanAttrDocumentNumber, "INV-2026-00007", 42, "dropped")
	telemetry.SetOK(span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "lifecycle.transition", got.Name())
	assert.Equal(t, trace.SpanKindInternal, got.SpanKind())
	assert.Equal(t, codes.Ok, got.Status().Code)
	assert.Equal(t, telemetry.TracerName, got.InstrumentationScope().Name)

	attrs := attrMap(got.Attributes())
	assert.Equal(t, "invoice", attrs[telemetry.SpanAttrDocumentKind].AsString())
	assert.Equal(t, id.String(), attrs[telemetry.SpanAttrDocumentID].AsString())
	assert.Equal(t, int64(12), attrs[telemetry.SpanAttrBatchSize].AsInt64())
	assert.Equal(t, "INV-2026-00007", attrs[telemetry.SpanAttrDocumentNumber].AsString())
	assert.Len(t, attrs, 4)
}

func TestStartServiceSpan_Nesting(t *testing.T) {
	sr := recordSpans(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "lifecycle", "bulk_transition")
	_, child := telemetry.StartServiceSpan(ctx, "lifecycle", "transition")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}

func TestRecordError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus codes.Code
		wantEvents int
	}{
		{name: "error marks span failed", err: errors.New("invalid transition"), wantStatus: codes.Error, wantEvents: 1},
		{name: "nil error is ignored", err: nil, wantStatus: codes.Unset, wantEvents: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := recordSpans(t)
			_, span := telemetry.StartServiceSpan(context.Background(), "lifecycle", "convert")
			telemetry.RecordError(span, tt.err)
			span.End()

			spans := sr.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantStatus, spans[0].Status().Code)
			assert.Len(t, spans[0].Events(), tt.wantEvents)
		})
	}
}

func TestSpanHelpers_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("boom"))
		telemetry.SetOK(nil)
	})
}
