package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	log := zap.NewExample()
	assert.Same(t, log, FromContext(WithContext(context.Background(), log)))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestFor(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	withSpan := func(ctx context.Context) context.Context {
		return trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
		}))
	}

	tests := []struct {
		name string
		ctx  context.Context
		want map[string]any
	}{
		{name: "bare context", ctx: context.Background(), want: map[string]any{}},
		{
			name: "request with span",
			ctx:  withSpan(WithRequestID(context.Background(), "req-9")),
			want: map[string]any{"trace_id": traceID.String(), "span_id": spanID.String(), "request_id": "req-9"},
		},
		{
			name: "sweep run",
			ctx:  WithOperation(context.Background(), "sweep-overdue"),
			want: map[string]any{"operation": "sweep-overdue"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.InfoLevel)
			For(tt.ctx, zap.New(core)).Info("invoice marked overdue")

			require.Equal(t, 1, recorded.Len())
			assert.Equal(t, tt.want, recorded.All()[0].ContextMap())
		})
	}
}

func TestGetRequestID(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Equal(t, "req-1", GetRequestID(WithRequestID(context.Background(), "req-1")))
}
