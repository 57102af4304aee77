// Package telemetry wires OpenTelemetry traces, metrics and logs for the
// document engine and holds the lifecycle instruments.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Config configures the OTLP gRPC exporters shared by traces, metrics and logs
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	Insecure          bool // plaintext gRPC, development only
	ServiceName       string
	ServiceVersion    string
	SamplingRatio     float64       // traces, 0..1
	MetricsInterval   time.Duration // export period, default 60s
}

func (c Config) resource() (*resource.Resource, error) {
	version := c.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(c.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdown(ctx context.Context, what string, s shutdowner, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		log.Error("Error shutting down "+what, zap.Error(err))
		return fmt.Errorf("failed to shutdown %s: %w", what, err)
	}
	log.Info("OpenTelemetry " + what + " shut down")
	return nil
}

// TracerProvider owns the SDK tracer provider. With telemetry disabled it
// holds nothing and spans go to the global no-op provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	logger   *zap.Logger
}

// NewTracerProvider installs a batching OTLP tracer provider and the W3C
// propagators as globals when cfg.Enabled
func NewTracerProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*TracerProvider, error) {
	tp := &TracerProvider{logger: logger}
	if !cfg.Enabled {
		logger.Info("Telemetry disabled, using no-op tracer provider")
		return tp, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, err
	}

	tp.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplingRatio)),
	)
	otel.SetTracerProvider(tp.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("OpenTelemetry TracerProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.String("service_name", cfg.ServiceName),
	)
	return tp, nil
}

// Tracer returns a named tracer, falling back to the global provider
func (tp *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if tp.provider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return tp.provider.Tracer(name, opts...)
}

// IsEnabled reports whether spans are exported
func (tp *TracerProvider) IsEnabled() bool { return tp.provider != nil }

// Shutdown flushes pending spans
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	return shutdown(ctx, "TracerProvider", tp.provider, tp.logger)
}

// MeterProvider owns the SDK meter provider
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
}

// NewMeterProvider installs a periodic OTLP meter provider as global when cfg.Enabled
func NewMeterProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}
	if !cfg.Enabled {
		logger.Info("Metrics disabled, using no-op meter provider")
		return mp, nil
	}

	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, err
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.provider)

	logger.Info("OpenTelemetry MeterProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Duration("export_interval", interval),
	)
	return mp, nil
}

// NewMeterProviderWithReader builds a provider around reader, typically a
// sdkmetric.ManualReader in tests
func NewMeterProviderWithReader(reader sdkmetric.Reader, logger *zap.Logger) *MeterProvider {
	return &MeterProvider{
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		logger:   logger,
	}
}

// Meter returns a named meter, falling back to the global provider
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// IsEnabled reports whether metrics are exported
func (mp *MeterProvider) IsEnabled() bool { return mp.provider != nil }

// Shutdown flushes pending metrics
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	return shutdown(ctx, "MeterProvider", mp.provider, mp.logger)
}

// LoggerProvider owns the SDK logger provider fed by the zap bridge
type LoggerProvider struct {
	provider *sdklog.LoggerProvider
	logger   *zap.Logger
}

// NewLoggerProvider installs a batching OTLP logger provider as global when cfg.Enabled
func NewLoggerProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{logger: logger}
	if !cfg.Enabled {
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, err
	}

	lp.provider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.provider)

	logger.Info("OpenTelemetry LoggerProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
	)
	return lp, nil
}

// IsEnabled reports whether log records are exported
func (lp *LoggerProvider) IsEnabled() bool { return lp.provider != nil }

// Shutdown flushes pending log records
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp.provider == nil {
		return nil
	}
	return shutdown(ctx, "LoggerProvider", lp.provider, lp.logger)
}
