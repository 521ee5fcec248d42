// Package telemetry wires OpenTelemetry tracing and metrics export over
// OTLP gRPC into the application.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// shutdownTimeout bounds provider shutdown regardless of the caller's
// context.
const shutdownTimeout = 10 * time.Second

// Config is shared by the tracer and meter providers.
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	ServiceVersion    string
	Insecure          bool
	ExportInterval    time.Duration // metric export interval, default 60s
}

// TracerProvider owns the SDK tracer provider and its lifecycle. With
// telemetry disabled it stays inert and hands out no-op tracers.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	logger   *zap.Logger
	config   Config
}

// NewTracerProvider builds the provider, registers it globally and
// installs W3C trace context propagation. A disabled config produces an
// inert provider and no error.
func NewTracerProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*TracerProvider, error) {
	tp := &TracerProvider{logger: logger, config: cfg}

	if !cfg.Enabled {
		logger.Info("Telemetry disabled, tracing is a no-op")
		return tp, nil
	}

	exporter, err := newTraceExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	tp.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SamplingRatio)),
	)

	otel.SetTracerProvider(tp.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Tracing initialized",
		zap.String("endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling", cfg.SamplingRatio),
		zap.String("service", cfg.ServiceName),
	)
	return tp, nil
}

// newTraceExporter dials the collector over gRPC. The connection comes
// up in the background, so an unreachable endpoint does not fail here.
func newTraceExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

// newResource describes the service to the collector.
func newResource(cfg Config) (*resource.Resource, error) {
	version := cfg.ServiceVersion
	if version == "" {
		version = "0.0.0"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create telemetry resource: %w", err)
	}
	return res, nil
}

// samplerFor picks a sampler for the configured ratio. The exact 0 and 1
// values get the dedicated samplers, everything else samples by trace ID.
func samplerFor(ratio float64) sdktrace.Sampler {
	switch ratio {
	case 1.0:
		return sdktrace.AlwaysSample()
	case 0.0:
		return sdktrace.NeverSample()
	}
	return sdktrace.TraceIDRatioBased(ratio)
}

// Shutdown flushes pending spans and stops the exporter.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := tp.provider.Shutdown(ctx); err != nil {
		tp.logger.Error("Tracer provider shutdown failed", zap.Error(err))
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}

	tp.logger.Info("Tracer provider stopped")
	return nil
}

// Tracer hands out a named tracer, falling back to the global provider
// when telemetry is disabled.
func (tp *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if tp.provider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return tp.provider.Tracer(name, opts...)
}

// IsEnabled reports whether spans are actually exported.
func (tp *TracerProvider) IsEnabled() bool {
	return tp.config.Enabled && tp.provider != nil
}

// GetConfig returns the configuration the provider was built with.
func (tp *TracerProvider) GetConfig() Config {
	return tp.config
}

// ForceFlush drains all spans that have not been exported yet.
func (tp *TracerProvider) ForceFlush(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	return tp.provider.ForceFlush(ctx)
}
