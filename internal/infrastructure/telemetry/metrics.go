package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// defaultExportInterval applies when the config leaves ExportInterval unset.
const defaultExportInterval = 60 * time.Second

// MeterProvider owns the SDK meter provider and its OTLP export pipeline.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
	config   Config
}

// NewMeterProvider creates a MeterProvider exporting over OTLP gRPC. When
// metrics are disabled the returned provider hands out meters from the
// global no-op provider and its lifecycle methods do nothing.
func NewMeterProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger, config: cfg}

	if !cfg.Enabled {
		logger.Info("Telemetry disabled, metrics are a no-op")
		return mp, nil
	}

	reader, err := newPeriodicReader(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.provider)

	logger.Info("Metrics export initialized",
		zap.String("endpoint", cfg.CollectorEndpoint),
		zap.Duration("export_interval", exportInterval(cfg)),
		zap.String("service", cfg.ServiceName),
	)

	return mp, nil
}

// newPeriodicReader builds the OTLP exporter wrapped in a periodic reader.
func newPeriodicReader(ctx context.Context, cfg Config) (sdkmetric.Reader, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP metrics exporter: %w", err)
	}

	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval(cfg))), nil
}

func exportInterval(cfg Config) time.Duration {
	if cfg.ExportInterval > 0 {
		return cfg.ExportInterval
	}
	return defaultExportInterval
}

// Shutdown flushes pending metrics and stops the exporter.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := mp.provider.Shutdown(ctx); err != nil {
		mp.logger.Error("Meter provider shutdown failed", zap.Error(err))
		return fmt.Errorf("shutdown meter provider: %w", err)
	}

	mp.logger.Info("Meter provider stopped")
	return nil
}

// Meter returns a named meter, falling back to the global provider when
// metrics are disabled.
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// IsEnabled reports whether metrics are actually exported.
func (mp *MeterProvider) IsEnabled() bool {
	return mp.config.Enabled && mp.provider != nil
}

// GetConfig returns the configuration the provider was built with.
func (mp *MeterProvider) GetConfig() Config {
	return mp.config
}

// ForceFlush pushes all accumulated metrics to the collector right away.
func (mp *MeterProvider) ForceFlush(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	return mp.provider.ForceFlush(ctx)
}
