package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/apibase/backend/internal/infrastructure/telemetry"
)

// HTTPMetricsConfig configures the HTTP metrics middleware.
type HTTPMetricsConfig struct {
	// MeterProvider supplies the meter the instruments register on.
	MeterProvider *telemetry.MeterProvider
	// Enabled turns collection on.
	Enabled bool
}

// passthrough stands in for any middleware whose feature is turned off.
func passthrough(c *gin.Context) {
	c.Next()
}

// httpMetrics holds the HTTP server instruments.
type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	requestSize     *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

// sizeBuckets covers typical JSON payload sizes, 100 B to 1 MB.
var sizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000}

// newHTTPMetrics registers the server instruments on the meter.
// Registration stops at the first failure.
func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	m := &httpMetrics{}

	var err error
	histogram := func(name, description, unit string, buckets []float64) *telemetry.Histogram {
		if err != nil {
			return nil
		}
		var h *telemetry.Histogram
		h, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
			Name:        name,
			Description: description,
			Unit:        unit,
			Boundaries:  buckets,
		})
		return h
	}

	m.requestTotal, err = telemetry.NewCounter(meter,
		"http_server_request_total", "Total number of HTTP requests", "{request}")

	m.requestDuration = histogram("http_server_request_duration_seconds",
		"HTTP request latency distribution in seconds", "s", telemetry.HTTPDurationBuckets)
	m.requestSize = histogram("http_server_request_size_bytes",
		"HTTP request body size distribution in bytes", "By", sizeBuckets)
	m.responseSize = histogram("http_server_response_size_bytes",
		"HTTP response body size distribution in bytes", "By", sizeBuckets)

	if err == nil {
		m.activeRequests, err = meter.Int64UpDownCounter(
			"http_server_active_requests",
			metric.WithDescription("Number of currently active HTTP requests"),
			metric.WithUnit("{request}"),
		)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// HTTPMetrics records request counts, latency, body sizes and in-flight
// requests. Collection is skipped entirely when disabled or when the
// provider exports nothing.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passthrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), true)
}

// HTTPMetricsWithMeter builds the middleware over an existing meter.
// Instrument registration failures degrade to a no-op middleware.
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return passthrough
	}

	m, err := newHTTPMetrics(meter)
	if err != nil {
		return passthrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		requestSize := c.Request.ContentLength

		m.activeRequests.Add(ctx, 1)
		c.Next()
		m.activeRequests.Add(ctx, -1)

		route := routePattern(c)
		method := c.Request.Method

		m.requestTotal.Inc(ctx,
			telemetry.AttrHTTPMethod.String(method),
			telemetry.AttrHTTPRoute.String(route),
			telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()),
		)

		// Duration and sizes are labeled by method and route only; the
		// status code would multiply series per route.
		attrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(method),
			telemetry.AttrHTTPRoute.String(route),
		}
		m.requestDuration.RecordDuration(ctx, time.Since(start), attrs...)
		if requestSize > 0 {
			m.requestSize.Record(ctx, float64(requestSize), attrs...)
		}
		if size := c.Writer.Size(); size > 0 {
			m.responseSize.Record(ctx, float64(size), attrs...)
		}
	}
}

// routePattern names the series for a request: the matched route
// pattern, or "unknown" when no route matched.
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
