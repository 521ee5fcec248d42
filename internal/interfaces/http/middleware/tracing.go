package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps request IDs copied into trace attributes so an
// oversized header cannot bloat spans.
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName identifies the service on server spans.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
}

// Tracing returns OpenTelemetry tracing middleware. Span names follow
// "METHOD route_pattern" (e.g. "GET /api/v1/system/info"). Register
// SpanEnrichment right after it to tag spans with request metadata.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnrichment tags the active server span with the request ID and marks
// 4xx/5xx responses with error status. It must run inside the Tracing
// middleware's chain; the span has already ended once Tracing returns.
func SpanEnrichment() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID := traceRequestID(c); requestID != "" {
				span.SetAttributes(attribute.String("request_id", requestID))
			}
		}

		c.Next()

		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}

		var message string
		switch {
		case statusCode >= http.StatusInternalServerError:
			message = "Internal Server Error"
		case statusCode == http.StatusUnauthorized:
			message = "Unauthorized"
		case statusCode == http.StatusForbidden:
			message = "Forbidden"
		case statusCode == http.StatusNotFound:
			message = "Not Found"
		default:
			message = "Client Error"
		}

		span.SetStatus(codes.Error, message)
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
}

// traceRequestID returns the request ID with header fallback truncated to a
// safe length.
func traceRequestID(c *gin.Context) string {
	if id := c.GetString(ContextRequestIDKey); id != "" {
		return id
	}
	headerID := c.GetHeader(HeaderRequestID)
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}
