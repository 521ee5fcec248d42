package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey scopes the values this package stores in a context.
type contextKey string

const (
	// LoggerKey carries the request-scoped logger.
	LoggerKey contextKey = "logger"
	// RequestIDKey carries the request ID.
	RequestIDKey contextKey = "request_id"
)

// WithContext attaches the logger to the context.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger attached to the context. Contexts without
// one get a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID in the context and returns a logger
// that tags every entry with it.
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	tagged := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, tagged), tagged
}

// GetRequestID returns the request ID stored in the context, if any.
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}

// GetTraceID returns the active span's trace ID, or "" when the context
// carries no valid span.
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID returns the active span's span ID, or "" when the context
// carries no valid span.
func GetSpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}

// correlationFields collects the trace and request identifiers present in
// the context.
func correlationFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	return fields
}

// ContextLogger logs with automatic trace correlation: every entry carries
// the trace_id, span_id and request_id found in the context.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L wraps the context's logger in a ContextLogger, so call sites read
// logger.L(ctx).Info("message", zap.String("key", "value")).
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger builds a ContextLogger around an explicit logger rather than
// the one stored in the context.
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: logger}
}

// With returns a child ContextLogger carrying additional fields.
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

// Zap returns the underlying logger with correlation fields applied, for
// call sites that expect a plain *zap.Logger.
func (cl *ContextLogger) Zap() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	if fields := correlationFields(cl.ctx); len(fields) > 0 {
		l = l.With(fields...)
	}
	return l
}

// Debug logs at debug level with correlation fields.
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.Zap().Debug(msg, fields...)
}

// Info logs at info level with correlation fields.
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.Zap().Info(msg, fields...)
}

// Warn logs at warn level with correlation fields.
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.Zap().Warn(msg, fields...)
}

// Error logs at error level with correlation fields.
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.Zap().Error(msg, fields...)
}
