package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Gin context keys shared with the HTTP middleware layer.
const (
	ginLoggerKey    = "logger"
	ginRequestIDKey = "request_id"
)

// GinMiddleware returns a gin middleware that writes one structured access
// log entry per request and plants a request-scoped logger in both the gin
// context and the request context.
func GinMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetString(ginRequestIDKey)

		reqLogger := logger.With(
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Set(ginLoggerKey, reqLogger)

		// Propagate through the request context so logger.L(ctx) finds it
		// below the HTTP layer.
		ctx := WithContext(c.Request.Context(), reqLogger)
		if requestID != "" {
			ctx, _ = WithRequestID(ctx, reqLogger, requestID)
		}
		c.Request = c.Request.WithContext(ctx)

		query := c.Request.URL.RawQuery
		c.Next()

		status := c.Writer.Status()
		write := reqLogger.Info
		switch {
		case status >= http.StatusInternalServerError:
			write = reqLogger.Error
		case status >= http.StatusBadRequest:
			write = reqLogger.Warn
		}
		write("HTTP Request", accessFields(c, status, query, time.Since(start))...)
	}
}

// accessFields assembles the variable part of an access log entry. Method
// and path already ride on the request-scoped logger.
func accessFields(c *gin.Context, status int, query string, latency time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.Duration("latency", latency),
		zap.String("client_ip", c.ClientIP()),
		zap.String("user_agent", c.Request.UserAgent()),
		zap.Int("body_size", c.Writer.Size()),
	}
	if query != "" {
		fields = append(fields, zap.String("query", query))
	}
	if len(c.Errors) > 0 {
		fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
	}
	return fields
}

// Recovery returns a gin middleware that turns panics into logged 500
// responses with the standard JSON error body.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			logger.Error("Panic recovered",
				zap.String("request_id", c.GetString(ginRequestIDKey)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("error", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   gin.H{"code": "ERR_INTERNAL", "message": "Internal server error"},
			})
		}()
		c.Next()
	}
}

// GetGinLogger returns the request-scoped logger planted by GinMiddleware,
// or a no-op logger outside the middleware chain.
func GetGinLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(ginLoggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}
