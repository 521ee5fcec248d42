package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testSpanContext(t *testing.T) trace.SpanContext {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
}

func TestWithContext(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	ctxWithLogger := WithContext(ctx, logger)

	retrievedLogger := FromContext(ctxWithLogger)
	assert.NotNil(t, retrievedLogger)
}

func TestFromContext_NotFound(t *testing.T) {
	ctx := context.Background()
	logger := FromContext(ctx)

	// Should return a no-op logger
	assert.NotNil(t, logger)
}

func TestWithRequestID(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	requestID := "req-123"

	newCtx, newLogger := WithRequestID(ctx, logger, requestID)

	assert.NotNil(t, newCtx)
	assert.NotNil(t, newLogger)
	assert.Equal(t, requestID, GetRequestID(newCtx))
}

func TestGetRequestID_NotFound(t *testing.T) {
	ctx := context.Background()
	requestID := GetRequestID(ctx)
	assert.Empty(t, requestID)
}

func TestGetTraceID(t *testing.T) {
	t.Run("empty without span", func(t *testing.T) {
		assert.Empty(t, GetTraceID(context.Background()))
		assert.Empty(t, GetSpanID(context.Background()))
	})

	t.Run("returns ids from span context", func(t *testing.T) {
		sc := testSpanContext(t)
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		assert.Equal(t, sc.TraceID().String(), GetTraceID(ctx))
		assert.Equal(t, sc.SpanID().String(), GetSpanID(ctx))
	})
}

func TestContextLogger(t *testing.T) {
	t.Run("L falls back to no-op without logger", func(t *testing.T) {
		cl := L(context.Background())
		assert.NotNil(t, cl)
		// Must not panic
		cl.Info("hello")
	})

	t.Run("injects request id into entries", func(t *testing.T) {
		core, observed := observer.New(zap.InfoLevel)
		base := zap.New(core)

		ctx, _ := WithRequestID(context.Background(), base, "req-42")
		L(ctx).Info("doing work")

		entries := observed.All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-42", fields["request_id"])
	})

	t.Run("injects trace correlation into entries", func(t *testing.T) {
		core, observed := observer.New(zap.InfoLevel)
		base := zap.New(core)

		sc := testSpanContext(t)
		ctx := trace.ContextWithSpanContext(WithContext(context.Background(), base), sc)
		L(ctx).Warn("slow path")

		entries := observed.All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, sc.TraceID().String(), fields["trace_id"])
		assert.Equal(t, sc.SpanID().String(), fields["span_id"])
	})

	t.Run("With adds fields to children", func(t *testing.T) {
		core, observed := observer.New(zap.InfoLevel)
		base := zap.New(core)

		cl := WithLogger(context.Background(), base).With(zap.String("component", "worker"))
		cl.Info("started")

		entries := observed.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "worker", entries[0].ContextMap()["component"])
	})

	t.Run("Zap returns enriched logger", func(t *testing.T) {
		core, observed := observer.New(zap.InfoLevel)
		base := zap.New(core)

		ctx, _ := WithRequestID(context.Background(), base, "req-99")
		L(ctx).Zap().Info("direct")

		entries := observed.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "req-99", entries[0].ContextMap()["request_id"])
	})
}
