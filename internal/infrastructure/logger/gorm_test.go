package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

// observedGormLogger builds a GormLogger whose output lands in an observer
// for assertions.
func observedGormLogger(level zapcore.Level, gormLevel gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(level)
	return NewGormLogger(zap.New(core), gormLevel, opts...), recorded
}

func queryFunc(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestNewGormLogger(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		gormLog, _ := observedGormLogger(zapcore.InfoLevel, gormlogger.Info)

		require.NotNil(t, gormLog)
		assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	})

	t.Run("options override threshold and not-found handling", func(t *testing.T) {
		gormLog, _ := observedGormLogger(zapcore.InfoLevel, gormlogger.Info,
			WithSlowThreshold(500*time.Millisecond),
			WithIgnoreRecordNotFoundError(false),
		)

		assert.Equal(t, 500*time.Millisecond, gormLog.slowThreshold)
		assert.False(t, gormLog.ignoreRecordNotFoundError)
	})

	t.Run("satisfies the gorm logger interface", func(t *testing.T) {
		gormLog, _ := observedGormLogger(zapcore.InfoLevel, gormlogger.Info)
		var _ gormlogger.Interface = gormLog
	})
}

func TestGormLoggerLogMode(t *testing.T) {
	gormLog, _ := observedGormLogger(zapcore.InfoLevel, gormlogger.Info)

	changed := gormLog.LogMode(gormlogger.Warn)

	// LogMode clones; the receiver keeps its level.
	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	changedLog, ok := changed.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, changedLog.logLevel)
}

func TestGormLoggerLevels(t *testing.T) {
	t.Run("info is formatted and forwarded", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.InfoLevel, gormlogger.Info)

		gormLog.Info(context.Background(), "migrating table %s", "items")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "migrating table items")
	})

	t.Run("silent level suppresses info", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.InfoLevel, gormlogger.Silent)

		gormLog.Info(context.Background(), "ignored")

		assert.Empty(t, recorded.All())
	})

	t.Run("warn level and message", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.WarnLevel, gormlogger.Warn)

		gormLog.Warn(context.Background(), "pool nearly exhausted: %d", 2)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
		assert.Contains(t, logs[0].Message, "pool nearly exhausted: 2")
	})

	t.Run("error level", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.ErrorLevel, gormlogger.Error)

		gormLog.Error(context.Background(), "connect failed")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})
}

func TestGormLoggerTrace(t *testing.T) {
	t.Run("failed query logs an error", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.ErrorLevel, gormlogger.Error)

		gormLog.Trace(context.Background(), time.Now(), queryFunc("SELECT * FROM items", 0), errors.New("broken pipe"))

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "SQL Error")
	})

	t.Run("record-not-found is skipped when configured", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.ErrorLevel, gormlogger.Error,
			WithIgnoreRecordNotFoundError(true),
		)

		gormLog.Trace(context.Background(), time.Now(), queryFunc("SELECT * FROM items WHERE id = ?", 0), gormlogger.ErrRecordNotFound)

		assert.Empty(t, recorded.All())
	})

	t.Run("queries over the threshold log as slow", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.WarnLevel, gormlogger.Warn,
			WithSlowThreshold(time.Nanosecond),
		)

		began := time.Now().Add(-time.Second)
		gormLog.Trace(context.Background(), began, queryFunc("SELECT * FROM items", 10), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "SLOW SQL")
	})

	t.Run("normal queries log at debug", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.DebugLevel, gormlogger.Info)

		gormLog.Trace(context.Background(), time.Now(), queryFunc("SELECT * FROM items", 5), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "SQL Query")
	})

	t.Run("silent level logs nothing", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.DebugLevel, gormlogger.Silent)

		gormLog.Trace(context.Background(), time.Now(), queryFunc("SELECT * FROM items", 5), nil)

		assert.Empty(t, recorded.All())
	})

	t.Run("request id from the context is attached", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.DebugLevel, gormlogger.Info)
		ctx := context.WithValue(context.Background(), RequestIDKey, "req-7f3a")

		gormLog.Trace(ctx, time.Now(), queryFunc("SELECT * FROM items", 5), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "req-7f3a", logs[0].ContextMap()["request_id"])
	})

	t.Run("trace id from an active span is attached", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.DebugLevel, gormlogger.Info)

		sc := testSpanContext(t)
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		gormLog.Trace(ctx, time.Now(), queryFunc("SELECT * FROM items", 5), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, sc.TraceID().String(), logs[0].ContextMap()["trace_id"])
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
