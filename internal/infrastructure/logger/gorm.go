package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger adapts zap to gorm's logger interface. Traced queries carry the
// request and trace IDs from the context so SQL lines correlate with the
// access log.
type GormLogger struct {
	logger                    *zap.Logger
	sugar                     *zap.SugaredLogger
	logLevel                  gormlogger.LogLevel
	slowThreshold             time.Duration
	ignoreRecordNotFoundError bool
}

// GormLoggerOption configures a GormLogger.
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold overrides the slow query threshold. Zero disables slow
// query logging.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithIgnoreRecordNotFoundError controls whether gorm.ErrRecordNotFound is
// logged as an error. Lookups that legitimately miss are noise, so it is
// ignored unless turned on.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.ignoreRecordNotFoundError = ignore
	}
}

// NewGormLogger wraps zapLogger for use as a gorm logger. Queries slower
// than 200ms log as warnings unless WithSlowThreshold changes the cutoff.
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	named := zapLogger.Named("gorm")
	gl := &GormLogger{
		logger:                    named,
		sugar:                     named.Sugar(),
		logLevel:                  level,
		slowThreshold:             200 * time.Millisecond,
		ignoreRecordNotFoundError: true,
	}

	for _, opt := range opts {
		opt(gl)
	}

	return gl
}

// LogMode returns a copy of the logger at the given level.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

func (l *GormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.logLevel >= gormlogger.Info {
		l.sugar.Infof(msg, args...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.logLevel >= gormlogger.Warn {
		l.sugar.Warnf(msg, args...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.logLevel >= gormlogger.Error {
		l.sugar.Errorf(msg, args...)
	}
}

// Trace logs one executed statement. Failed queries log as errors, queries
// over the slow threshold as warnings, and everything else at debug when the
// gorm level allows it.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := l.queryFields(ctx, elapsed, rows, sql)

	if err != nil && l.logLevel >= gormlogger.Error {
		if l.ignoreRecordNotFoundError && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		l.logger.Error("SQL Error", append(fields, zap.Error(err))...)
		return
	}

	if l.slow(elapsed) && l.logLevel >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf("SLOW SQL >= %v", l.slowThreshold), fields...)
		return
	}

	if l.logLevel >= gormlogger.Info {
		l.logger.Debug("SQL Query", fields...)
	}
}

func (l *GormLogger) slow(elapsed time.Duration) bool {
	return l.slowThreshold != 0 && elapsed > l.slowThreshold
}

// queryFields builds the structured fields for a traced query, including
// correlation IDs when the context carries them.
func (l *GormLogger) queryFields(ctx context.Context, elapsed time.Duration, rows int64, sql string) []zap.Field {
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}

	return fields
}

var gormLevelNames = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// MapGormLogLevel translates the application log level into gorm's. Unknown
// names get Warn so a typo never silences slow-query logging.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevelNames[level]; ok {
		return l
	}
	return gormlogger.Warn
}
