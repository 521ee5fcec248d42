package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBInstrumentConfig holds configuration for database instrumentation.
type DBInstrumentConfig struct {
	Traces             bool
	Metrics            bool
	SlowQueryThreshold time.Duration // default 200ms
	PoolStatsInterval  time.Duration // default 15s
}

// InstrumentDatabase registers query tracing and metrics on a GORM handle.
// Spans come from the otelgorm plugin; a shared set of callbacks enriches
// them with row counts and slow query events and feeds the query metrics.
// The returned DBMetrics is nil when metrics are disabled; otherwise call
// StartPoolStats after startup and Stop on shutdown.
func InstrumentDatabase(db *gorm.DB, tp *TracerProvider, mp *MeterProvider, cfg DBInstrumentConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold == 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval == 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}

	tracing := cfg.Traces && tp != nil && tp.IsEnabled()
	if tracing {
		plugin := otelgorm.NewPlugin(
			otelgorm.WithDBName(db.Dialector.Name()),
			// Query parameters stay out of spans
			otelgorm.WithoutQueryVariables(),
		)
		if err := db.Use(plugin); err != nil {
			return nil, err
		}
	}

	var metrics *DBMetrics
	if cfg.Metrics && mp != nil && mp.IsEnabled() {
		m, err := newDBMetrics(mp.Meter("db.client"), cfg, logger)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		m.sqlDB = sqlDB
		metrics = m
	}

	if !tracing && metrics == nil {
		logger.Debug("Database instrumentation disabled")
		return nil, nil
	}

	inst := &dbInstrumentation{
		slowQueryThreshold: cfg.SlowQueryThreshold,
		metrics:            metrics,
	}
	if err := inst.register(db); err != nil {
		return nil, err
	}

	logger.Info("Database instrumentation registered",
		zap.Bool("traces", tracing),
		zap.Bool("metrics", metrics != nil),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)

	return metrics, nil
}

// dbInstrumentation stamps query start times and observes every completed
// statement once, serving both the span callbacks and the metric recorder.
type dbInstrumentation struct {
	slowQueryThreshold time.Duration
	metrics            *DBMetrics // nil when metrics are disabled
}

func (i *dbInstrumentation) register(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("telemetry:before_create", i.before); err != nil {
		return err
	}
	if err := db.Callback().Query().Before("gorm:query").Register("telemetry:before_query", i.before); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("telemetry:before_update", i.before); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("telemetry:before_delete", i.before); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("telemetry:before_row", i.before); err != nil {
		return err
	}
	if err := db.Callback().Raw().Before("gorm:raw").Register("telemetry:before_raw", i.before); err != nil {
		return err
	}

	if err := db.Callback().Create().After("gorm:create").Register("telemetry:after_create", i.after("INSERT")); err != nil {
		return err
	}
	if err := db.Callback().Query().After("gorm:query").Register("telemetry:after_query", i.after("SELECT")); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("telemetry:after_update", i.after("UPDATE")); err != nil {
		return err
	}
	if err := db.Callback().Delete().After("gorm:delete").Register("telemetry:after_delete", i.after("DELETE")); err != nil {
		return err
	}
	if err := db.Callback().Row().After("gorm:row").Register("telemetry:after_row", i.afterDetect); err != nil {
		return err
	}
	if err := db.Callback().Raw().After("gorm:raw").Register("telemetry:after_raw", i.afterDetect); err != nil {
		return err
	}

	return nil
}

func (i *dbInstrumentation) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, dbQueryStartKey, time.Now())
	}
}

func (i *dbInstrumentation) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) { i.observe(db, operation) }
}

// afterDetect handles Row and Raw statements where the operation type is
// only known from the SQL text.
func (i *dbInstrumentation) afterDetect(db *gorm.DB) {
	i.observe(db, detectOperation(db.Statement.SQL.String()))
}

func (i *dbInstrumentation) observe(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}

	var elapsed time.Duration
	if start, ok := ctx.Value(dbQueryStartKey).(time.Time); ok {
		elapsed = time.Since(start)
	}
	slow := elapsed > i.slowQueryThreshold

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		if db.Statement.RowsAffected >= 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		}
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		// Not-found is an expected outcome, not a span error
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}
		if slow {
			span.SetAttributes(attribute.Bool("db.slow_query", true))
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", i.slowQueryThreshold.Milliseconds()),
			))
		}
	}

	if i.metrics != nil {
		i.metrics.recordQuery(ctx, operation, db.Statement.Table, elapsed, slow)
	}
}

// detectOperation attempts to detect the SQL operation type from the query.
func detectOperation(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))

	switch {
	case strings.HasPrefix(sql, "SELECT"):
		return "SELECT"
	case strings.HasPrefix(sql, "INSERT"):
		return "INSERT"
	case strings.HasPrefix(sql, "UPDATE"):
		return "UPDATE"
	case strings.HasPrefix(sql, "DELETE"):
		return "DELETE"
	default:
		return "OTHER"
	}
}

// dbQueryStartKey is the context key for storing query start time.
type dbContextKey string

const dbQueryStartKey dbContextKey = "telemetry_query_start"

// DBMetrics holds database metric instruments and the connection pool
// stats collector.
type DBMetrics struct {
	poolConnections    *Gauge     // db_pool_connections with state label
	poolConnectionsMax *Gauge     // db_pool_connections_max
	queryTotal         *Counter   // db_query_total
	queryDuration      *Histogram // db_query_duration_seconds
	slowQueryTotal     *Counter   // db_slow_query_total

	sqlDB    *sql.DB
	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newDBMetrics(meter metric.Meter, cfg DBInstrumentConfig, logger *zap.Logger) (*DBMetrics, error) {
	poolConnections, err := NewGauge(
		meter,
		"db_pool_connections",
		"Number of connections in the pool by state",
		"{connection}",
	)
	if err != nil {
		return nil, err
	}

	poolConnectionsMax, err := NewGauge(
		meter,
		"db_pool_connections_max",
		"Maximum number of connections in the pool",
		"{connection}",
	)
	if err != nil {
		return nil, err
	}

	queryTotal, err := NewCounter(
		meter,
		"db_query_total",
		"Total number of database queries by operation type",
		"{query}",
	)
	if err != nil {
		return nil, err
	}

	queryDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	slowQueryTotal, err := NewCounter(
		meter,
		"db_slow_query_total",
		"Total number of slow database queries",
		"{query}",
	)
	if err != nil {
		return nil, err
	}

	return &DBMetrics{
		poolConnections:    poolConnections,
		poolConnectionsMax: poolConnectionsMax,
		queryTotal:         queryTotal,
		queryDuration:      queryDuration,
		slowQueryTotal:     slowQueryTotal,
		interval:           cfg.PoolStatsInterval,
		logger:             logger,
		stopCh:             make(chan struct{}),
	}, nil
}

func (m *DBMetrics) recordQuery(ctx context.Context, operation, table string, duration time.Duration, slow bool) {
	if operation == "" {
		operation = "OTHER"
	}

	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(operation))

	if slow {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// StartPoolStats starts a goroutine that periodically records connection
// pool statistics. Call Stop to terminate.
func (m *DBMetrics) StartPoolStats(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.collectPoolStats(ctx)
		for {
			select {
			case <-ticker.C:
				m.collectPoolStats(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	m.logger.Info("Started database pool stats collection",
		zap.Duration("interval", m.interval),
	)
}

func (m *DBMetrics) collectPoolStats(ctx context.Context) {
	stats := m.sqlDB.Stats()

	m.poolConnectionsMax.Record(ctx, int64(stats.MaxOpenConnections))
	// OpenConnections = Idle + InUse; recorded separately for pool
	// utilization dashboards
	m.poolConnections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConnections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConnections.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop stops the pool stats collector. Safe to call multiple times.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
		m.logger.Debug("Database metrics stopped")
	})
}
