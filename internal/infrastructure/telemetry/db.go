package telemetry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "docflow:query_start"

// DBConfig configures database instrumentation
type DBConfig struct {
	// System is the db.system attribute, e.g. "postgresql" or "sqlite"
	System string
	// Tracing registers the otelgorm span plugin
	Tracing bool
	// FullSQL keeps bound parameters in span statements. Never enable in production.
	FullSQL            bool
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
}

// DBInstrumentation is a gorm plugin recording query counts, durations and
// slow queries for the document tables, plus connection pool gauges.
// Statements touching a document table carry the document.kind attribute.
type DBInstrumentation struct {
	db     *gorm.DB
	cfg    DBConfig
	logger *zap.Logger

	queries     *Counter
	slowQueries *Counter
	duration    *Histogram
	poolConns   *Gauge
	poolWaits   *Gauge

	stopCh   chan struct{}
	stopOnce sync.Once
}

// InstrumentDB attaches tracing and metrics to db. Metrics are skipped when
// mp is nil or disabled; tracing follows cfg.Tracing.
func InstrumentDB(db *gorm.DB, mp *MeterProvider, cfg DBConfig, logger *zap.Logger) (*DBInstrumentation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}
	in := &DBInstrumentation{db: db, cfg: cfg, logger: logger, stopCh: make(chan struct{})}

	if cfg.Tracing {
		opts := []otelgorm.Option{
			otelgorm.WithAttributes(attribute.String("db.system", cfg.System)),
		}
		if !cfg.FullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, err
		}
	}

	if mp != nil && mp.IsEnabled() {
		if err := in.initInstruments(mp); err != nil {
			return nil, err
		}
	}
	if err := db.Use(in); err != nil {
		return nil, err
	}

	logger.Info("Database instrumentation enabled",
		zap.String("db_system", cfg.System),
		zap.Bool("tracing", cfg.Tracing),
		zap.Bool("metrics", in.queries != nil),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)
	return in, nil
}

func (in *DBInstrumentation) initInstruments(mp *MeterProvider) error {
	meter := mp.Meter(TracerName + "/db")
	var err error
	if in.queries, err = NewCounter(meter, "docflow_db_queries_total", "Database statements executed", "{queries}"); err != nil {
		return err
	}
	if in.slowQueries, err = NewCounter(meter, "docflow_db_slow_queries_total", "Statements slower than the threshold", "{queries}"); err != nil {
		return err
	}
	if in.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "docflow_db_query_duration_seconds",
		Description: "Statement duration",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return err
	}
	if in.poolConns, err = NewGauge(meter, "docflow_db_pool_connections", "Connections by pool state", "{connections}"); err != nil {
		return err
	}
	in.poolWaits, err = NewGauge(meter, "docflow_db_pool_wait_count", "Total waits for a pooled connection", "{waits}")
	return err
}

// Name implements gorm.Plugin
func (in *DBInstrumentation) Name() string { return "docflow:instrumentation" }

// Initialize implements gorm.Plugin
func (in *DBInstrumentation) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("docflow:before_create", in.before),
		cb.Create().After("gorm:create").Register("docflow:after_create", in.after("INSERT")),
		cb.Query().Before("gorm:query").Register("docflow:before_query", in.before),
		cb.Query().After("gorm:query").Register("docflow:after_query", in.after("SELECT")),
		cb.Update().Before("gorm:update").Register("docflow:before_update", in.before),
		cb.Update().After("gorm:update").Register("docflow:after_update", in.after("UPDATE")),
		cb.Delete().Before("gorm:delete").Register("docflow:before_delete", in.before),
		cb.Delete().After("gorm:delete").Register("docflow:after_delete", in.after("DELETE")),
		cb.Row().Before("gorm:row").Register("docflow:before_row", in.before),
		cb.Row().After("gorm:row").Register("docflow:after_row", in.after("")),
		cb.Raw().Before("gorm:raw").Register("docflow:before_raw", in.before),
		cb.Raw().After("gorm:raw").Register("docflow:after_raw", in.after("")),
	)
}

func (in *DBInstrumentation) before(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

// after returns the closing callback. An empty op is derived from the SQL text.
func (in *DBInstrumentation) after(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)

		stmt := db.Statement
		ctx := stmt.Context
		if ctx == nil {
			ctx = context.Background()
		}
		operation := op
		if operation == "" {
			operation = sqlOperation(stmt.SQL.String())
		}
		table := stmt.Table
		attrs := []attribute.KeyValue{AttrDBOperation.String(operation), AttrDBTable.String(table)}
		if kind, ok := kindForTable(table); ok {
			attrs = append(attrs, AttrKind.String(kind))
		}

		slow := elapsed >= in.cfg.SlowQueryThreshold
		if in.queries != nil {
			in.queries.Inc(ctx, attrs...)
			in.duration.RecordDuration(ctx, elapsed, attrs...)
			if slow {
				in.slowQueries.Inc(ctx, attrs...)
			}
		}

		span := trace.SpanFromContext(ctx)
		if span.IsRecording() {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
			if slow {
				span.SetAttributes(attribute.Bool("db.slow_query", true))
			}
		}
		if slow {
			in.logger.Warn("Slow query",
				zap.String("operation", operation),
				zap.String("table", table),
				zap.Duration("elapsed", elapsed),
				zap.Int64("rows", db.RowsAffected),
			)
		}
	}
}

// StartPoolStatsCollection samples sql.DBStats every PoolStatsInterval until Stop
func (in *DBInstrumentation) StartPoolStatsCollection(ctx context.Context) {
	if in.poolConns == nil {
		return
	}
	sqlDB, err := in.db.DB()
	if err != nil {
		in.logger.Warn("Pool stats unavailable", zap.Error(err))
		return
	}
	go func() {
		ticker := time.NewTicker(in.cfg.PoolStatsInterval)
		defer ticker.Stop()
		for {
			stats := sqlDB.Stats()
			in.poolConns.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
			in.poolConns.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
			in.poolConns.Record(ctx, int64(stats.MaxOpenConnections), AttrDBState.String("max_open"))
			in.poolWaits.Record(ctx, stats.WaitCount)

			select {
			case <-ticker.C:
			case <-in.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends pool stats collection. Safe to call more than once.
func (in *DBInstrumentation) Stop() {
	in.stopOnce.Do(func() { close(in.stopCh) })
}

func kindForTable(table string) (string, bool) {
	for kind, t := range documentTables {
		if t == table {
			return kind, true
		}
	}
	return "", false
}

func sqlOperation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "OTHER"
	}
	switch op := strings.ToUpper(fields[0]); op {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH":
		return op
	default:
		return "OTHER"
	}
}
