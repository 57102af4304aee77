// Package bootstrap assembles the lifecycle engine and its infrastructure
// from configuration. It is shared by the HTTP server and the operator CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/docflow/internal/application/lifecycle"
	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/infrastructure/cache"
	"github.com/erp/docflow/internal/infrastructure/config"
	"github.com/erp/docflow/internal/infrastructure/event"
	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/erp/docflow/internal/infrastructure/persistence"
	"github.com/erp/docflow/internal/infrastructure/search"
	"github.com/erp/docflow/internal/infrastructure/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const slotKeyPrefix = "docflow:"

// App holds the assembled components. Close releases them in reverse order.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *persistence.Database
	Engine *lifecycle.Engine
	Slots  shared.IdempotencyStore
	Meter  *telemetry.MeterProvider

	closers []func(context.Context) error
}

// NewLogger builds the base zap logger from the log section
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.ISO8601Millis,
	})
}

// New wires telemetry, the database, Redis, numbering, search sync, the event
// bus and the engine. Anything already opened is closed again when a later step fails.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (app *App, err error) {
	app = &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
			app = nil
		}
	}()

	if err = app.initTelemetry(ctx); err != nil {
		return app, err
	}

	db, err := persistence.NewDatabase(&cfg.Database, app.Logger)
	if err != nil {
		return app, err
	}
	app.DB = db
	app.onClose(func(context.Context) error { return db.Close() })
	app.Logger.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if err = app.instrumentDB(ctx); err != nil {
		return app, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return app, err
		}
		app.onClose(func(context.Context) error { return redisClient.Close() })
		app.Slots = cache.NewIdempotencyStore(redisClient, slotKeyPrefix, app.Logger)
		app.Logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		app.Slots = cache.NewInMemoryIdempotencyStore(time.Minute)
		app.Logger.Warn("Redis disabled, sweep slots are claimed per process")
	}
	slots := app.Slots
	app.onClose(func(context.Context) error { return slots.Close() })

	numbering, err := app.numbering(ctx)
	if err != nil {
		return app, err
	}

	notifier, err := search.New(cfg.Search, cfg.Kafka, redisClient, app.Logger)
	if err != nil {
		return app, err
	}
	app.onClose(func(context.Context) error { return notifier.Close() })

	bus := event.NewInMemoryEventBus(app.Logger)
	bus.Subscribe(event.NewAuditLogHandler(app.Logger))
	if err = bus.Start(ctx); err != nil {
		return app, fmt.Errorf("failed to start event bus: %w", err)
	}
	app.onClose(bus.Stop)

	app.Engine = lifecycle.NewEngine(
		persistence.NewGormDocumentStore(db.DB),
		numbering,
		notifier,
		lifecycle.Config{
			BulkConcurrency: cfg.Lifecycle.BulkConcurrency,
			MaxBulkSize:     cfg.Lifecycle.MaxBulkSize,
			ConflictRetries: cfg.Lifecycle.ConflictRetries,
		},
		app.Logger,
	)
	app.Engine.SetEventPublisher(bus)

	if app.Meter.IsEnabled() {
		metrics, err := telemetry.NewLifecycleMetrics(telemetry.LifecycleMetricsConfig{
			Meter:    app.Meter.Meter("docflow.lifecycle"),
			Logger:   app.Logger,
			Provider: telemetry.NewGormStatusCountProvider(db.DB),
		})
		if err != nil {
			return app, fmt.Errorf("failed to create lifecycle metrics: %w", err)
		}
		metrics.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
		app.onClose(func(context.Context) error {
			metrics.Stop()
			return nil
		})
		app.Engine.SetMetrics(metrics)
	}

	return app, nil
}

func (a *App) initTelemetry(ctx context.Context) error {
	t := a.Config.Telemetry
	cfg := telemetry.Config{
		Enabled:           t.Enabled,
		CollectorEndpoint: t.CollectorEndpoint,
		Insecure:          t.Insecure,
		ServiceName:       t.ServiceName,
		SamplingRatio:     t.SamplingRatio,
		MetricsInterval:   t.MetricsInterval,
	}

	tp, err := telemetry.NewTracerProvider(ctx, cfg, a.Logger)
	if err != nil {
		return err
	}
	a.onClose(tp.Shutdown)

	mp, err := telemetry.NewMeterProvider(ctx, cfg, a.Logger)
	if err != nil {
		return err
	}
	a.Meter = mp
	a.onClose(mp.Shutdown)

	if !t.LogExportEnabled {
		return nil
	}
	lp, err := telemetry.NewLoggerProvider(ctx, cfg, a.Logger)
	if err != nil {
		return err
	}
	a.onClose(lp.Shutdown)
	a.Logger = telemetry.NewBridgedLogger(a.Logger.Core(),
		telemetry.NewZapOTELCore(t.ServiceName, lp, a.Logger.Level()))
	return nil
}

func (a *App) instrumentDB(ctx context.Context) error {
	t := a.Config.Telemetry
	system := "postgresql"
	if a.Config.Database.Driver == "sqlite" {
		system = "sqlite"
	}

	in, err := telemetry.InstrumentDB(a.DB.DB, a.Meter, telemetry.DBConfig{
		System:             system,
		Tracing:            t.Enabled && t.DBTraceEnabled,
		FullSQL:            t.DBLogFullSQL,
		SlowQueryThreshold: t.DBSlowQueryThresh,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to instrument database: %w", err)
	}
	in.StartPoolStatsCollection(ctx)
	a.onClose(func(context.Context) error {
		in.Stop()
		return nil
	})
	return nil
}

func (a *App) numbering(ctx context.Context) (document.Numbering, error) {
	if a.Config.Numbering.Backend != "pgx" {
		return persistence.NewGormNumberSequence(a.DB.DB), nil
	}
	pool, err := persistence.NewPgxPool(ctx, a.Config.Database.DSN(), 4)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error {
		pool.Close()
		return nil
	})
	return persistence.NewPgxNumberSequence(pool), nil
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases every component, last opened first
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
