package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/docflow/internal/bootstrap"
	"github.com/erp/docflow/internal/infrastructure/config"
	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/erp/docflow/internal/infrastructure/scheduler"
	"github.com/erp/docflow/internal/interfaces/http/handler"
	"github.com/erp/docflow/internal/interfaces/http/middleware"
	"github.com/erp/docflow/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	baseLog, err := bootstrap.NewLogger(cfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		logger.Sync(baseLog)
	}()

	baseLog.Info("Starting docflow",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	app, err := bootstrap.New(ctx, cfg, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize application", zap.Error(err))
	}
	log := app.Logger
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Close(shutdownCtx); err != nil {
			log.Error("Error releasing resources", zap.Error(err))
		}
	}()

	// In-process sweeps, guarded by the shared slot store
	if cfg.Scheduler.Enabled {
		trigger, err := scheduler.NewSweepTrigger(scheduler.SweepTriggerConfig{
			Interval:   cfg.Scheduler.SweepInterval,
			JobTimeout: cfg.Scheduler.JobTimeout,
			SlotTTL:    cfg.Scheduler.SlotTTL,
		}, app.Engine, app.Slots, log)
		if err != nil {
			log.Fatal("Invalid scheduler configuration", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start sweep trigger", zap.Error(err))
		}
		defer func() {
			if err := trigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping sweep trigger", zap.Error(err))
			}
		}()
		log.Info("Sweep trigger started",
			zap.Duration("interval", cfg.Scheduler.SweepInterval),
			zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
		)
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order matters: recovery first, then request id so every
	// later layer (logs, spans, metrics) can see it.
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			Enabled:     cfg.Telemetry.Enabled,
			ServiceName: cfg.Telemetry.ServiceName,
		}),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: app.Meter,
			Enabled:       app.Meter.IsEnabled(),
		}),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
			AllowMethods:  cfg.HTTP.CORSAllowMethods,
			AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders: []string{middleware.RequestIDKey, "X-RateLimit-Remaining"},
			MaxAge:        12 * time.Hour,
		}),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.RequestTimeout),
	)

	// Manual sweeps are cheap to trigger and expensive to run
	sweepLimiter := middleware.NewRateLimiter(6, time.Minute)
	defer sweepLimiter.Stop()

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(handler.NewDocumentHandler(app.Engine)).
		Register(handler.NewSweepHandler(app.Engine, middleware.RateLimit(sweepLimiter, middleware.RouteKey))).
		Register(handler.NewSchemaHandler()).
		Register(handler.NewHealthHandler(app.Engine, version)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down server...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
