// Command docctl is the operator CLI of the document lifecycle engine.
// sweep-overdue is the entry point for an external cron.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/erp/docflow/internal/bootstrap"
	"github.com/erp/docflow/internal/infrastructure/config"
	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/erp/docflow/internal/infrastructure/scheduler"
	"github.com/erp/docflow/internal/interfaces/http/handler"
	"go.uber.org/zap"
)

var version = "dev"

// engineAPI is what the commands drive
type engineAPI interface {
	handler.DocumentService
	scheduler.Sweeper
}

// openEngine loads configuration and assembles the engine the same way the server does
func openEngine(ctx context.Context) (engineAPI, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	// keep stdout clean for command output
	cfg.Log.Output = "stderr"

	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		logger.Sync(log)
		return nil, nil, err
	}
	return app.Engine, func() {
		if err := app.Close(context.Background()); err != nil {
			app.Logger.Error("Error releasing resources", zap.Error(err))
		}
		logger.Sync(log)
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	c := newCLI(openEngine)
	err := c.rootCmd().ExecuteContext(ctx)
	c.shutdown()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
