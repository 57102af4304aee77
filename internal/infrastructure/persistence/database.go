package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erp/docflow/internal/infrastructure/config"
	"github.com/erp/docflow/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database wraps the GORM handle shared by the document store and numbering
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens cfg.Driver with GORM logging through zap. PostgreSQL
// relies on migrations for its schema; SQLite creates the schema itself.
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.LogLevel)),
		SkipDefaultTransaction: true,
		PrepareStmt:            cfg.Driver != "sqlite",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	d := &Database{DB: db}

	sqlDB, err := d.sqlDB()
	if err != nil {
		return nil, err
	}
	configurePool(sqlDB, cfg)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		if err := EnsureSQLiteSchema(db); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func configurePool(sqlDB *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.Driver == "sqlite" {
		// one connection: no SQLITE_BUSY, and :memory: stays a single database
		sqlDB.SetMaxOpenConns(1)
		return
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

func (d *Database) sqlDB() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB, nil
}

// Ping backs the readiness probe
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
