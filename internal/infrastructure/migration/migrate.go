// Package migration applies the versioned SQL schema of the document store
// with golang-migrate.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator applies migrations from an fs.FS to a PostgreSQL database
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// New reads migrations from source, usually migrations.FS or os.DirFS(dir)
func New(db *sql.DB, source fs.FS, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}
	src, err := iofs.New(source, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return &Migrator{m: m, logger: logger}, nil
}

// apply runs step and reports the resulting version. ErrNoChange is success.
func (mg *Migrator) apply(what string, step func() error) error {
	mg.logger.Info("Running migrations", zap.String("direction", what))
	if err := step(); errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Info("Schema already current", zap.String("direction", what))
		return nil
	} else if err != nil {
		return fmt.Errorf("migration %s failed: %w", what, err)
	}
	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	mg.logger.Info("Migrations applied",
		zap.String("direction", what),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Up applies every pending migration
func (mg *Migrator) Up() error { return mg.apply("up", mg.m.Up) }

// Down rolls every migration back
func (mg *Migrator) Down() error { return mg.apply("down", mg.m.Down) }

// Steps applies n migrations, negative n rolls back
func (mg *Migrator) Steps(n int) error {
	return mg.apply(fmt.Sprintf("steps(%d)", n), func() error { return mg.m.Steps(n) })
}

// Version returns the applied version, 0 when the schema is empty
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied without running anything. It exists to
// clear the dirty flag after a failed migration was fixed by hand.
func (mg *Migrator) Force(version int) error {
	mg.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and the database driver
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// ListMigrations returns the sorted base names of the up migrations in source
func ListMigrations(source fs.FS) ([]string, error) {
	ups, err := fs.Glob(source, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	names := make([]string, 0, len(ups))
	for _, name := range ups {
		names = append(names, strings.TrimSuffix(name, ".up.sql"))
	}
	sort.Strings(names)
	return names, nil
}
