// Command migrate manages the document store schema. Migrations are embedded
// in the binary; --path reads them from a directory instead.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/erp/docflow/internal/infrastructure/config"
	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/erp/docflow/internal/infrastructure/migration"
	"github.com/erp/docflow/migrations"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	path     string
	logLevel string
	log      *zap.Logger
}

func (o *options) source() fs.FS {
	if o.path == "" {
		return migrations.FS
	}
	return os.DirFS(o.path)
}

// withMigrator connects to the configured database and runs fn
func (o *options) withMigrator(ctx context.Context, fn func(*migration.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Database.Driver != "" && cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations only run against postgres, configured driver is %q", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	m, err := migration.New(db, o.source(), o.log)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

func rootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the document store schema",
		Long: `migrate applies the versioned SQL migrations of the document store.

The database is read from config.toml, .env and DOCFLOW_DATABASE_*
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logger.New(&logger.Config{
				Level:      o.logLevel,
				Format:     "console",
				Output:     "stderr",
				TimeFormat: "2006-01-02 15:04:05",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			o.log = log
			return nil
		},
	}
	root.PersistentFlags().StringVar(&o.path, "path", "", "read migrations from this directory instead of the embedded set")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")

	simple := func(use, short string, run func(*migration.Migrator) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return o.withMigrator(cmd.Context(), run)
			},
		}
	}
	withInt := func(use, short string, run func(*migration.Migrator, int) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("%q is not an integer", args[0])
				}
				return o.withMigrator(cmd.Context(), func(m *migration.Migrator) error { return run(m, n) })
			},
		}
	}

	root.AddCommand(
		simple("up", "Apply all pending migrations", (*migration.Migrator).Up),
		simple("down", "Roll back all migrations", (*migration.Migrator).Down),
		withInt("step <n>", "Apply n migrations, negative n rolls back", (*migration.Migrator).Steps),
		withInt("force <version>", "Mark version as applied to clear a dirty state", (*migration.Migrator).Force),
		simple("version", "Print the applied version", func(m *migration.Migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(root.OutOrStdout(), "version %d dirty=%t\n", version, dirty)
			return nil
		}),
		&cobra.Command{
			Use:   "list",
			Short: "List the available migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				names, err := migration.ListMigrations(o.source())
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			},
		},
	)
	return root
}

func main() {
	o := &options{}
	err := rootCmd(o).Execute()
	if o.log != nil {
		logger.Sync(o.log)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
