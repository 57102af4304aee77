// Package integration runs the lifecycle engine against a real PostgreSQL.
// A single testcontainers instance serves the whole package; the embedded
// migrations create its schema once.
package integration

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/erp/docflow/internal/infrastructure/migration"
	"github.com/erp/docflow/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// pg is the package wide container, started by the first NewTestDB
var pg struct {
	sync.Mutex
	container *tcpostgres.PostgresContainer
	dsn       string
}

// TestDB is a connection to the migrated, emptied test database
type TestDB struct {
	DB  *gorm.DB
	DSN string
}

// NewTestDB connects to the shared container and truncates every document
// table. Integration tests are skipped with -short.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dsn := containerDSN(t)

	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLogger(zaptest.NewLogger(t), level),
	})
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	t.Cleanup(func() { _ = sqlDB.Close() })

	truncateAll(t, db)
	return &TestDB{DB: db, DSN: dsn}
}

func containerDSN(t *testing.T) string {
	t.Helper()
	pg.Lock()
	defer pg.Unlock()
	if pg.container != nil {
		return pg.dsn
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("docflow_test"),
		tcpostgres.WithUsername("docflow"),
		tcpostgres.WithPassword("docflow"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")

	pg.container, pg.dsn = container, dsn
	return dsn
}

func truncateAll(t *testing.T, db *gorm.DB) {
	t.Helper()
	var tables []string
	require.NoError(t, db.Raw(
		`SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename <> 'schema_migrations'`,
	).Scan(&tables).Error)
	if len(tables) == 0 {
		return
	}
	require.NoError(t, db.Exec("TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE").Error)
}

// CleanupSharedContainer stops the container; TestMain calls it after m.Run
func CleanupSharedContainer() {
	pg.Lock()
	defer pg.Unlock()
	if pg.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = pg.container.Terminate(ctx)
	pg.container, pg.dsn = nil, ""
}
