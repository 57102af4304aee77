package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestNewDatabase(t *testing.T) {
	t.Run("sqlite in memory creates the document schema", func(t *testing.T) {
		db, err := NewDatabase(&config.DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: ":memory:",
			LogLevel:   "silent",
		}, zap.NewNop())
		require.NoError(t, err)
		defer db.Close()

		for _, table := range []string{"offers", "orders", "deliveries", "invoices", "document_line_items", "document_sequences"} {
			assert.True(t, db.DB.Migrator().HasTable(table), "missing table %s", table)
		}
		assert.NoError(t, db.Ping(context.Background()))
	})

	t.Run("unsupported driver", func(t *testing.T) {
		_, err := NewDatabase(&config.DatabaseConfig{Driver: "oracle"}, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()

	assert.NoError(t, db.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The conditional update is the only guard against the sweep/pay race,
// so its SQL shape is pinned against the postgres dialect.
func TestGormDocumentStore_Update_PostgresShape(t *testing.T) {
	newInvoice := func() *document.Invoice {
		now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
		item, err := document.NewLineItem(uuidFixed, "Widget", decimalOf("2"), decimalOf("10"), decimalOf("19"))
		require.NoError(t, err)
		inv, err := document.NewInvoice("INV-2026-00001", uuidFixed, uuidFixed, "EUR",
			[]document.LineItem{item}, nil, now.AddDate(0, 0, 14), now)
		require.NoError(t, err)
		return inv
	}

	t.Run("guards on id, version and status", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		store := NewGormDocumentStore(db.DB)
		inv := newInvoice()

		mock.ExpectExec(`UPDATE "invoices" SET .* WHERE id = \$\d+ AND version = \$\d+ AND status = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.Update(context.Background(), inv, "DRAFT"))
		assert.Equal(t, 2, inv.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row updated but row exists is a conflict", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		store := NewGormDocumentStore(db.DB)
		inv := newInvoice()

		mock.ExpectExec(`UPDATE "invoices" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "invoices" WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := store.Update(context.Background(), inv, "DRAFT")
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 1, inv.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure is a persistence error", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		store := NewGormDocumentStore(db.DB)

		mock.ExpectExec(`UPDATE "invoices" SET`).WillReturnError(sql.ErrConnDone)

		err := store.Update(context.Background(), newInvoice(), "DRAFT")
		assert.ErrorIs(t, err, shared.ErrPersistenceFailed)
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})
}
