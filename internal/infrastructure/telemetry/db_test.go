package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type sumPoint struct {
	value int64
	attrs attribute.Set
}

func collectSums(t *testing.T, reader *sdkmetric.ManualReader, name string) []sumPoint {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var out []sumPoint
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != name {
				continue
			}
			if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					out = append(out, sumPoint{value: dp.Value, attrs: dp.Attributes})
				}
			}
		}
	}
	return out
}

func attrValue(set attribute.Set, key attribute.Key) string {
	v, _ := set.Value(key)
	return v.AsString()
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type invoiceRow struct {
	ID     string `gorm:"primaryKey"`
	Status string
}

func (invoiceRow) TableName() string { return "invoices" }

func TestInstrumentDB_Metrics(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(&invoiceRow{}))

	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader, zap.NewNop())
	core, logs := observer.New(zapcore.WarnLevel)

	in, err := InstrumentDB(db, mp, DBConfig{System: "sqlite", SlowQueryThreshold: time.Hour}, zap.New(core))
	require.NoError(t, err)
	defer in.Stop()

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&invoiceRow{ID: "a", Status: "DRAFT"}).Error)
	require.NoError(t, db.WithContext(ctx).Model(&invoiceRow{}).Where("id = ?", "a").Update("status", "SENT").Error)
	var rows []invoiceRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)

	byOp := map[string]int64{}
	for _, p := range collectSums(t, reader, "docflow_db_queries_total") {
		assert.Equal(t, "invoices", attrValue(p.attrs, AttrDBTable))
		assert.Equal(t, "invoice", attrValue(p.attrs, AttrKind))
		byOp[attrValue(p.attrs, AttrDBOperation)] += p.value
	}
	assert.Equal(t, map[string]int64{"INSERT": 1, "UPDATE": 1, "SELECT": 1}, byOp)
	assert.Empty(t, collectSums(t, reader, "docflow_db_slow_queries_total"))
	assert.Zero(t, logs.Len())
}

func TestInstrumentDB_SlowQueries(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	core, logs := observer.New(zapcore.WarnLevel)
	in, err := InstrumentDB(db, NewMeterProviderWithReader(reader, zap.NewNop()), DBConfig{
		System:             "postgresql",
		SlowQueryThreshold: 5 * time.Millisecond,
	}, zap.New(core))
	require.NoError(t, err)
	defer in.Stop()

	mock.ExpectExec(`UPDATE invoices SET status`).
		WillDelayFor(20 * time.Millisecond).
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, db.Exec(`UPDATE invoices SET status = 'OVERDUE' WHERE status = 'SENT'`).Error)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	var n int64
	require.NoError(t, db.Table("orders").Count(&n).Error)
	assert.Equal(t, int64(4), n)
	require.NoError(t, mock.ExpectationsWereMet())

	slow := collectSums(t, reader, "docflow_db_slow_queries_total")
	require.Len(t, slow, 1)
	assert.Equal(t, int64(1), slow[0].value)
	assert.Equal(t, "UPDATE", attrValue(slow[0].attrs, AttrDBOperation))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Slow query", entry.Message)
	assert.Equal(t, int64(2), entry.ContextMap()["rows"])
}

func TestInstrumentDB_WithoutMetrics(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(&invoiceRow{}))

	in, err := InstrumentDB(db, &MeterProvider{}, DBConfig{System: "sqlite", Tracing: true}, nil)
	require.NoError(t, err)
	assert.Nil(t, in.queries)

	in.StartPoolStatsCollection(context.Background())
	require.NoError(t, db.Create(&invoiceRow{ID: "b", Status: "DRAFT"}).Error)
	in.Stop()
	in.Stop()
}

func TestInstrumentDB_PoolStats(t *testing.T) {
	db := openSQLite(t)
	reader := sdkmetric.NewManualReader()
	in, err := InstrumentDB(db, NewMeterProviderWithReader(reader, zap.NewNop()), DBConfig{
		System:            "sqlite",
		PoolStatsInterval: 5 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	in.StartPoolStatsCollection(ctx)
	defer in.Stop()

	assert.Eventually(t, func() bool {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(ctx, &rm); err != nil {
			return false
		}
		for _, sm := range rm.ScopeMetrics {
			for _, md := range sm.Metrics {
				if g, ok := md.Data.(metricdata.Gauge[int64]); ok && md.Name == "docflow_db_pool_connections" {
					for _, dp := range g.DataPoints {
						if attrValue(dp.Attributes, AttrDBState) == "max_open" && dp.Value == 1 {
							return true
						}
					}
				}
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestSQLOperation(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM invoices", "SELECT"},
		{"  update invoices set status = 'PAID'", "UPDATE"},
		{"insert into document_sequences values (1)", "INSERT"},
		{"DELETE FROM offers", "DELETE"},
		{"WITH due AS (SELECT 1) SELECT * FROM due", "WITH"},
		{"TRUNCATE orders", "OTHER"},
		{"", "OTHER"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sqlOperation(tt.sql), tt.sql)
	}
}

func TestKindForTable(t *testing.T) {
	for table, want := range map[string]string{"offers": "offer", "deliveries": "delivery", "invoices": "invoice"} {
		got, ok := kindForTable(table)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := kindForTable("document_line_items")
	assert.False(t, ok)
}
