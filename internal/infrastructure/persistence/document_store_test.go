package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	uuidFixed = uuid.MustParse("6f1c2a9e-4b1d-4c35-9d7e-0a6b8f3e2c11")
	storeNow  = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
)

func decimalOf(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, EnsureSQLiteSchema(db))
	return db
}

func storeItems(t *testing.T) []document.LineItem {
	a, err := document.NewLineItem(uuid.New(), "Widget", decimalOf("3"), decimalOf("19.99"), decimalOf("19"))
	require.NoError(t, err)
	b, err := document.NewLineItem(uuid.New(), "Service hour", decimalOf("1.5"), decimalOf("80"), decimalOf("7"))
	require.NoError(t, err)
	return []document.LineItem{a, b}
}

func newStoredInvoice(t *testing.T, store *GormDocumentStore, number string, status document.InvoiceStatus, due time.Time) *document.Invoice {
	inv, err := document.NewInvoice(number, uuidFixed, uuid.New(), "EUR", storeItems(t), nil, due, due.AddDate(0, 0, -30))
	require.NoError(t, err)
	inv.Status = status
	require.NoError(t, store.Create(context.Background(), inv))
	return inv
}

func newStoredOffer(t *testing.T, store *GormDocumentStore, number string, status document.OfferStatus, validUntil *time.Time) *document.Offer {
	offer, err := document.NewOffer(number, uuidFixed, uuid.New(), "EUR", storeItems(t), validUntil, storeNow.AddDate(0, -1, 0))
	require.NoError(t, err)
	offer.Status = status
	require.NoError(t, store.Create(context.Background(), offer))
	return offer
}

func TestGormDocumentStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewGormDocumentStore(setupTestDB(t))

	t.Run("invoice round trip keeps items, totals and dates", func(t *testing.T) {
		issue := storeNow
		inv, err := document.NewInvoice("INV-2026-00001", uuidFixed, uuid.New(), "EUR", storeItems(t), &issue, storeNow.AddDate(0, 0, 14), storeNow)
		require.NoError(t, err)
		require.NoError(t, store.Create(ctx, inv))

		loaded, err := store.Get(ctx, document.KindInvoice, inv.ID)
		require.NoError(t, err)
		got, ok := loaded.(*document.Invoice)
		require.True(t, ok)

		assert.Equal(t, inv.Number, got.Number)
		assert.Equal(t, document.InvoiceStatusDraft, got.Status)
		assert.Equal(t, 1, got.Version)
		assert.True(t, inv.Totals.Total.Equal(got.Totals.Total))
		assert.True(t, inv.Totals.Tax.Equal(got.Totals.Tax))
		assert.True(t, inv.DueDate.Equal(got.DueDate))
		require.NotNil(t, got.IssueDate)
		assert.True(t, issue.Equal(*got.IssueDate))
		require.Len(t, got.Items, 2)
		assert.Equal(t, "Widget", got.Items[0].Description)
		assert.Equal(t, "Service hour", got.Items[1].Description)
		assert.True(t, inv.Items[1].LineTax.Equal(got.Items[1].LineTax))
	})

	t.Run("delivery keeps its order lineage", func(t *testing.T) {
		order, err := document.NewOrder("ORD-2026-00001", uuidFixed, uuid.New(), "EUR", storeItems(t), storeNow)
		require.NoError(t, err)
		order.Status = document.OrderStatusConfirmed
		require.NoError(t, store.Create(ctx, order))

		derived, err := document.Derive(order, document.KindDelivery, "DEL-2026-00001", document.ConversionParams{}, storeNow)
		require.NoError(t, err)
		require.NoError(t, store.Create(ctx, derived))

		loaded, err := store.Get(ctx, document.KindDelivery, derived.Head().ID)
		require.NoError(t, err)
		delivery := loaded.(*document.Delivery)
		require.NotNil(t, delivery.OrderID)
		assert.Equal(t, order.ID, *delivery.OrderID)
		assert.Equal(t, document.DeliveryStatusPrepared, delivery.Status)
	})

	t.Run("missing document", func(t *testing.T) {
		_, err := store.Get(ctx, document.KindOffer, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := store.Get(ctx, document.Kind("receipt"), uuid.New())
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("duplicate number fails as persistence error", func(t *testing.T) {
		dup, err := document.NewInvoice("INV-2026-00001", uuidFixed, uuid.New(), "EUR", storeItems(t), nil, storeNow, storeNow)
		require.NoError(t, err)
		err = store.Create(ctx, dup)
		assert.ErrorIs(t, err, shared.ErrPersistenceFailed)
	})
}

func TestGormDocumentStore_Update(t *testing.T) {
	ctx := context.Background()
	store := NewGormDocumentStore(setupTestDB(t))

	t.Run("applies transition and bumps version", func(t *testing.T) {
		inv := newStoredInvoice(t, store, "INV-2026-00010", document.InvoiceStatusDraft, storeNow.AddDate(0, 0, 14))

		sent, err := inv.Transition(document.InvoiceActionSend, document.TransitionParams{Now: storeNow})
		require.NoError(t, err)
		require.NoError(t, store.Update(ctx, sent, string(document.InvoiceStatusDraft)))
		assert.Equal(t, 2, sent.Version)

		loaded, err := store.Get(ctx, document.KindInvoice, inv.ID)
		require.NoError(t, err)
		got := loaded.(*document.Invoice)
		assert.Equal(t, document.InvoiceStatusSent, got.Status)
		assert.Equal(t, 2, got.Version)
		require.NotNil(t, got.SentAt)
		assert.True(t, storeNow.Equal(*got.SentAt))
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		inv := newStoredInvoice(t, store, "INV-2026-00011", document.InvoiceStatusSent, storeNow.AddDate(0, 0, -1))

		paid, err := inv.Transition(document.InvoiceActionPay, document.TransitionParams{Now: storeNow})
		require.NoError(t, err)
		overdue, err := inv.Transition(document.InvoiceActionMarkOverdue, document.TransitionParams{Now: storeNow})
		require.NoError(t, err)

		require.NoError(t, store.Update(ctx, paid, string(document.InvoiceStatusSent)))
		err = store.Update(ctx, overdue, string(document.InvoiceStatusSent))
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		loaded, err := store.Get(ctx, document.KindInvoice, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "PAID", loaded.StatusName())
	})

	t.Run("unexpected status is a conflict", func(t *testing.T) {
		inv := newStoredInvoice(t, store, "INV-2026-00012", document.InvoiceStatusSent, storeNow.AddDate(0, 0, -1))
		err := store.Update(ctx, inv, string(document.InvoiceStatusDraft))
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("missing row", func(t *testing.T) {
		order, err := document.NewOrder("ORD-2026-00099", uuidFixed, uuid.New(), "EUR", storeItems(t), storeNow)
		require.NoError(t, err)
		err = store.Update(ctx, order, string(document.OrderStatusDraft))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormDocumentStore_QueryOverdueCandidates(t *testing.T) {
	ctx := context.Background()
	store := NewGormDocumentStore(setupTestDB(t))

	yesterday := storeNow.AddDate(0, 0, -1)
	lastWeek := storeNow.AddDate(0, 0, -7)

	sentPastDue := newStoredInvoice(t, store, "INV-2026-00001", document.InvoiceStatusSent, yesterday)
	olderPastDue := newStoredInvoice(t, store, "INV-2026-00002", document.InvoiceStatusSent, lastWeek)
	newStoredInvoice(t, store, "INV-2026-00003", document.InvoiceStatusSent, storeNow.AddDate(0, 0, 1))
	newStoredInvoice(t, store, "INV-2026-00004", document.InvoiceStatusOverdue, lastWeek)
	newStoredInvoice(t, store, "INV-2026-00005", document.InvoiceStatusPaid, yesterday)
	newStoredInvoice(t, store, "INV-2026-00006", document.InvoiceStatusCancelled, yesterday)
	newStoredInvoice(t, store, "INV-2026-00007", document.InvoiceStatusDraft, yesterday)

	got, err := store.QueryOverdueCandidates(ctx, storeNow)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, olderPastDue.ID, got[0].ID)
	assert.Equal(t, sentPastDue.ID, got[1].ID)
	assert.Len(t, got[0].Items, 2)

	t.Run("due exactly now is not overdue", func(t *testing.T) {
		got, err := store.QueryOverdueCandidates(ctx, lastWeek)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestGormDocumentStore_QueryExpiredOfferCandidates(t *testing.T) {
	ctx := context.Background()
	store := NewGormDocumentStore(setupTestDB(t))

	past := storeNow.Add(-time.Hour)
	future := storeNow.Add(time.Hour)

	expired := newStoredOffer(t, store, "OFF-2026-00001", document.OfferStatusSent, &past)
	newStoredOffer(t, store, "OFF-2026-00002", document.OfferStatusSent, &future)
	newStoredOffer(t, store, "OFF-2026-00003", document.OfferStatusSent, nil)
	newStoredOffer(t, store, "OFF-2026-00004", document.OfferStatusDraft, &past)
	newStoredOffer(t, store, "OFF-2026-00005", document.OfferStatusAccepted, &past)

	got, err := store.QueryExpiredOfferCandidates(ctx, storeNow)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, expired.ID, got[0].ID)
}

func TestGormDocumentStore_List(t *testing.T) {
	ctx := context.Background()
	store := NewGormDocumentStore(setupTestDB(t))

	for i, status := range []document.OfferStatus{
		document.OfferStatusDraft, document.OfferStatusSent, document.OfferStatusSent, document.OfferStatusRejected,
	} {
		newStoredOffer(t, store, FormatDocumentNumber(document.KindOffer, 2026, int64(i+1)), status, nil)
	}

	tests := []struct {
		name      string
		filter    shared.Filter
		wantTotal int64
		wantLen   int
	}{
		{"all", shared.Filter{Page: 1, PageSize: 10}, 4, 4},
		{"second page", shared.Filter{Page: 2, PageSize: 3}, 4, 1},
		{"by status", shared.Filter{Page: 1, PageSize: 10, Status: "SENT"}, 2, 2},
		{"unknown sort field falls back", shared.Filter{Page: 1, PageSize: 10, OrderBy: "1; DROP TABLE offers"}, 4, 4},
		{"zero page size uses default", shared.Filter{Page: 1}, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, total, err := store.List(ctx, document.KindOffer, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			assert.Len(t, docs, tt.wantLen)
			for _, d := range docs {
				assert.Len(t, d.Head().Items, 2)
			}
		})
	}

	t.Run("ordered by number ascending", func(t *testing.T) {
		docs, _, err := store.List(ctx, document.KindOffer, shared.Filter{Page: 1, PageSize: 10, OrderBy: "number", OrderDir: "asc"})
		require.NoError(t, err)
		require.Len(t, docs, 4)
		assert.Equal(t, "OFF-2026-00001", docs[0].Head().Number)
		assert.Equal(t, "OFF-2026-00004", docs[3].Head().Number)
	})
}

func TestGormDocumentStore_Ping(t *testing.T) {
	store := NewGormDocumentStore(setupTestDB(t))
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name     string
		filter   shared.Filter
		wantCol  string
		wantDesc bool
	}{
		{name: "defaults", filter: shared.Filter{}, wantCol: "created_at", wantDesc: true},
		{name: "whitelisted ascending", filter: shared.Filter{OrderBy: " number ", OrderDir: "ASC"}, wantCol: "number", wantDesc: false},
		{name: "unknown column", filter: shared.Filter{OrderBy: "customer_id", OrderDir: "asc"}, wantCol: "created_at", wantDesc: false},
		{name: "injection attempt", filter: shared.Filter{OrderBy: "total; DROP TABLE invoices", OrderDir: "asc; --"}, wantCol: "created_at", wantDesc: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := orderBy(tt.filter)
			assert.Equal(t, tt.wantCol, got.Column.Name)
			assert.Equal(t, tt.wantDesc, got.Desc)
		})
	}
}
