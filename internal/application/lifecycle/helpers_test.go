package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	testNow     = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	testCompany = uuid.MustParse("0b9b7c1e-9d55-4bfc-8f3a-2c4e1d7a6b10")
)

// MockSearchSync is a mock implementation of document.SearchSync
type MockSearchSync struct {
	mock.Mock
}

func (m *MockSearchSync) Notify(ctx context.Context, kind document.Kind, id uuid.UUID, status string) error {
	args := m.Called(ctx, kind, id, status)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type testHarness struct {
	engine *Engine
	store  *persistence.GormDocumentStore
	search *MockSearchSync
	db     *gorm.DB
}

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, persistence.EnsureSQLiteSchema(db))
	return db
}

// newHarness wires an engine against an in-memory SQLite store.
// The store argument, when given, wraps the real store.
func newHarness(t *testing.T, cfg Config, wrap ...func(document.Store) document.Store) *testHarness {
	db := newTestDB(t)
	store := persistence.NewGormDocumentStore(db)
	numbering := persistence.NewGormNumberSequence(db).WithClock(func() time.Time { return testNow })

	search := new(MockSearchSync)
	search.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	var gateway document.Store = store
	for _, w := range wrap {
		gateway = w(gateway)
	}

	engine := NewEngine(gateway, numbering, search, cfg, zap.NewNop())
	engine.SetClock(func() time.Time { return testNow })
	return &testHarness{engine: engine, store: store, search: search, db: db}
}

func lineItems(t *testing.T) []LineItemInput {
	t.Helper()
	return []LineItemInput{
		{ProductID: uuid.New(), Description: "Widget", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50), TaxRate: decimal.NewFromInt(19)},
	}
}

func (h *testHarness) create(t *testing.T, kind document.Kind, mutate ...func(*CreateDocumentCommand)) document.Document {
	t.Helper()
	cmd := CreateDocumentCommand{
		Kind:       kind,
		CompanyID:  testCompany,
		CustomerID: uuid.New(),
		Currency:   "EUR",
		Items:      lineItems(t),
	}
	if kind == document.KindInvoice {
		due := testNow.AddDate(0, 0, 14)
		cmd.DueDate = &due
	}
	for _, m := range mutate {
		m(&cmd)
	}
	doc, err := h.engine.Create(context.Background(), cmd)
	require.NoError(t, err)
	return doc
}

// walk applies actions in order and fails the test on the first error
func (h *testHarness) walk(t *testing.T, doc document.Document, actions ...string) document.Document {
	t.Helper()
	for _, a := range actions {
		p := document.TransitionParams{}
		if a == string(document.DeliveryActionSign) {
			p.SignedBy = "J. Receiver"
		}
		next, err := h.engine.Transition(context.Background(), doc.Kind(), doc.GetID(), a, p)
		require.NoError(t, err, "action %s", a)
		doc = next
	}
	return doc
}

// sentInvoiceDue creates an invoice and sends it, then moves its due date
func (h *testHarness) sentInvoiceDue(t *testing.T, due time.Time) *document.Invoice {
	t.Helper()
	inv := h.walk(t, h.create(t, document.KindInvoice), string(document.InvoiceActionSend))
	require.NoError(t, h.db.Table("invoices").Where("id = ?", inv.GetID()).Update("due_date", due.UTC()).Error)
	loaded, err := h.store.Get(context.Background(), document.KindInvoice, inv.GetID())
	require.NoError(t, err)
	return loaded.(*document.Invoice)
}

func (h *testHarness) status(t *testing.T, kind document.Kind, id uuid.UUID) string {
	t.Helper()
	doc, err := h.store.Get(context.Background(), kind, id)
	require.NoError(t, err)
	return doc.StatusName()
}

// hookStore lets a test intercept store calls
type hookStore struct {
	document.Store
	mu           sync.Mutex
	beforeUpdate func(doc document.Document) error
	ping         error
}

func (s *hookStore) Update(ctx context.Context, doc document.Document, expectedStatus string) error {
	s.mu.Lock()
	hook := s.beforeUpdate
	s.mu.Unlock()
	if hook != nil {
		if err := hook(doc); err != nil {
			return err
		}
	}
	return s.Store.Update(ctx, doc, expectedStatus)
}

func (s *hookStore) Ping(ctx context.Context) error {
	if s.ping != nil {
		return s.ping
	}
	return s.Store.Ping(ctx)
}

func ptrTime(t time.Time) *time.Time { return &t }
