package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/docflow/internal/application/lifecycle"
	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/interfaces/http/dto"
	"github.com/erp/docflow/internal/interfaces/http/middleware"
	"github.com/erp/docflow/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

// MockDocumentService is a mock implementation of DocumentService
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Create(ctx context.Context, cmd lifecycle.CreateDocumentCommand) (document.Document, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(document.Document), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, kind document.Kind, id uuid.UUID) (document.Document, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(document.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, kind document.Kind, filter shared.Filter) ([]document.Document, int64, error) {
	args := m.Called(ctx, kind, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]document.Document), args.Get(1).(int64), args.Error(2)
}

func (m *MockDocumentService) Transition(ctx context.Context, kind document.Kind, id uuid.UUID, action string, p document.TransitionParams) (document.Document, error) {
	args := m.Called(ctx, kind, id, action, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(document.Document), args.Error(1)
}

func (m *MockDocumentService) Convert(ctx context.Context, source document.Kind, sourceID uuid.UUID, target document.Kind, p document.ConversionParams) (document.Document, error) {
	args := m.Called(ctx, source, sourceID, target, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(document.Document), args.Error(1)
}

func (m *MockDocumentService) BulkTransition(ctx context.Context, kind document.Kind, ids []uuid.UUID, action string, p document.TransitionParams) (*lifecycle.BulkResult, error) {
	args := m.Called(ctx, kind, ids, action, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lifecycle.BulkResult), args.Error(1)
}

// MockSweeper is a mock implementation of scheduler.Sweeper
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockSweeper) SweepExpiredOffers(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func newTestEngine(registrars ...router.RouteRegistrar) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := router.NewRouter(engine)
	for _, reg := range registrars {
		r.Register(reg)
	}
	r.Setup()
	return engine
}

func doRequest(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func testItems(t *testing.T) []document.LineItem {
	t.Helper()
	item, err := document.NewLineItem(uuid.New(), "Widget", decimal.NewFromInt(2), decimal.NewFromInt(50), decimal.NewFromInt(19))
	require.NoError(t, err)
	return []document.LineItem{item}
}

func testOrder(t *testing.T) *document.Order {
	t.Helper()
	order, err := document.NewOrder("ORD-2026-00001", uuid.New(), uuid.New(), "EUR", testItems(t), testNow)
	require.NoError(t, err)
	return order
}

func testInvoice(t *testing.T) *document.Invoice {
	t.Helper()
	inv, err := document.NewInvoice("INV-2026-00001", uuid.New(), uuid.New(), "EUR", testItems(t), nil, testNow.AddDate(0, 0, 14), testNow)
	require.NoError(t, err)
	return inv
}

func decodeView(t *testing.T, env envelope) lifecycle.DocumentView {
	t.Helper()
	var view lifecycle.DocumentView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

var errStoreDown = errors.New("dial tcp 10.0.0.5:5432: connection refused")
