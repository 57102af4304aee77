package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/interfaces/http/dto"
	"github.com/erp/docflow/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSweepHandler(t *testing.T) {
	newHandler := func(s *MockSweeper) *SweepHandler {
		h := NewSweepHandler(s)
		h.now = func() time.Time { return testNow }
		return h
	}

	t.Run("server clock by default", func(t *testing.T) {
		s := new(MockSweeper)
		s.On("SweepOverdue", mock.Anything, testNow).Return(3, nil)

		w, env := doRequest(t, newTestEngine(newHandler(s)), http.MethodPost, "/api/v1/sweeps/overdue-invoices", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp SweepResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, "overdue_invoices", resp.Sweep)
		assert.Equal(t, 3, resp.Transitioned)
		assert.True(t, resp.Now.Equal(testNow))
		s.AssertExpectations(t)
	})

	t.Run("explicit now is normalised to UTC", func(t *testing.T) {
		berlin := time.FixedZone("CET", 3600)
		at := time.Date(2026, 4, 1, 1, 0, 0, 0, berlin)

		s := new(MockSweeper)
		s.On("SweepExpiredOffers", mock.Anything, at.UTC()).Return(0, nil)

		w, _ := doRequest(t, newTestEngine(newHandler(s)), http.MethodPost, "/api/v1/sweeps/expired-offers",
			map[string]any{"now": at})

		assert.Equal(t, http.StatusOK, w.Code)
		s.AssertExpectations(t)
	})

	t.Run("query failure", func(t *testing.T) {
		s := new(MockSweeper)
		s.On("SweepOverdue", mock.Anything, testNow).Return(0, shared.NewPersistenceError("list overdue invoices", errStoreDown))

		w, env := doRequest(t, newTestEngine(newHandler(s)), http.MethodPost, "/api/v1/sweeps/overdue-invoices", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, dto.ErrCodePersistence, env.Error.Code)
	})

	t.Run("guard runs in front of the sweep", func(t *testing.T) {
		limiter := middleware.NewRateLimiter(1, time.Minute)
		t.Cleanup(limiter.Stop)

		s := new(MockSweeper)
		s.On("SweepOverdue", mock.Anything, testNow).Return(0, nil).Once()
		h := NewSweepHandler(s, middleware.RateLimit(limiter, middleware.RouteKey))
		h.now = func() time.Time { return testNow }
		engine := newTestEngine(h)

		w, _ := doRequest(t, engine, http.MethodPost, "/api/v1/sweeps/overdue-invoices", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w, env := doRequest(t, engine, http.MethodPost, "/api/v1/sweeps/overdue-invoices", nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, dto.ErrCodeRateLimited, env.Error.Code)
		s.AssertExpectations(t)
	})
}
