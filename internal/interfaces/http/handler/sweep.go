package handler

import (
	"context"
	"time"

	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/erp/docflow/internal/infrastructure/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SweepHandler exposes the time-driven sweeps for external schedulers
type SweepHandler struct {
	BaseHandler
	sweeper scheduler.Sweeper
	now     func() time.Time
	guard   []gin.HandlerFunc
}

// NewSweepHandler creates a new SweepHandler.
// guard runs in front of both routes, typically a rate limiter.
func NewSweepHandler(sweeper scheduler.Sweeper, guard ...gin.HandlerFunc) *SweepHandler {
	return &SweepHandler{sweeper: sweeper, now: time.Now, guard: guard}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *SweepHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sweeps := rg.Group("/sweeps", h.guard...)
	sweeps.POST("/overdue-invoices", h.OverdueInvoices)
	sweeps.POST("/expired-offers", h.ExpiredOffers)
}

// OverdueInvoices handles POST /sweeps/overdue-invoices
func (h *SweepHandler) OverdueInvoices(c *gin.Context) {
	h.run(c, scheduler.SweepOverdueInvoices, h.sweeper.SweepOverdue)
}

// ExpiredOffers handles POST /sweeps/expired-offers
func (h *SweepHandler) ExpiredOffers(c *gin.Context) {
	h.run(c, scheduler.SweepExpiredOffers, h.sweeper.SweepExpiredOffers)
}

func (h *SweepHandler) run(c *gin.Context, name string, sweep func(context.Context, time.Time) (int, error)) {
	var req SweepRequest
	if !h.bindJSON(c, &req, true) {
		return
	}
	now := h.now().UTC()
	if req.Now != nil {
		now = req.Now.UTC()
	}

	n, err := sweep(c.Request.Context(), now)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	logger.GetGinLogger(c).Info("Sweep triggered over HTTP",
		zap.String("sweep", name),
		zap.Int("transitioned", n),
		zap.Time("now", now),
	)
	h.Success(c, SweepResponse{Sweep: name, Transitioned: n, Now: now})
}
