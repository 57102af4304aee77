package handler

import (
	"context"
	"time"

	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/erp/docflow/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler serves GET /health
type HealthHandler struct {
	BaseHandler
	checker HealthChecker
	version string
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(checker HealthChecker, version string) *HealthHandler {
	return &HealthHandler{checker: checker, version: version, timeout: 2 * time.Second}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Check)
}

// Check pings the database
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.checker.Health(ctx); err != nil {
		logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
		h.Error(c, dto.ErrCodeUnavailable, "Database unreachable")
		return
	}
	h.Success(c, gin.H{"status": "ok", "version": h.version})
}
