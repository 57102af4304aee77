package handler

import (
	"context"

	"github.com/erp/docflow/internal/application/lifecycle"
	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/interfaces/http/dto"
	"github.com/erp/docflow/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentService is the slice of the lifecycle engine the document routes need
type DocumentService interface {
	Create(ctx context.Context, cmd lifecycle.CreateDocumentCommand) (document.Document, error)
	Get(ctx context.Context, kind document.Kind, id uuid.UUID) (document.Document, error)
	List(ctx context.Context, kind document.Kind, filter shared.Filter) ([]document.Document, int64, error)
	Transition(ctx context.Context, kind document.Kind, id uuid.UUID, action string, p document.TransitionParams) (document.Document, error)
	Convert(ctx context.Context, source document.Kind, sourceID uuid.UUID, target document.Kind, p document.ConversionParams) (document.Document, error)
	BulkTransition(ctx context.Context, kind document.Kind, ids []uuid.UUID, action string, p document.TransitionParams) (*lifecycle.BulkResult, error)
}

// DocumentHandler serves the document routes
type DocumentHandler struct {
	BaseHandler
	service DocumentService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(service DocumentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/documents")
	docs.POST("/:kind", h.Create)
	docs.GET("/:kind", h.List)
	docs.POST("/:kind/bulk-transitions", h.BulkTransition)
	docs.GET("/:kind/:id", h.Get)
	docs.POST("/:kind/:id/transitions", h.Transition)
	docs.POST("/:kind/:id/conversions", h.Convert)
}

// Create handles POST /documents/:kind
func (h *DocumentHandler) Create(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}
	var req CreateDocumentRequest
	if !h.bindJSON(c, &req, false) {
		return
	}

	doc, err := h.service.Create(c.Request.Context(), req.toCommand(kind))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, lifecycle.ToView(doc))
}

// Get handles GET /documents/:kind/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c)
	if !ok {
		return
	}

	doc, err := h.service.Get(c.Request.Context(), kind, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lifecycle.ToView(doc))
}

// List handles GET /documents/:kind?page=&page_size=&status=&order_by=&order_dir=
func (h *DocumentHandler) List(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	filter := req.Filter()

	docs, total, err := h.service.List(c.Request.Context(), kind, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, lifecycle.ToViews(docs), total, filter.Page, filter.PageSize)
}

// Transition handles POST /documents/:kind/:id/transitions
func (h *DocumentHandler) Transition(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req TransitionRequest
	if !h.bindJSON(c, &req, false) {
		return
	}

	doc, err := h.service.Transition(c.Request.Context(), kind, id, req.Action, req.params())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lifecycle.ToView(doc))
}

// Convert handles POST /documents/:kind/:id/conversions
func (h *DocumentHandler) Convert(c *gin.Context) {
	source, ok := h.kindParam(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req ConversionRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	target, err := document.ParseKind(req.Target)
	if err != nil {
		h.FieldError(c, "target", "Unknown target kind: "+req.Target)
		return
	}

	doc, err := h.service.Convert(c.Request.Context(), source, id, target, req.params())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, lifecycle.ToView(doc))
}

// BulkTransition handles POST /documents/:kind/bulk-transitions.
// Per-document failures are part of a 200 answer.
func (h *DocumentHandler) BulkTransition(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}
	var req BulkTransitionRequest
	if !h.bindJSON(c, &req, false) {
		return
	}

	result, err := h.service.BulkTransition(c.Request.Context(), kind, req.parseIDs(), req.Action, req.params())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
