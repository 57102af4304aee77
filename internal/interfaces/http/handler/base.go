package handler

import (
	"errors"
	"net/http"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/erp/docflow/internal/interfaces/http/dto"
	"github.com/erp/docflow/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// FieldError sends a validation error naming the offending field
func (h *BaseHandler) FieldError(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest,
		dto.NewFieldErrorResponse(dto.ErrCodeValidation, message, field, middleware.GetRequestID(c)))
}

// HandleError converts an engine error into the response envelope.
// Store failures are logged and answered without their cause.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	requestID := middleware.GetRequestID(c)

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
		h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred")
		return
	}

	code := dto.NormalizeErrorCode(domainErr.Code)
	status := dto.GetHTTPStatus(code)
	message := domainErr.Message
	if status >= http.StatusInternalServerError {
		logger.GetGinLogger(c).Error("Document store failure",
			zap.String("code", domainErr.Code),
			zap.Error(err),
		)
		message = "The document store is unavailable"
	}

	if domainErr.Field != "" {
		c.JSON(status, dto.NewFieldErrorResponse(code, message, domainErr.Field, requestID))
		return
	}
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// kindParam parses the :kind path segment. It answers the request itself on failure.
func (h *BaseHandler) kindParam(c *gin.Context) (document.Kind, bool) {
	kind, err := document.ParseKind(c.Param("kind"))
	if err != nil {
		h.HandleError(c, err)
		return "", false
	}
	return kind, true
}

// idParam parses the :id path segment. It answers the request itself on failure.
func (h *BaseHandler) idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.FieldError(c, "id", "Invalid document ID format")
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds the body into req and answers 400 on failure.
// An empty body is accepted when optional is set.
func (h *BaseHandler) bindJSON(c *gin.Context, req any, optional bool) bool {
	if optional && c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}
