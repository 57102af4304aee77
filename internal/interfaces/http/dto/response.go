package dto

import "github.com/erp/docflow/internal/domain/shared"

// Response is the envelope of every /api/v1 answer
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo is the error half of the envelope
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	Field     string             `json:"field,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail describes one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta carries list pagination
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewSuccessResponseWithMeta wraps one page of a list
func NewSuccessResponseWithMeta(data any, total int64, page, pageSize int) Response {
	meta := &Meta{Total: total, Page: page, PageSize: pageSize}
	if pageSize > 0 {
		meta.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Response{Success: true, Data: data, Meta: meta}
}

func failure(info ErrorInfo) Response {
	return Response{Error: &info}
}

// NewErrorResponseWithRequestID builds an error envelope tagged with the request id
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return failure(ErrorInfo{Code: code, Message: message, RequestID: requestID})
}

// NewFieldErrorResponse builds an error envelope naming the offending field
func NewFieldErrorResponse(code, message, field, requestID string) Response {
	return failure(ErrorInfo{Code: code, Message: message, Field: field, RequestID: requestID})
}

// NewValidationErrorResponse lists every rejected field. The first one is
// also reported as the error field.
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	info := ErrorInfo{Code: ErrCodeValidation, Message: message, RequestID: requestID, Details: details}
	if len(details) > 0 {
		info.Field = details[0].Field
	}
	return failure(info)
}

// ListRequest is the query string of a list endpoint
type ListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Status   string `form:"status"`
}

// DefaultListRequest is the first page, newest first
func DefaultListRequest() ListRequest {
	return ListRequest{Page: 1, PageSize: shared.DefaultPageSize, OrderBy: "created_at", OrderDir: "desc"}
}

// Filter converts the query into a store filter
func (r ListRequest) Filter() shared.Filter {
	return shared.Filter{
		Page:     r.Page,
		PageSize: r.PageSize,
		OrderBy:  r.OrderBy,
		OrderDir: r.OrderDir,
		Status:   r.Status,
	}
}
