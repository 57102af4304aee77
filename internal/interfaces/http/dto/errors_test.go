package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodePersistence, http.StatusInternalServerError},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidTransition, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"INVALID_TRANSITION", ErrCodeInvalidTransition},
		{"VALIDATION_FAILED", ErrCodeValidation},
		{"PERSISTENCE_FAILED", ErrCodePersistence},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		// Already normalized or unknown codes pass through
		{ErrCodeNotFound, ErrCodeNotFound},
		{"SOMETHING_ELSE", "SOMETHING_ELSE"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestResponseEnvelope(t *testing.T) {
	t.Run("success omits error", func(t *testing.T) {
		raw, err := json.Marshal(NewSuccessResponse(map[string]int{"count": 2}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"data":{"count":2}}`, string(raw))
	})

	t.Run("field error", func(t *testing.T) {
		raw, err := json.Marshal(NewFieldErrorResponse(ErrCodeValidation, "due date is required", "due_date", "req-1"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_VALIDATION","message":"due date is required","field":"due_date","request_id":"req-1"}}`, string(raw))
	})

	t.Run("validation details lead with the first field", func(t *testing.T) {
		resp := NewValidationErrorResponse("Request validation failed", "", []ValidationDetail{
			{Field: "action", Message: "This field is required"},
			{Field: "ids", Message: "This field is required"},
		})
		assert.False(t, resp.Success)
		assert.Equal(t, "action", resp.Error.Field)
		assert.Len(t, resp.Error.Details, 2)
	})

	t.Run("pagination meta", func(t *testing.T) {
		resp := NewSuccessResponseWithMeta([]string{}, 41, 2, 20)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 3, resp.Meta.TotalPages)
	})
}

func TestListRequest_Filter(t *testing.T) {
	f := DefaultListRequest().Filter()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 20, f.Limit())
	assert.Equal(t, 0, f.Offset())
	assert.Equal(t, "desc", f.OrderDir)

	f = ListRequest{Page: 3, PageSize: 10, Status: "SENT"}.Filter()
	assert.Equal(t, 20, f.Offset())
	assert.Equal(t, "SENT", f.Status)
}
