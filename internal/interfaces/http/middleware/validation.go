package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/erp/docflow/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var setupOnce sync.Once

// SetupValidator makes gin's validator report JSON field names
func SetupValidator() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name == "" {
					name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
				}
				return name
			})
		}
	})
}

// FormatValidationErrors converts a binding error into the error envelope
func FormatValidationErrors(err error, requestID string) dto.Response {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]dto.ValidationDetail, 0, len(validationErrors))
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   fieldPath(e),
				Message: getValidationMessage(e),
			})
		}
		return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		return dto.NewFieldErrorResponse(dto.ErrCodeInvalidJSON,
			"Invalid value for "+typeErr.Field, typeErr.Field, requestID)
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, "Request body is not valid JSON", requestID)
	default:
		return dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest, err.Error(), requestID)
	}
}

// HandleValidationError answers 400 with the formatted binding error
func HandleValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, getRequestID(c)))
}

// fieldPath drops the root struct name from the namespace,
// e.g. "createDocumentRequest.items[0].product_id" becomes "items[0].product_id".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " entries"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at most " + e.Param() + " entries"
		}
		return "Must be at most " + e.Param()
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "iso4217":
		return "Must be an ISO 4217 currency code"
	default:
		return "Invalid value"
	}
}
