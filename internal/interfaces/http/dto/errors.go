package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodePersistence is used when the document store failed
	ErrCodePersistence = "ERR_PERSISTENCE"
	// ErrCodeUnavailable is used when a dependency is unreachable
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Lifecycle error codes
const (
	// ErrCodeInvalidTransition is used when an action is not allowed in the current status
	ErrCodeInvalidTransition = "ERR_INVALID_TRANSITION"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodePersistence: http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusServiceUnavailable,

	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// A refused transition is a client error, not a 422.
	ErrCodeInvalidTransition: http.StatusBadRequest,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"INVALID_TRANSITION":   ErrCodeInvalidTransition,
	"VALIDATION_FAILED":    ErrCodeValidation,
	"PERSISTENCE_FAILED":   ErrCodePersistence,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
