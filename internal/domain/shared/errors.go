package shared

import "fmt"

// Error codes shared by every document kind
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodePersistenceFailed   = "PERSISTENCE_FAILED"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so callers can write
// errors.Is(err, shared.ErrNotFound) regardless of the message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError reports a missing resource
func NewNotFoundError(resource, id string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", resource, id))
}

// NewInvalidTransitionError reports an action that is not legal from the current status.
// The message always names the offending (status, action) pair.
func NewInvalidTransitionError(resource, status, action string) *DomainError {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("Cannot %s %s in %s status", action, resource, status))
}

// NewValidationError reports a failed precondition on a single field
func NewValidationError(field, message string) *DomainError {
	return &DomainError{
		Code:    CodeValidationFailed,
		Message: message,
		Field:   field,
	}
}

// NewPersistenceError wraps a store failure. The cause stays reachable through errors.Unwrap.
func NewPersistenceError(op string, err error) *DomainError {
	return &DomainError{
		Code:    CodePersistenceFailed,
		Message: fmt.Sprintf("failed to %s: %v", op, err),
		Err:     err,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Transition not allowed in current status")
	ErrValidationFailed    = NewDomainError(CodeValidationFailed, "Validation failed")
	ErrPersistenceFailed   = NewDomainError(CodePersistenceFailed, "Persistence failed")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
)
