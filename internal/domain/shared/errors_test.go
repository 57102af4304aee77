package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target *DomainError
	}{
		{"not found", NewNotFoundError("invoice", "42"), ErrNotFound},
		{"invalid transition", NewInvalidTransitionError("offer", "ACCEPTED", "reject"), ErrInvalidTransition},
		{"validation", NewValidationError("signed_by", "Signer is required"), ErrValidationFailed},
		{"persistence", NewPersistenceError("save invoice", errors.New("connection reset")), ErrPersistenceFailed},
		{"wrapped", fmt.Errorf("outer: %w", NewNotFoundError("order", "7")), ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.target))
			assert.False(t, errors.Is(tt.err, ErrConcurrencyConflict))
		})
	}
}

func TestNewInvalidTransitionError_NamesStatusAndAction(t *testing.T) {
	err := NewInvalidTransitionError("offer", "ACCEPTED", "reject")
	assert.Equal(t, CodeInvalidTransition, err.Code)
	assert.Contains(t, err.Error(), "ACCEPTED")
	assert.Contains(t, err.Error(), "reject")
}

func TestNewPersistenceError_KeepsCause(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := NewPersistenceError("load offer", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "deadline exceeded")
}

func TestNewValidationError_Field(t *testing.T) {
	err := NewValidationError("due_date", "Due date is required")
	var de *DomainError
	require.True(t, errors.As(error(err), &de))
	assert.Equal(t, "due_date", de.Field)
	assert.Equal(t, CodeValidationFailed, de.Code)
}
