package document

import (
	"time"

	"github.com/erp/docflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeDocumentCreated       = "document.created"
	EventTypeDocumentStatusChanged = "document.status_changed"
)

// StatusChangedEvent is raised on every successful transition
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	Kind       Kind   `json:"kind"`
	Number     string `json:"number"`
	Action     string `json:"action"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Reason     string `json:"reason,omitempty"`
}

// NewStatusChangedEvent creates a new StatusChangedEvent for doc, which already carries the new status
func NewStatusChangedEvent(doc Document, action, fromStatus, reason string, at time.Time) *StatusChangedEvent {
	h := doc.Head()
	return &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentStatusChanged, doc.Kind().AggregateType(), h.ID, h.CompanyID, at),
		Kind:            doc.Kind(),
		Number:          h.Number,
		Action:          action,
		FromStatus:      fromStatus,
		ToStatus:        doc.StatusName(),
		Reason:          reason,
	}
}

// CreatedEvent is raised when a document is created directly or by conversion
type CreatedEvent struct {
	shared.BaseDomainEvent
	Kind       Kind            `json:"kind"`
	Number     string          `json:"number"`
	Status     string          `json:"status"`
	Total      decimal.Decimal `json:"total"`
	SourceKind Kind            `json:"source_kind,omitempty"`
	SourceID   *uuid.UUID      `json:"source_id,omitempty"`
}

// NewCreatedEvent creates a new CreatedEvent. source may be nil.
func NewCreatedEvent(doc Document, source Document, at time.Time) *CreatedEvent {
	h := doc.Head()
	e := &CreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, doc.Kind().AggregateType(), h.ID, h.CompanyID, at),
		Kind:            doc.Kind(),
		Number:          h.Number,
		Status:          doc.StatusName(),
		Total:           h.Totals.Total,
	}
	if source != nil {
		id := source.GetID()
		e.SourceKind = source.Kind()
		e.SourceID = &id
	}
	return e
}
