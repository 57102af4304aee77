package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised by an aggregate
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	CompanyID() uuid.UUID
}

// BaseDomainEvent implements DomainEvent. Concrete events embed it and add
// their payload fields.
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	At        time.Time `json:"timestamp"`
	Aggregate uuid.UUID `json:"aggregate_id"`
	RootType  string    `json:"aggregate_type"`
	Company   uuid.UUID `json:"company_id"`
}

// NewBaseDomainEvent stamps a new event with a fresh ID
func NewBaseDomainEvent(eventType, aggType string, aggID, companyID uuid.UUID, at time.Time) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		At:        at,
		Aggregate: aggID,
		RootType:  aggType,
		Company:   companyID,
	}
}

func (e *BaseDomainEvent) EventID() uuid.UUID     { return e.ID }
func (e *BaseDomainEvent) EventType() string      { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time  { return e.At }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.Aggregate }
func (e *BaseDomainEvent) AggregateType() string  { return e.RootType }
func (e *BaseDomainEvent) CompanyID() uuid.UUID   { return e.Company }

// EventHandler reacts to published events. An empty EventTypes subscribes
// to everything.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher delivers events to subscribed handlers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is a publisher handlers can subscribe to. Subscribe without
// explicit types uses the handler's own EventTypes.
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
