package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is anything identified by a UUID
type Entity interface {
	GetID() uuid.UUID
}

// AggregateRoot is a versioned entity that buffers the events it raises
// until the application layer publishes them after a successful save.
type AggregateRoot interface {
	Entity
	GetVersion() int
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseEntity holds identity and timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID { return e.ID }

// BaseAggregateRoot adds the optimistic-lock version and the pending event
// buffer. Version starts at 1 and grows by one with every stored change.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

// NewBaseAggregateRoot returns a fresh root with a new ID stamped at now
func NewBaseAggregateRoot(now time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Version:    1,
	}
}

func (a *BaseAggregateRoot) GetVersion() int                  { return a.Version }
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) { a.pending = append(a.pending, event) }
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent   { return a.pending }
func (a *BaseAggregateRoot) ClearDomainEvents()               { a.pending = nil }

// Fork returns a copy whose pending events no longer share storage with the receiver
func (a BaseAggregateRoot) Fork() BaseAggregateRoot {
	a.pending = append([]DomainEvent(nil), a.pending...)
	return a
}
