package document

import (
	"context"
	"time"

	"github.com/erp/docflow/internal/domain/shared"
	"github.com/google/uuid"
)

// Store is the document store gateway.
// There is no write that sets a status directly: Update only persists a snapshot
// produced by a transition, and only if the stored row still matches it.
type Store interface {
	// Get returns the document or a NOT_FOUND error
	Get(ctx context.Context, kind Kind, id uuid.UUID) (Document, error)
	// List returns one page of documents of kind, newest first by default
	List(ctx context.Context, kind Kind, filter shared.Filter) ([]Document, int64, error)
	// Create inserts a new document together with its line items
	Create(ctx context.Context, doc Document) error
	// Update writes the status and milestone fields of doc if the stored row
	// still has doc's version and expectedStatus. On success doc's version is incremented.
	// A lost race returns a CONCURRENCY_CONFLICT error.
	Update(ctx context.Context, doc Document, expectedStatus string) error
	// QueryOverdueCandidates returns SENT invoices whose due date is before now
	QueryOverdueCandidates(ctx context.Context, now time.Time) ([]*Invoice, error)
	// QueryExpiredOfferCandidates returns SENT offers whose validity ended before now
	QueryExpiredOfferCandidates(ctx context.Context, now time.Time) ([]*Offer, error)
	// Ping checks that the store is reachable
	Ping(ctx context.Context) error
}

// Numbering hands out sequential, kind-scoped document numbers
type Numbering interface {
	Next(ctx context.Context, kind Kind) (string, error)
}

// SearchSync is told about every status change. It is best effort.
type SearchSync interface {
	Notify(ctx context.Context, kind Kind, id uuid.UUID, status string) error
}
