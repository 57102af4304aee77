// Package lifecycle drives commercial documents through their status machines.
// It loads documents from the store, applies pure domain transitions and
// persists the result with a conditional update. Side effects (domain events,
// search sync) follow a successful write and never fail the operation.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/erp/docflow/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const spanService = "lifecycle"

// Config tunes the engine
type Config struct {
	// BulkConcurrency bounds how many ids of one bulk request are processed at once
	BulkConcurrency int
	// MaxBulkSize rejects bulk requests above this many ids
	MaxBulkSize int
	// ConflictRetries is how often a single transition re-reads after losing a race
	ConflictRetries int
}

// DefaultConfig returns the defaults used when no configuration is supplied
func DefaultConfig() Config {
	return Config{
		BulkConcurrency: 8,
		MaxBulkSize:     500,
		ConflictRetries: 3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BulkConcurrency <= 0 {
		c.BulkConcurrency = d.BulkConcurrency
	}
	if c.MaxBulkSize <= 0 {
		c.MaxBulkSize = d.MaxBulkSize
	}
	if c.ConflictRetries < 0 {
		c.ConflictRetries = 0
	}
	return c
}

// Engine is the upward API of the document lifecycle.
// It holds no per-document state; every call is a single operation.
type Engine struct {
	store     document.Store
	numbering document.Numbering
	search    document.SearchSync
	events    shared.EventPublisher
	metrics   *telemetry.LifecycleMetrics
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time
}

// NewEngine creates a new Engine. search may be nil.
func NewEngine(store document.Store, numbering document.Numbering, search document.SearchSync, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:     store,
		numbering: numbering,
		search:    search,
		logger:    log.Named("lifecycle"),
		cfg:       cfg.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetEventPublisher sets the publisher that receives the events of every successful write
func (e *Engine) SetEventPublisher(publisher shared.EventPublisher) {
	e.events = publisher
}

// SetMetrics sets the lifecycle metrics recorder
func (e *Engine) SetMetrics(m *telemetry.LifecycleMetrics) {
	e.metrics = m
}

// SetClock replaces the wall clock, used when callers leave Now unset
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Config returns the effective configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Transition applies action to one document and persists the result.
// A write that loses a race against another writer is retried from a fresh
// read, so a late pay still lands after a concurrent sweep marked the invoice overdue.
func (e *Engine) Transition(ctx context.Context, kind document.Kind, id uuid.UUID, action string, p document.TransitionParams) (document.Document, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "transition",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentKind, string(kind)),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAction, action),
	)
	defer span.End()

	if err := document.ValidateAction(kind, action); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if p.Now.IsZero() {
		p.Now = e.now()
	}

	doc, err := e.transition(ctx, kind, id, action, p)
	e.metrics.RecordTransition(ctx, string(kind), action, resultOf(err))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrDocumentNumber, doc.Head().Number)
	telemetry.SetOK(span)
	return doc, nil
}

// transition is the read-apply-write loop shared by Transition and BulkTransition
func (e *Engine) transition(ctx context.Context, kind document.Kind, id uuid.UUID, action string, p document.TransitionParams) (document.Document, error) {
	for attempt := 0; ; attempt++ {
		current, err := e.store.Get(ctx, kind, id)
		if err != nil {
			return nil, err
		}
		next, err := document.Apply(current, action, p)
		if err != nil {
			return nil, err
		}
		next.Head().UpdatedAt = p.Now
		err = e.store.Update(ctx, next, current.StatusName())
		if err == nil {
			e.afterWrite(ctx, next)
			return next, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt >= e.cfg.ConflictRetries {
			return nil, err
		}
		logger.For(ctx, e.logger).Debug("Retrying transition after concurrent update",
			append(logger.Document(string(kind), id),
				logger.Action(action),
				zap.Int("attempt", attempt+1),
			)...,
		)
	}
}

// Get returns the current snapshot of a document
func (e *Engine) Get(ctx context.Context, kind document.Kind, id uuid.UUID) (document.Document, error) {
	if !kind.IsValid() {
		return nil, shared.NewValidationError("kind", "Unknown document kind: "+string(kind))
	}
	return e.store.Get(ctx, kind, id)
}

// List returns one page of documents of kind
func (e *Engine) List(ctx context.Context, kind document.Kind, filter shared.Filter) ([]document.Document, int64, error) {
	if !kind.IsValid() {
		return nil, 0, shared.NewValidationError("kind", "Unknown document kind: "+string(kind))
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	return e.store.List(ctx, kind, filter)
}

// Health reports whether the document store is reachable
func (e *Engine) Health(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// afterWrite publishes the pending events of doc and tells search about its status.
// Neither can fail the write that already happened.
func (e *Engine) afterWrite(ctx context.Context, doc document.Document) {
	if events := doc.GetDomainEvents(); e.events != nil && len(events) > 0 {
		if err := e.events.Publish(ctx, events...); err != nil {
			logger.For(ctx, e.logger).Warn("Failed to publish document events",
				append(logger.Document(string(doc.Kind()), doc.GetID()), zap.Error(err))...,
			)
		}
	}
	doc.ClearDomainEvents()
	e.notifySearch(ctx, doc)
}

func (e *Engine) notifySearch(ctx context.Context, doc document.Document) {
	if e.search == nil {
		return
	}
	if err := e.search.Notify(ctx, doc.Kind(), doc.GetID(), doc.StatusName()); err != nil {
		e.metrics.RecordSearchSyncFailure(ctx, string(doc.Kind()))
		logger.For(ctx, e.logger).Warn("Search sync notification failed",
			append(logger.Document(string(doc.Kind()), doc.GetID()),
				logger.Status(doc.StatusName()),
				zap.Error(err),
			)...,
		)
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return telemetry.ResultSuccess
	case errors.Is(err, shared.ErrConcurrencyConflict):
		return telemetry.ResultConflict
	default:
		return telemetry.ResultFailed
	}
}

// errorCode returns the domain error code of err, defaulting to PERSISTENCE_FAILED
// for errors that did not come from the domain (driver errors, cancelled contexts).
func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return shared.CodePersistenceFailed
}
