package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/erp/docflow/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Sweep names, used on logs and metrics
const (
	SweepOverdueInvoices = "overdue_invoices"
	SweepExpiredOffers   = "expired_offers"
)

// SweepOverdue marks every SENT invoice whose due date lies before now as OVERDUE
// and returns how many were transitioned. A zero now means the current time.
//
// Candidates are selected by the store query, so invoices that are already
// OVERDUE, PAID or CANCELLED are never touched and a second run returns 0.
// An invoice paid between the query and the write keeps its PAID status.
func (e *Engine) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	if now.IsZero() {
		now = e.now()
	}
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "sweep_overdue",
		telemetry.WithAttribute(telemetry.SpanAttrSweep, SweepOverdueInvoices))
	defer span.End()

	candidates, err := e.store.QueryOverdueCandidates(ctx, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	docs := make([]document.Document, len(candidates))
	for i, inv := range candidates {
		docs[i] = inv
	}
	n := e.sweep(ctx, SweepOverdueInvoices, docs, string(document.InvoiceActionMarkOverdue), now)
	telemetry.SetOK(span)
	return n, nil
}

// SweepExpiredOffers moves every SENT offer whose validity ended before now to EXPIRED
func (e *Engine) SweepExpiredOffers(ctx context.Context, now time.Time) (int, error) {
	if now.IsZero() {
		now = e.now()
	}
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "sweep_expired_offers",
		telemetry.WithAttribute(telemetry.SpanAttrSweep, SweepExpiredOffers))
	defer span.End()

	candidates, err := e.store.QueryExpiredOfferCandidates(ctx, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	docs := make([]document.Document, len(candidates))
	for i, o := range candidates {
		docs[i] = o
	}
	n := e.sweep(ctx, SweepExpiredOffers, docs, string(document.OfferActionExpire), now)
	telemetry.SetOK(span)
	return n, nil
}

// sweep applies action to each candidate with a single conditional write.
// A candidate whose row changed since the query is skipped rather than retried;
// a store failure on one candidate is logged and left for the next run.
func (e *Engine) sweep(ctx context.Context, name string, candidates []document.Document, action string, now time.Time) int {
	start := time.Now()
	log := logger.For(ctx, e.logger).With(zap.String("sweep", name))

	var transitioned, skipped, failed int
	for _, current := range candidates {
		if ctx.Err() != nil {
			log.Warn("Sweep interrupted", zap.Error(ctx.Err()), zap.Int("remaining", len(candidates)-transitioned-skipped-failed))
			break
		}

		next, err := document.Apply(current, action, document.TransitionParams{Now: now})
		if err != nil {
			skipped++
			log.Debug("Sweep candidate rejected by state machine",
				append(logger.Document(string(current.Kind()), current.GetID()), zap.Error(err))...)
			continue
		}
		next.Head().UpdatedAt = now

		err = e.store.Update(ctx, next, current.StatusName())
		switch {
		case err == nil:
			transitioned++
			e.afterWrite(ctx, next)
		case errors.Is(err, shared.ErrConcurrencyConflict), errors.Is(err, shared.ErrNotFound):
			skipped++
			log.Info("Sweep candidate changed concurrently, skipping",
				logger.Document(string(current.Kind()), current.GetID())...)
		default:
			failed++
			log.Error("Sweep candidate update failed",
				append(logger.Document(string(current.Kind()), current.GetID()), zap.Error(err))...)
		}
	}

	e.metrics.RecordSweep(ctx, name, transitioned, skipped, time.Since(start))
	log.Info("Sweep finished",
		zap.Time("now", now),
		zap.Int("candidates", len(candidates)),
		zap.Int("transitioned", transitioned),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)),
	)
	return transitioned
}
