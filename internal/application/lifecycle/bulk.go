package lifecycle

import (
	"context"
	"fmt"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/erp/docflow/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BulkFailure describes one id of a bulk request that did not transition
type BulkFailure struct {
	ID     uuid.UUID `json:"id"`
	Code   string    `json:"code"`
	Reason string    `json:"reason"`
}

// BulkResult is the aggregate outcome of a bulk transition.
// Failures are listed in the order their ids were given.
type BulkResult struct {
	SuccessCount int           `json:"success_count"`
	FailedCount  int           `json:"failed_count"`
	Failures     []BulkFailure `json:"failures"`
}

// BulkTransition applies action to every id. Item failures are recorded in the
// result and never abort the batch. An error is returned only when the batch
// cannot start at all.
func (e *Engine) BulkTransition(ctx context.Context, kind document.Kind, ids []uuid.UUID, action string, p document.TransitionParams) (*BulkResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "bulk_transition",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentKind, string(kind)),
		telemetry.WithAttribute(telemetry.SpanAttrAction, action),
		telemetry.WithAttribute(telemetry.SpanAttrBatchSize, len(ids)),
	)
	defer span.End()

	if err := document.ValidateAction(kind, action); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(ids) > e.cfg.MaxBulkSize {
		err := shared.NewValidationError("ids",
			fmt.Sprintf("Bulk request has %d ids, the limit is %d", len(ids), e.cfg.MaxBulkSize))
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &BulkResult{Failures: []BulkFailure{}}
	if len(ids) == 0 {
		return result, nil
	}
	if err := e.store.Ping(ctx); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if p.Now.IsZero() {
		p.Now = e.now()
	}

	outcomes := make([]error, len(ids))
	run := func(i int) {
		_, outcomes[i] = e.transition(ctx, kind, ids[i], action, p)
	}

	if hasDuplicates(ids) || e.cfg.BulkConcurrency == 1 {
		// The second occurrence of an id must observe the first one's write.
		for i := range ids {
			run(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(e.cfg.BulkConcurrency)
		for i := range ids {
			g.Go(func() error {
				run(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, err := range outcomes {
		if err == nil {
			result.SuccessCount++
			continue
		}
		result.FailedCount++
		result.Failures = append(result.Failures, BulkFailure{
			ID:     ids[i],
			Code:   errorCode(err),
			Reason: err.Error(),
		})
	}

	e.metrics.RecordBulk(ctx, string(kind), action, result.SuccessCount, result.FailedCount)
	telemetry.SetAttributes(span, "bulk.succeeded", result.SuccessCount, "bulk.failed", result.FailedCount)
	telemetry.SetOK(span)

	logger.For(ctx, e.logger).Info("Bulk transition finished",
		zap.String(logger.FieldKind, string(kind)),
		logger.Action(action),
		zap.Int("requested", len(ids)),
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.FailedCount),
	)
	return result, nil
}

func hasDuplicates(ids []uuid.UUID) bool {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
