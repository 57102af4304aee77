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
)

// Convert derives a new document of kind target from an existing source document.
// The source keeps its status. Every failure comes back as a *document.ConversionError
// that unwraps to the typed domain error.
func (e *Engine) Convert(ctx context.Context, source document.Kind, sourceID uuid.UUID, target document.Kind, p document.ConversionParams) (document.Document, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "convert",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentKind, string(source)),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, sourceID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrTargetKind, string(target)),
	)
	defer span.End()

	doc, err := e.convert(ctx, source, sourceID, target, p)
	e.metrics.RecordConversion(ctx, string(source), string(target), resultOf(err))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, &document.ConversionError{Source: source, Target: target, SourceID: sourceID, Err: err}
	}
	telemetry.SetOK(span)

	logger.For(ctx, e.logger).Info("Document converted",
		append(logger.Document(string(target), doc.GetID()),
			zap.String("number", doc.Head().Number),
			zap.String("source_kind", string(source)),
			zap.String("source_id", sourceID.String()),
		)...,
	)
	return doc, nil
}

func (e *Engine) convert(ctx context.Context, source document.Kind, sourceID uuid.UUID, target document.Kind, p document.ConversionParams) (document.Document, error) {
	if !document.CanConvert(source, target) {
		return nil, shared.NewValidationError("target", fmt.Sprintf("Cannot convert %s to %s", source, target))
	}
	src, err := e.store.Get(ctx, source, sourceID)
	if err != nil {
		return nil, err
	}
	// Checked before a number is drawn so a bad request does not leave a gap in the sequence.
	if target == document.KindInvoice && p.DueDate == nil {
		return nil, shared.NewValidationError("due_date", "Due date is required to create an invoice")
	}

	number, err := e.numbering.Next(ctx, target)
	if err != nil {
		return nil, err
	}
	derived, err := document.Derive(src, target, number, p, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.store.Create(ctx, derived); err != nil {
		return nil, err
	}
	e.afterWrite(ctx, derived)
	return derived, nil
}
