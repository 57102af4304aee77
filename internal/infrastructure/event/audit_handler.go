package event

import (
	"context"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes one structured log line per document lifecycle event
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an AuditLogHandler
func NewAuditLogHandler(log *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: log.Named("audit")}
}

// EventTypes implements shared.EventHandler
func (h *AuditLogHandler) EventTypes() []string {
	return []string{document.EventTypeDocumentCreated, document.EventTypeDocumentStatusChanged}
}

// Handle implements shared.EventHandler
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	log := logger.For(ctx, h.logger).With(
		zap.String("event_id", event.EventID().String()),
		zap.String("company_id", event.CompanyID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)

	switch e := event.(type) {
	case *document.StatusChangedEvent:
		log.Info("Document status changed",
			append(logger.Document(string(e.Kind), e.AggregateID()),
				zap.String("number", e.Number),
				logger.Action(e.Action),
				zap.String("from_status", e.FromStatus),
				zap.String("to_status", e.ToStatus),
				zap.String("reason", e.Reason),
			)...,
		)
	case *document.CreatedEvent:
		fields := append(logger.Document(string(e.Kind), e.AggregateID()),
			zap.String("number", e.Number),
			logger.Status(e.Status),
			zap.String("total", e.Total.StringFixed(document.MoneyScale)),
		)
		if e.SourceID != nil {
			fields = append(fields,
				zap.String("source_kind", string(e.SourceKind)),
				zap.String("source_id", e.SourceID.String()),
			)
		}
		log.Info("Document created", fields...)
	default:
		log.Debug("Ignoring event", zap.String("event_type", event.EventType()))
	}
	return nil
}
