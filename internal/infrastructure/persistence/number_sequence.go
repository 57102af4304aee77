package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FormatDocumentNumber renders the human-readable number, e.g. INV-2026-00001
func FormatDocumentNumber(kind document.Kind, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", kind.NumberPrefix(), year, seq)
}

// GormNumberSequence hands out gap-free per-kind, per-year numbers from the
// document_sequences table. The increment is a single upsert statement, so
// concurrent callers never receive the same number.
type GormNumberSequence struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormNumberSequence creates a new GormNumberSequence
func NewGormNumberSequence(db *gorm.DB) *GormNumberSequence {
	return &GormNumberSequence{db: db, now: time.Now}
}

// WithClock replaces the clock used to pick the numbering year
func (s *GormNumberSequence) WithClock(now func() time.Time) *GormNumberSequence {
	s.now = now
	return s
}

// Next returns the next number for kind
func (s *GormNumberSequence) Next(ctx context.Context, kind document.Kind) (string, error) {
	if !kind.IsValid() {
		return "", shared.NewValidationError("kind", "Unknown document kind: "+string(kind))
	}
	year := s.now().UTC().Year()

	seq := models.DocumentSequenceModel{Kind: string(kind), Year: year, LastNumber: 1}
	err := s.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "kind"}, {Name: "year"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_number": gorm.Expr("document_sequences.last_number + 1"),
			}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "last_number"}}},
	).Create(&seq).Error
	if err != nil {
		return "", shared.NewPersistenceError("allocate "+string(kind)+" number", err)
	}

	return FormatDocumentNumber(kind, year, seq.LastNumber), nil
}
