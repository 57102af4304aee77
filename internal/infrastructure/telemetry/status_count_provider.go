package telemetry

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// documentTables maps document kinds to their tables
var documentTables = map[string]string{
	"offer":    "offers",
	"order":    "orders",
	"delivery": "deliveries",
	"invoice":  "invoices",
}

// GormStatusCountProvider implements StatusCountProvider with one GROUP BY per document table
type GormStatusCountProvider struct {
	db *gorm.DB
}

// NewGormStatusCountProvider creates a new GormStatusCountProvider
func NewGormStatusCountProvider(db *gorm.DB) *GormStatusCountProvider {
	return &GormStatusCountProvider{db: db}
}

// CountByStatus returns kind -> status -> count
func (p *GormStatusCountProvider) CountByStatus(ctx context.Context) (map[string]map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}

	out := make(map[string]map[string]int64, len(documentTables))
	for kind, table := range documentTables {
		var rows []row
		err := p.db.WithContext(ctx).
			Table(table).
			Select("status, COUNT(*) AS count").
			Group("status").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count %s by status: %w", table, err)
		}
		byStatus := make(map[string]int64, len(rows))
		for _, r := range rows {
			byStatus[r.Status] = r.Count
		}
		out[kind] = byStatus
	}
	return out, nil
}
