package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentRow is implemented by the per-kind persistence models
type documentRow interface {
	TableName() string
	Base() *models.DocumentModel
	ToDomain(items []document.LineItem) document.Document
	MutableColumns() map[string]any
}

// DocumentSortFields whitelists the columns a listing may be ordered by
var DocumentSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"number":     true,
	"status":     true,
	"total":      true,
}

// orderBy builds the ORDER BY column for f. Unknown fields fall back to
// created_at and any direction other than asc sorts descending.
func orderBy(f shared.Filter) clause.OrderByColumn {
	column := strings.TrimSpace(f.OrderBy)
	if !DocumentSortFields[column] {
		column = "created_at"
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: column},
		Desc:   !strings.EqualFold(strings.TrimSpace(f.OrderDir), "asc"),
	}
}

// GormDocumentStore implements document.Store using GORM
type GormDocumentStore struct {
	db *gorm.DB
}

// NewGormDocumentStore creates a new GormDocumentStore
func NewGormDocumentStore(db *gorm.DB) *GormDocumentStore {
	return &GormDocumentStore{db: db}
}

func newRow(kind document.Kind) (documentRow, error) {
	switch kind {
	case document.KindOffer:
		return &models.OfferModel{}, nil
	case document.KindOrder:
		return &models.OrderModel{}, nil
	case document.KindDelivery:
		return &models.DeliveryModel{}, nil
	case document.KindInvoice:
		return &models.InvoiceModel{}, nil
	}
	return nil, shared.NewValidationError("kind", "Unknown document kind: "+string(kind))
}

func rowFromDomain(doc document.Document) (documentRow, error) {
	switch d := doc.(type) {
	case *document.Offer:
		m := &models.OfferModel{}
		m.FromDomain(d)
		return m, nil
	case *document.Order:
		m := &models.OrderModel{}
		m.FromDomain(d)
		return m, nil
	case *document.Delivery:
		m := &models.DeliveryModel{}
		m.FromDomain(d)
		return m, nil
	case *document.Invoice:
		m := &models.InvoiceModel{}
		m.FromDomain(d)
		return m, nil
	}
	return nil, shared.NewValidationError("kind", fmt.Sprintf("Unsupported document type %T", doc))
}

// Get returns the document of kind with the given id
func (s *GormDocumentStore) Get(ctx context.Context, kind document.Kind, id uuid.UUID) (document.Document, error) {
	row, err := newRow(kind)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(string(kind), id.String())
		}
		return nil, shared.NewPersistenceError("load "+string(kind), err)
	}

	items, err := s.loadItems(ctx, kind, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	return row.ToDomain(items[id]), nil
}

// List returns one page of documents of kind
func (s *GormDocumentStore) List(ctx context.Context, kind document.Kind, filter shared.Filter) ([]document.Document, int64, error) {
	probe, err := newRow(kind)
	if err != nil {
		return nil, 0, err
	}
	query := s.db.WithContext(ctx).Table(probe.TableName())
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, shared.NewPersistenceError("count "+string(kind), err)
	}

	rows, err := s.findRows(query.
		Order(orderBy(filter)).
		Limit(filter.Limit()).
		Offset(filter.Offset()), kind)
	if err != nil {
		return nil, 0, err
	}
	docs, err := s.hydrate(ctx, kind, rows)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Create inserts doc and its line items in one transaction
func (s *GormDocumentStore) Create(ctx context.Context, doc document.Document) error {
	row, err := rowFromDomain(doc)
	if err != nil {
		return err
	}
	h := doc.Head()
	items := models.LineItemModelsFromDomain(doc.Kind(), h.ID, h.Items)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			return tx.Create(&items).Error
		}
		return nil
	})
	if err != nil {
		return shared.NewPersistenceError("create "+string(doc.Kind()), err)
	}
	return nil
}

// Update persists the transition result held by doc.
// The write only applies while the stored row still has doc's version and expectedStatus.
func (s *GormDocumentStore) Update(ctx context.Context, doc document.Document, expectedStatus string) error {
	row, err := rowFromDomain(doc)
	if err != nil {
		return err
	}
	h := doc.Head()
	cols := row.MutableColumns()
	cols["version"] = h.Version + 1

	result := s.db.WithContext(ctx).
		Table(row.TableName()).
		Where("id = ? AND version = ? AND status = ?", h.ID, h.Version, expectedStatus).
		Updates(cols)
	if result.Error != nil {
		return shared.NewPersistenceError("update "+string(doc.Kind()), result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Table(row.TableName()).Where("id = ?", h.ID).Count(&count).Error; err != nil {
			return shared.NewPersistenceError("update "+string(doc.Kind()), err)
		}
		if count == 0 {
			return shared.NewNotFoundError(string(doc.Kind()), h.ID.String())
		}
		return shared.NewDomainError(shared.CodeConcurrencyConflict,
			fmt.Sprintf("%s %s was modified by another process", doc.Kind(), h.ID))
	}

	h.Version++
	return nil
}

// QueryOverdueCandidates returns SENT invoices whose due date lies before now.
// OVERDUE, PAID and CANCELLED invoices are excluded by the query itself.
func (s *GormDocumentStore) QueryOverdueCandidates(ctx context.Context, now time.Time) ([]*document.Invoice, error) {
	var rows []models.InvoiceModel
	err := s.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", string(document.InvoiceStatusSent), now.UTC()).
		Order("due_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, shared.NewPersistenceError("query overdue invoices", err)
	}

	generic := make([]documentRow, len(rows))
	for i := range rows {
		generic[i] = &rows[i]
	}
	docs, err := s.hydrate(ctx, document.KindInvoice, generic)
	if err != nil {
		return nil, err
	}
	out := make([]*document.Invoice, len(docs))
	for i, d := range docs {
		out[i] = d.(*document.Invoice)
	}
	return out, nil
}

// QueryExpiredOfferCandidates returns SENT offers whose validity ended before now
func (s *GormDocumentStore) QueryExpiredOfferCandidates(ctx context.Context, now time.Time) ([]*document.Offer, error) {
	var rows []models.OfferModel
	err := s.db.WithContext(ctx).
		Where("status = ? AND valid_until IS NOT NULL AND valid_until < ?", string(document.OfferStatusSent), now.UTC()).
		Order("valid_until ASC").
		Find(&rows).Error
	if err != nil {
		return nil, shared.NewPersistenceError("query expired offers", err)
	}

	generic := make([]documentRow, len(rows))
	for i := range rows {
		generic[i] = &rows[i]
	}
	docs, err := s.hydrate(ctx, document.KindOffer, generic)
	if err != nil {
		return nil, err
	}
	out := make([]*document.Offer, len(docs))
	for i, d := range docs {
		out[i] = d.(*document.Offer)
	}
	return out, nil
}

// Ping checks that the database answers
func (s *GormDocumentStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return shared.NewPersistenceError("reach database", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return shared.NewPersistenceError("reach database", err)
	}
	return nil
}

func (s *GormDocumentStore) findRows(query *gorm.DB, kind document.Kind) ([]documentRow, error) {
	var out []documentRow
	var err error
	switch kind {
	case document.KindOffer:
		var rows []models.OfferModel
		err = query.Find(&rows).Error
		for i := range rows {
			out = append(out, &rows[i])
		}
	case document.KindOrder:
		var rows []models.OrderModel
		err = query.Find(&rows).Error
		for i := range rows {
			out = append(out, &rows[i])
		}
	case document.KindDelivery:
		var rows []models.DeliveryModel
		err = query.Find(&rows).Error
		for i := range rows {
			out = append(out, &rows[i])
		}
	case document.KindInvoice:
		var rows []models.InvoiceModel
		err = query.Find(&rows).Error
		for i := range rows {
			out = append(out, &rows[i])
		}
	}
	if err != nil {
		return nil, shared.NewPersistenceError("list "+string(kind), err)
	}
	return out, nil
}

func (s *GormDocumentStore) hydrate(ctx context.Context, kind document.Kind, rows []documentRow) ([]document.Document, error) {
	if len(rows) == 0 {
		return []document.Document{}, nil
	}
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.Base().ID
	}
	items, err := s.loadItems(ctx, kind, ids)
	if err != nil {
		return nil, err
	}
	docs := make([]document.Document, len(rows))
	for i, r := range rows {
		docs[i] = r.ToDomain(items[r.Base().ID])
	}
	return docs, nil
}

func (s *GormDocumentStore) loadItems(ctx context.Context, kind document.Kind, ids []uuid.UUID) (map[uuid.UUID][]document.LineItem, error) {
	var rows []models.LineItemModel
	err := s.db.WithContext(ctx).
		Where("document_kind = ? AND document_id IN ?", string(kind), ids).
		Order("document_id, position").
		Find(&rows).Error
	if err != nil {
		return nil, shared.NewPersistenceError("load line items", err)
	}
	out := make(map[uuid.UUID][]document.LineItem, len(ids))
	for i := range rows {
		out[rows[i].DocumentID] = append(out[rows[i].DocumentID], rows[i].ToDomain())
	}
	return out, nil
}
