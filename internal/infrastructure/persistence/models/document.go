package models

import (
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentModel holds the columns every document table shares.
// Version backs optimistic locking and is bumped by every update.
type DocumentModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
	Version    int             `gorm:"not null;default:1"`
	Number     string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	CompanyID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Currency   string          `gorm:"type:varchar(3);not null"`
	Status     string          `gorm:"type:varchar(20);not null;index"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Note       string          `gorm:"type:text"`
}

// Base returns the shared columns
func (m *DocumentModel) Base() *DocumentModel {
	return m
}

func (m *DocumentModel) fromHeader(h *document.Header, status string) {
	m.ID = h.ID
	m.CreatedAt = h.CreatedAt.UTC()
	m.UpdatedAt = h.UpdatedAt.UTC()
	m.Version = h.Version
	m.Number = h.Number
	m.CompanyID = h.CompanyID
	m.CustomerID = h.CustomerID
	m.Currency = h.Currency
	m.Status = status
	m.Subtotal = h.Totals.Subtotal
	m.TaxTotal = h.Totals.Tax
	m.Total = h.Totals.Total
	m.Note = h.Note
}

func (m *DocumentModel) toHeader(items []document.LineItem) document.Header {
	return document.Header{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Number:     m.Number,
		CompanyID:  m.CompanyID,
		CustomerID: m.CustomerID,
		Currency:   m.Currency,
		Items:      items,
		Totals: document.Totals{
			Subtotal: m.Subtotal,
			Tax:      m.TaxTotal,
			Total:    m.Total,
		},
		Note: m.Note,
	}
}

// mutable returns the columns a transition may change
func (m *DocumentModel) mutable() map[string]any {
	return map[string]any{
		"status":     m.Status,
		"note":       m.Note,
		"updated_at": m.UpdatedAt,
	}
}

// OfferModel is the persistence model for offers
type OfferModel struct {
	DocumentModel
	ValidUntil *time.Time `gorm:"index"`
	SentAt     *time.Time
	DecidedAt  *time.Time
}

// TableName returns the table name for GORM
func (OfferModel) TableName() string {
	return "offers"
}

// FromDomain populates the model from an offer
func (m *OfferModel) FromDomain(o *document.Offer) {
	m.fromHeader(o.Head(), string(o.Status))
	m.ValidUntil = utc(o.ValidUntil)
	m.SentAt = utc(o.SentAt)
	m.DecidedAt = utc(o.DecidedAt)
}

// ToDomain converts the model and its items to an offer
func (m *OfferModel) ToDomain(items []document.LineItem) document.Document {
	return &document.Offer{
		Header:     m.toHeader(items),
		Status:     document.OfferStatus(m.Status),
		ValidUntil: m.ValidUntil,
		SentAt:     m.SentAt,
		DecidedAt:  m.DecidedAt,
	}
}

// MutableColumns returns the columns written by a transition
func (m *OfferModel) MutableColumns() map[string]any {
	cols := m.mutable()
	cols["sent_at"] = m.SentAt
	cols["decided_at"] = m.DecidedAt
	return cols
}

// OrderModel is the persistence model for orders
type OrderModel struct {
	DocumentModel
	OfferID     *uuid.UUID `gorm:"type:uuid;index"`
	ConfirmedAt *time.Time
	FulfilledAt *time.Time
	CancelledAt *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// FromDomain populates the model from an order
func (m *OrderModel) FromDomain(o *document.Order) {
	m.fromHeader(o.Head(), string(o.Status))
	m.OfferID = o.OfferID
	m.ConfirmedAt = utc(o.ConfirmedAt)
	m.FulfilledAt = utc(o.FulfilledAt)
	m.CancelledAt = utc(o.CancelledAt)
}

// ToDomain converts the model and its items to an order
func (m *OrderModel) ToDomain(items []document.LineItem) document.Document {
	return &document.Order{
		Header:      m.toHeader(items),
		Status:      document.OrderStatus(m.Status),
		OfferID:     m.OfferID,
		ConfirmedAt: m.ConfirmedAt,
		FulfilledAt: m.FulfilledAt,
		CancelledAt: m.CancelledAt,
	}
}

// MutableColumns returns the columns written by a transition
func (m *OrderModel) MutableColumns() map[string]any {
	cols := m.mutable()
	cols["confirmed_at"] = m.ConfirmedAt
	cols["fulfilled_at"] = m.FulfilledAt
	cols["cancelled_at"] = m.CancelledAt
	return cols
}

// DeliveryModel is the persistence model for delivery notes
type DeliveryModel struct {
	DocumentModel
	OrderID      *uuid.UUID `gorm:"type:uuid;index"`
	DeliveryDate *time.Time
	SignedBy     string `gorm:"type:varchar(200)"`
	SignedAt     *time.Time
}

// TableName returns the table name for GORM
func (DeliveryModel) TableName() string {
	return "deliveries"
}

// FromDomain populates the model from a delivery
func (m *DeliveryModel) FromDomain(d *document.Delivery) {
	m.fromHeader(d.Head(), string(d.Status))
	m.OrderID = d.OrderID
	m.DeliveryDate = utc(d.DeliveryDate)
	m.SignedBy = d.SignedBy
	m.SignedAt = utc(d.SignedAt)
}

// ToDomain converts the model and its items to a delivery
func (m *DeliveryModel) ToDomain(items []document.LineItem) document.Document {
	return &document.Delivery{
		Header:       m.toHeader(items),
		Status:       document.DeliveryStatus(m.Status),
		OrderID:      m.OrderID,
		DeliveryDate: m.DeliveryDate,
		SignedBy:     m.SignedBy,
		SignedAt:     m.SignedAt,
	}
}

// MutableColumns returns the columns written by a transition
func (m *DeliveryModel) MutableColumns() map[string]any {
	cols := m.mutable()
	cols["delivery_date"] = m.DeliveryDate
	cols["signed_by"] = m.SignedBy
	cols["signed_at"] = m.SignedAt
	return cols
}

// InvoiceModel is the persistence model for invoices
type InvoiceModel struct {
	DocumentModel
	OrderID     *uuid.UUID `gorm:"type:uuid;index"`
	DeliveryID  *uuid.UUID `gorm:"type:uuid;index"`
	IssueDate   *time.Time
	DueDate     time.Time `gorm:"not null;index"`
	SentAt      *time.Time
	PaidAt      *time.Time
	CancelledAt *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// FromDomain populates the model from an invoice
func (m *InvoiceModel) FromDomain(i *document.Invoice) {
	m.fromHeader(i.Head(), string(i.Status))
	m.OrderID = i.OrderID
	m.DeliveryID = i.DeliveryID
	m.IssueDate = utc(i.IssueDate)
	m.DueDate = i.DueDate.UTC()
	m.SentAt = utc(i.SentAt)
	m.PaidAt = utc(i.PaidAt)
	m.CancelledAt = utc(i.CancelledAt)
}

// ToDomain converts the model and its items to an invoice
func (m *InvoiceModel) ToDomain(items []document.LineItem) document.Document {
	return &document.Invoice{
		Header:      m.toHeader(items),
		Status:      document.InvoiceStatus(m.Status),
		OrderID:     m.OrderID,
		DeliveryID:  m.DeliveryID,
		IssueDate:   m.IssueDate,
		DueDate:     m.DueDate,
		SentAt:      m.SentAt,
		PaidAt:      m.PaidAt,
		CancelledAt: m.CancelledAt,
	}
}

// MutableColumns returns the columns written by a transition
func (m *InvoiceModel) MutableColumns() map[string]any {
	cols := m.mutable()
	cols["issue_date"] = m.IssueDate
	cols["sent_at"] = m.SentAt
	cols["paid_at"] = m.PaidAt
	cols["cancelled_at"] = m.CancelledAt
	return cols
}

// LineItemModel stores the line items of every document kind
type LineItemModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	DocumentKind string          `gorm:"type:varchar(20);not null;index:idx_line_items_document"`
	DocumentID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_line_items_document"`
	Position     int             `gorm:"not null"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null"`
	Description  string          `gorm:"type:text"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineTax      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (LineItemModel) TableName() string {
	return "document_line_items"
}

// LineItemModelsFromDomain converts the items of a document, keeping their order
func LineItemModelsFromDomain(kind document.Kind, documentID uuid.UUID, items []document.LineItem) []LineItemModel {
	out := make([]LineItemModel, len(items))
	for i, item := range items {
		out[i] = LineItemModel{
			ID:           uuid.New(),
			DocumentKind: string(kind),
			DocumentID:   documentID,
			Position:     i,
			ProductID:    item.ProductID,
			Description:  item.Description,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TaxRate:      item.TaxRate,
			LineTotal:    item.LineTotal,
			LineTax:      item.LineTax,
		}
	}
	return out
}

// ToDomain converts the model to a line item
func (m *LineItemModel) ToDomain() document.LineItem {
	return document.LineItem{
		ProductID:   m.ProductID,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		TaxRate:     m.TaxRate,
		LineTotal:   m.LineTotal,
		LineTax:     m.LineTax,
	}
}

// DocumentSequenceModel holds the last number handed out per kind and year
type DocumentSequenceModel struct {
	Kind       string `gorm:"type:varchar(20);primaryKey"`
	Year       int    `gorm:"primaryKey"`
	LastNumber int64  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
