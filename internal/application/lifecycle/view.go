package lifecycle

import (
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemView is the read shape of a line item
type LineItemView struct {
	ProductID   uuid.UUID       `json:"product_id"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	LineTotal   decimal.Decimal `json:"line_total"`
	LineTax     decimal.Decimal `json:"line_tax"`
}

// DocumentView is the flattened read shape shared by every document kind.
// Kind-specific fields are omitted when they do not apply.
type DocumentView struct {
	ID               uuid.UUID       `json:"id"`
	Kind             document.Kind   `json:"kind"`
	Number           string          `json:"number"`
	Status           string          `json:"status"`
	AvailableActions []string        `json:"available_actions"`
	CompanyID        uuid.UUID       `json:"company_id"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	Currency         string          `json:"currency"`
	Items            []LineItemView  `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	Note             string          `json:"note,omitempty"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Lineage
	OfferID    *uuid.UUID `json:"offer_id,omitempty"`
	OrderID    *uuid.UUID `json:"order_id,omitempty"`
	DeliveryID *uuid.UUID `json:"delivery_id,omitempty"`

	// Milestones
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
	IssueDate    *time.Time `json:"issue_date,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	FulfilledAt  *time.Time `json:"fulfilled_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	SignedBy     string     `json:"signed_by,omitempty"`
	SignedAt     *time.Time `json:"signed_at,omitempty"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
}

// ToView converts a document into its read shape
func ToView(doc document.Document) DocumentView {
	h := doc.Head()
	v := DocumentView{
		ID:               h.ID,
		Kind:             doc.Kind(),
		Number:           h.Number,
		Status:           doc.StatusName(),
		AvailableActions: doc.AvailableActions(),
		CompanyID:        h.CompanyID,
		CustomerID:       h.CustomerID,
		Currency:         h.Currency,
		Items:            make([]LineItemView, len(h.Items)),
		Subtotal:         h.Totals.Subtotal,
		Tax:              h.Totals.Tax,
		Total:            h.Totals.Total,
		Note:             h.Note,
		Version:          h.Version,
		CreatedAt:        h.CreatedAt,
		UpdatedAt:        h.UpdatedAt,
	}
	for i, it := range h.Items {
		v.Items[i] = LineItemView(it)
	}

	switch d := doc.(type) {
	case *document.Offer:
		v.ValidUntil = d.ValidUntil
		v.SentAt = d.SentAt
		v.DecidedAt = d.DecidedAt
	case *document.Order:
		v.OfferID = d.OfferID
		v.ConfirmedAt = d.ConfirmedAt
		v.FulfilledAt = d.FulfilledAt
		v.CancelledAt = d.CancelledAt
	case *document.Delivery:
		v.OrderID = d.OrderID
		v.DeliveryDate = d.DeliveryDate
		v.SignedBy = d.SignedBy
		v.SignedAt = d.SignedAt
	case *document.Invoice:
		v.OrderID = d.OrderID
		v.DeliveryID = d.DeliveryID
		v.IssueDate = d.IssueDate
		due := d.DueDate
		v.DueDate = &due
		v.SentAt = d.SentAt
		v.PaidAt = d.PaidAt
		v.CancelledAt = d.CancelledAt
	}
	return v
}

// ToViews converts a page of documents
func ToViews(docs []document.Document) []DocumentView {
	out := make([]DocumentView, len(docs))
	for i, d := range docs {
		out[i] = ToView(d)
	}
	return out
}
