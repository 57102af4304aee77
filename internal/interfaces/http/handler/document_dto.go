package handler

import (
	"time"

	"github.com/erp/docflow/internal/application/lifecycle"
	"github.com/erp/docflow/internal/domain/document"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemRequest is one line of a new document
type LineItemRequest struct {
	ProductID   uuid.UUID       `json:"product_id" jsonschema:"required"`
	Description string          `json:"description,omitempty" jsonschema:"maxLength=500"`
	Quantity    decimal.Decimal `json:"quantity" jsonschema:"required,description=Positive quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" jsonschema:"required,description=Net price per unit"`
	TaxRate     decimal.Decimal `json:"tax_rate" jsonschema:"description=Percentage between 0 and 100"`
}

// CreateDocumentRequest is the body of POST /documents/:kind.
// Deliveries are only created by conversion.
type CreateDocumentRequest struct {
	CompanyID  uuid.UUID         `json:"company_id" jsonschema:"required"`
	CustomerID uuid.UUID         `json:"customer_id" jsonschema:"required"`
	Currency   string            `json:"currency" jsonschema:"required,minLength=3,maxLength=3,example=EUR"`
	Items      []LineItemRequest `json:"items" jsonschema:"required,minItems=1,maxItems=200"`
	Note       string            `json:"note,omitempty" jsonschema:"maxLength=1000"`
	ValidUntil *time.Time        `json:"valid_until,omitempty" jsonschema:"description=Offers only"`
	IssueDate  *time.Time        `json:"issue_date,omitempty" jsonschema:"description=Invoices only"`
	DueDate    *time.Time        `json:"due_date,omitempty" jsonschema:"description=Required for invoices"`
}

func (r CreateDocumentRequest) toCommand(kind document.Kind) lifecycle.CreateDocumentCommand {
	items := make([]lifecycle.LineItemInput, len(r.Items))
	for i, it := range r.Items {
		items[i] = lifecycle.LineItemInput{
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxRate:     it.TaxRate,
		}
	}
	return lifecycle.CreateDocumentCommand{
		Kind:       kind,
		CompanyID:  r.CompanyID,
		CustomerID: r.CustomerID,
		Currency:   r.Currency,
		Items:      items,
		Note:       r.Note,
		ValidUntil: r.ValidUntil,
		IssueDate:  r.IssueDate,
		DueDate:    r.DueDate,
	}
}

// TransitionRequest is the body of POST /documents/:kind/:id/transitions
type TransitionRequest struct {
	Action   string     `json:"action" binding:"required" jsonschema:"required,example=send"`
	Reason   string     `json:"reason,omitempty" binding:"max=1000" jsonschema:"description=Appended to the note on cancel and reject"`
	SignedBy string     `json:"signed_by,omitempty" binding:"max=200" jsonschema:"description=Required to sign a delivery"`
	PaidAt   *time.Time `json:"paid_at,omitempty" jsonschema:"description=Payment time, defaults to now"`
}

func (r TransitionRequest) params() document.TransitionParams {
	return document.TransitionParams{Reason: r.Reason, SignedBy: r.SignedBy, PaidAt: r.PaidAt}
}

// ConversionRequest is the body of POST /documents/:kind/:id/conversions
type ConversionRequest struct {
	Target       string     `json:"target" binding:"required" jsonschema:"required,enum=order,enum=delivery,enum=invoice"`
	DueDate      *time.Time `json:"due_date,omitempty" jsonschema:"description=Required when the target is an invoice"`
	IssueDate    *time.Time `json:"issue_date,omitempty"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
}

func (r ConversionRequest) params() document.ConversionParams {
	return document.ConversionParams{DueDate: r.DueDate, IssueDate: r.IssueDate, DeliveryDate: r.DeliveryDate}
}

// BulkTransitionRequest is the body of POST /documents/:kind/bulk-transitions
type BulkTransitionRequest struct {
	Action   string     `json:"action" binding:"required" jsonschema:"required"`
	IDs      []string   `json:"ids" binding:"dive,uuid" jsonschema:"required"`
	Reason   string     `json:"reason,omitempty" binding:"max=1000"`
	SignedBy string     `json:"signed_by,omitempty" binding:"max=200"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`
}

func (r BulkTransitionRequest) parseIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.IDs))
	for i, s := range r.IDs {
		// validated by the uuid binding
		ids[i] = uuid.MustParse(s)
	}
	return ids
}

func (r BulkTransitionRequest) params() document.TransitionParams {
	return document.TransitionParams{Reason: r.Reason, SignedBy: r.SignedBy, PaidAt: r.PaidAt}
}

// SweepRequest is the optional body of the sweep endpoints
type SweepRequest struct {
	Now *time.Time `json:"now,omitempty" jsonschema:"description=Reference time, defaults to the server clock"`
}

// SweepResponse reports how many documents a sweep moved
type SweepResponse struct {
	Sweep        string    `json:"sweep"`
	Transitioned int       `json:"transitioned"`
	Now          time.Time `json:"now"`
}
