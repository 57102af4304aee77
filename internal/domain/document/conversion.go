package document

import (
	"fmt"
	"time"

	"github.com/erp/docflow/internal/domain/shared"
	"github.com/google/uuid"
)

// ConversionParams are the conversion-specific inputs
type ConversionParams struct {
	DueDate      *time.Time `json:"due_date,omitempty"`
	IssueDate    *time.Time `json:"issue_date,omitempty"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
}

// ConversionError wraps any failure of the conversion chain.
// errors.Is and errors.As see through it to the underlying domain error.
type ConversionError struct {
	Source   Kind
	Target   Kind
	SourceID uuid.UUID
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s %s to %s: %v", e.Source, e.SourceID, e.Target, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// CanConvert reports whether a document of kind from can seed a document of kind to
func CanConvert(from, to Kind) bool {
	switch from {
	case KindOffer:
		return to == KindOrder
	case KindOrder:
		return to == KindDelivery || to == KindInvoice
	case KindDelivery:
		return to == KindInvoice
	}
	return false
}

// Derive builds a new document of kind target from src.
// Items and totals are copied verbatim, the lineage points back at src and the
// new document starts in its initial status. src is not modified.
func Derive(src Document, target Kind, number string, p ConversionParams, now time.Time) (Document, error) {
	if !CanConvert(src.Kind(), target) {
		return nil, shared.NewValidationError("target",
			fmt.Sprintf("Cannot convert %s to %s", src.Kind(), target))
	}

	s := src.Head()
	h, err := newHeader(number, s.CompanyID, s.CustomerID, s.Currency, s.Items, s.Totals, now)
	if err != nil {
		return nil, err
	}
	srcID := s.ID

	var doc Document
	switch target {
	case KindOrder:
		doc = &Order{Header: h, Status: OrderStatusDraft, OfferID: &srcID}
	case KindDelivery:
		doc = &Delivery{Header: h, Status: DeliveryStatusPrepared, OrderID: &srcID, DeliveryDate: p.DeliveryDate}
	case KindInvoice:
		if p.DueDate == nil {
			return nil, shared.NewValidationError("due_date", "Due date is required to create an invoice")
		}
		if err := validateInvoiceDates(p.IssueDate, *p.DueDate); err != nil {
			return nil, err
		}
		inv := &Invoice{Header: h, Status: InvoiceStatusDraft, IssueDate: p.IssueDate, DueDate: *p.DueDate}
		switch source := src.(type) {
		case *Order:
			inv.OrderID = &srcID
		case *Delivery:
			inv.DeliveryID = &srcID
			inv.OrderID = source.OrderID
		}
		doc = inv
	}
	doc.AddDomainEvent(NewCreatedEvent(doc, src, now))
	return doc, nil
}
