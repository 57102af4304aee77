package document

import (
	"strings"
	"time"

	"github.com/erp/docflow/internal/domain/shared"
	"github.com/google/uuid"
)

// Header carries the fields every document kind shares
type Header struct {
	shared.BaseAggregateRoot
	Number     string
	CompanyID  uuid.UUID
	CustomerID uuid.UUID
	Currency   string
	Items      []LineItem
	Totals     Totals
	Note       string
}

// Head returns the shared header of the document
func (h *Header) Head() *Header {
	return h
}

func (h *Header) fork() Header {
	c := *h
	c.BaseAggregateRoot = h.BaseAggregateRoot.Fork()
	c.Items = CloneItems(h.Items)
	return c
}

func newHeader(number string, companyID, customerID uuid.UUID, currency string, items []LineItem, totals Totals, now time.Time) (Header, error) {
	if number == "" {
		return Header{}, shared.NewValidationError("number", "Document number cannot be empty")
	}
	if companyID == uuid.Nil {
		return Header{}, shared.NewValidationError("company_id", "Company ID cannot be empty")
	}
	if customerID == uuid.Nil {
		return Header{}, shared.NewValidationError("customer_id", "Customer ID cannot be empty")
	}
	if len(items) == 0 {
		return Header{}, shared.NewValidationError("items", "Document must have at least one line item")
	}
	return Header{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		Number:            number,
		CompanyID:         companyID,
		CustomerID:        customerID,
		Currency:          currency,
		Items:             CloneItems(items),
		Totals:            totals,
	}, nil
}

// Document is implemented by Offer, Order, Delivery and Invoice
type Document interface {
	shared.AggregateRoot
	Kind() Kind
	Head() *Header
	StatusName() string
	IsTerminal() bool
	AvailableActions() []string
}

// TransitionParams are the optional inputs of a transition.
// Now is required and stands in for the wall clock.
type TransitionParams struct {
	Reason   string
	SignedBy string
	PaidAt   *time.Time
	Now      time.Time
}

func (p TransitionParams) validate() error {
	if p.Now.IsZero() {
		return shared.NewValidationError("now", "Transition time is required")
	}
	return nil
}

// Apply runs the named action against doc and returns the new snapshot.
// doc is left untouched whether or not the transition succeeds.
func Apply(doc Document, action string, p TransitionParams) (Document, error) {
	switch d := doc.(type) {
	case *Offer:
		a, err := ParseOfferAction(action)
		if err != nil {
			return nil, err
		}
		next, err := d.Transition(a, p)
		if err != nil {
			return nil, err
		}
		return next, nil
	case *Order:
		a, err := ParseOrderAction(action)
		if err != nil {
			return nil, err
		}
		next, err := d.Transition(a, p)
		if err != nil {
			return nil, err
		}
		return next, nil
	case *Delivery:
		a, err := ParseDeliveryAction(action)
		if err != nil {
			return nil, err
		}
		next, err := d.Transition(a, p)
		if err != nil {
			return nil, err
		}
		return next, nil
	case *Invoice:
		a, err := ParseInvoiceAction(action)
		if err != nil {
			return nil, err
		}
		next, err := d.Transition(a, p)
		if err != nil {
			return nil, err
		}
		return next, nil
	}
	return nil, shared.NewValidationError("kind", "Unsupported document type")
}

// ValidateAction checks that action names an action of kind
func ValidateAction(kind Kind, action string) error {
	var err error
	switch kind {
	case KindOffer:
		_, err = ParseOfferAction(action)
	case KindOrder:
		_, err = ParseOrderAction(action)
	case KindDelivery:
		_, err = ParseDeliveryAction(action)
	case KindInvoice:
		_, err = ParseInvoiceAction(action)
	default:
		err = shared.NewValidationError("kind", "Unknown document kind: "+string(kind))
	}
	return err
}

func unknownAction(kind Kind, action string) error {
	return shared.NewValidationError("action", "Unknown "+string(kind)+" action: "+action)
}

func invalidTransition(kind Kind, status, action string) error {
	return shared.NewInvalidTransitionError(string(kind), status, action)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// appendNote adds reason to note on its own line. An empty reason keeps note.
func appendNote(note, reason string) string {
	reason = strings.TrimSpace(reason)
	switch {
	case reason == "":
		return note
	case note == "":
		return reason
	default:
		return note + "\n" + reason
	}
}
