package document

import (
	"time"

	"github.com/erp/docflow/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// IsValid checks if the status is valid
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no action can leave the status
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// Next returns the status reached by applying a, or false if a is not legal from s
func (s InvoiceStatus) Next(a InvoiceAction) (InvoiceStatus, bool) {
	switch s {
	case InvoiceStatusDraft:
		switch a {
		case InvoiceActionSend:
			return InvoiceStatusSent, true
		case InvoiceActionCancel:
			return InvoiceStatusCancelled, true
		}
	case InvoiceStatusSent:
		switch a {
		case InvoiceActionPay:
			return InvoiceStatusPaid, true
		case InvoiceActionMarkOverdue:
			return InvoiceStatusOverdue, true
		case InvoiceActionCancel:
			return InvoiceStatusCancelled, true
		}
	case InvoiceStatusOverdue:
		switch a {
		case InvoiceActionPay:
			return InvoiceStatusPaid, true
		case InvoiceActionCancel:
			return InvoiceStatusCancelled, true
		}
	case InvoiceStatusPaid, InvoiceStatusCancelled:
		// Terminal states
	}
	return s, false
}

// InvoiceAction names an invoice transition
type InvoiceAction string

const (
	InvoiceActionSend        InvoiceAction = "send"
	InvoiceActionPay         InvoiceAction = "pay"
	InvoiceActionMarkOverdue InvoiceAction = "mark-overdue"
	InvoiceActionCancel      InvoiceAction = "cancel"
)

// InvoiceActions returns every invoice action
func InvoiceActions() []InvoiceAction {
	return []InvoiceAction{InvoiceActionSend, InvoiceActionPay, InvoiceActionMarkOverdue, InvoiceActionCancel}
}

// ParseInvoiceAction converts an action name into an InvoiceAction
func ParseInvoiceAction(s string) (InvoiceAction, error) {
	a := InvoiceAction(s)
	switch a {
	case InvoiceActionSend, InvoiceActionPay, InvoiceActionMarkOverdue, InvoiceActionCancel:
		return a, nil
	}
	return "", unknownAction(KindInvoice, s)
}

// Invoice is a bill issued to a customer, directly or from an order or delivery
type Invoice struct {
	Header
	Status      InvoiceStatus
	OrderID     *uuid.UUID
	DeliveryID  *uuid.UUID
	IssueDate   *time.Time
	DueDate     time.Time
	SentAt      *time.Time
	PaidAt      *time.Time
	CancelledAt *time.Time
}

// NewInvoice creates a new invoice in DRAFT status
func NewInvoice(number string, companyID, customerID uuid.UUID, currency string, items []LineItem, issueDate *time.Time, dueDate time.Time, now time.Time) (*Invoice, error) {
	h, err := newHeader(number, companyID, customerID, currency, items, ComputeTotals(items), now)
	if err != nil {
		return nil, err
	}
	if err := validateInvoiceDates(issueDate, dueDate); err != nil {
		return nil, err
	}
	inv := &Invoice{Header: h, Status: InvoiceStatusDraft, IssueDate: issueDate, DueDate: dueDate}
	inv.AddDomainEvent(NewCreatedEvent(inv, nil, now))
	return inv, nil
}

func validateInvoiceDates(issueDate *time.Time, dueDate time.Time) error {
	if dueDate.IsZero() {
		return shared.NewValidationError("due_date", "Due date is required")
	}
	if issueDate != nil && dueDate.Before(*issueDate) {
		return shared.NewValidationError("due_date", "Due date cannot be before issue date")
	}
	return nil
}

func (i *Invoice) Kind() Kind         { return KindInvoice }
func (i *Invoice) StatusName() string { return string(i.Status) }
func (i *Invoice) IsTerminal() bool   { return i.Status.IsTerminal() }

// AvailableActions lists the actions legal from the current status
func (i *Invoice) AvailableActions() []string {
	out := make([]string, 0, 3)
	for _, a := range InvoiceActions() {
		if _, ok := i.Status.Next(a); ok {
			out = append(out, string(a))
		}
	}
	return out
}

// IsPastDue reports whether the due date lies strictly before now
func (i *Invoice) IsPastDue(now time.Time) bool {
	return i.DueDate.Before(now)
}

// Transition applies a to a copy of the invoice.
// Paying uses p.PaidAt when given and p.Now otherwise.
func (i *Invoice) Transition(a InvoiceAction, p TransitionParams) (*Invoice, error) {
	next, ok := i.Status.Next(a)
	if !ok {
		return nil, invalidTransition(KindInvoice, string(i.Status), string(a))
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	n := i.clone()
	switch a {
	case InvoiceActionSend:
		n.SentAt = timePtr(p.Now)
		if n.IssueDate == nil {
			n.IssueDate = timePtr(p.Now)
		}
	case InvoiceActionPay:
		paidAt := p.Now
		if p.PaidAt != nil {
			paidAt = *p.PaidAt
		}
		n.PaidAt = timePtr(paidAt)
	case InvoiceActionMarkOverdue:
		if !n.IsPastDue(p.Now) {
			return nil, shared.NewValidationError("due_date", "Invoice is not past its due date")
		}
	case InvoiceActionCancel:
		n.CancelledAt = timePtr(p.Now)
		n.Note = appendNote(n.Note, p.Reason)
	}
	n.Status = next
	n.AddDomainEvent(NewStatusChangedEvent(n, string(a), string(i.Status), p.Reason, p.Now))
	return n, nil
}

func (i *Invoice) clone() *Invoice {
	c := *i
	c.Header = i.Header.fork()
	return &c
}
