package document

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusFulfilled OrderStatus = "FULFILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsValid checks if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusConfirmed, OrderStatusFulfilled, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no action can leave the status
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusCancelled
}

// Next returns the status reached by applying a, or false if a is not legal from s
func (s OrderStatus) Next(a OrderAction) (OrderStatus, bool) {
	switch s {
	case OrderStatusDraft:
		switch a {
		case OrderActionConfirm:
			return OrderStatusConfirmed, true
		case OrderActionCancel:
			return OrderStatusCancelled, true
		}
	case OrderStatusConfirmed:
		switch a {
		case OrderActionFulfill:
			return OrderStatusFulfilled, true
		case OrderActionCancel:
			return OrderStatusCancelled, true
		}
	case OrderStatusFulfilled, OrderStatusCancelled:
		// Terminal states
	}
	return s, false
}

// OrderAction names an order transition
type OrderAction string

const (
	OrderActionConfirm OrderAction = "confirm"
	OrderActionFulfill OrderAction = "fulfill"
	OrderActionCancel  OrderAction = "cancel"
)

// OrderActions returns every order action
func OrderActions() []OrderAction {
	return []OrderAction{OrderActionConfirm, OrderActionFulfill, OrderActionCancel}
}

// ParseOrderAction converts an action name into an OrderAction
func ParseOrderAction(s string) (OrderAction, error) {
	a := OrderAction(s)
	switch a {
	case OrderActionConfirm, OrderActionFulfill, OrderActionCancel:
		return a, nil
	}
	return "", unknownAction(KindOrder, s)
}

// Order is a customer order, optionally derived from an accepted offer
type Order struct {
	Header
	Status      OrderStatus
	OfferID     *uuid.UUID
	ConfirmedAt *time.Time
	FulfilledAt *time.Time
	CancelledAt *time.Time
}

// NewOrder creates a new order in DRAFT status
func NewOrder(number string, companyID, customerID uuid.UUID, currency string, items []LineItem, now time.Time) (*Order, error) {
	h, err := newHeader(number, companyID, customerID, currency, items, ComputeTotals(items), now)
	if err != nil {
		return nil, err
	}
	o := &Order{Header: h, Status: OrderStatusDraft}
	o.AddDomainEvent(NewCreatedEvent(o, nil, now))
	return o, nil
}

func (o *Order) Kind() Kind         { return KindOrder }
func (o *Order) StatusName() string { return string(o.Status) }
func (o *Order) IsTerminal() bool   { return o.Status.IsTerminal() }

// AvailableActions lists the actions legal from the current status
func (o *Order) AvailableActions() []string {
	out := make([]string, 0, 2)
	for _, a := range OrderActions() {
		if _, ok := o.Status.Next(a); ok {
			out = append(out, string(a))
		}
	}
	return out
}

// Transition applies a to a copy of the order
func (o *Order) Transition(a OrderAction, p TransitionParams) (*Order, error) {
	next, ok := o.Status.Next(a)
	if !ok {
		return nil, invalidTransition(KindOrder, string(o.Status), string(a))
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	n := o.clone()
	switch a {
	case OrderActionConfirm:
		n.ConfirmedAt = timePtr(p.Now)
	case OrderActionFulfill:
		n.FulfilledAt = timePtr(p.Now)
	case OrderActionCancel:
		n.CancelledAt = timePtr(p.Now)
		n.Note = appendNote(n.Note, p.Reason)
	}
	n.Status = next
	n.AddDomainEvent(NewStatusChangedEvent(n, string(a), string(o.Status), p.Reason, p.Now))
	return n, nil
}

func (o *Order) clone() *Order {
	c := *o
	c.Header = o.Header.fork()
	return &c
}
