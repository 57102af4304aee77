package document

import (
	"strings"
	"time"

	"github.com/erp/docflow/internal/domain/shared"
	"github.com/google/uuid"
)

// DeliveryStatus represents the status of a delivery note
type DeliveryStatus string

const (
	DeliveryStatusPrepared  DeliveryStatus = "PREPARED"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusSigned    DeliveryStatus = "SIGNED"
)

// IsValid checks if the status is valid
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusPrepared, DeliveryStatusDelivered, DeliveryStatusSigned:
		return true
	}
	return false
}

// String returns the string representation of DeliveryStatus
func (s DeliveryStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no action can leave the status
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusSigned
}

// Next returns the status reached by applying a, or false if a is not legal from s
func (s DeliveryStatus) Next(a DeliveryAction) (DeliveryStatus, bool) {
	switch s {
	case DeliveryStatusPrepared:
		if a == DeliveryActionMarkDelivered {
			return DeliveryStatusDelivered, true
		}
	case DeliveryStatusDelivered:
		if a == DeliveryActionSign {
			return DeliveryStatusSigned, true
		}
	case DeliveryStatusSigned:
		// Terminal state
	}
	return s, false
}

// DeliveryAction names a delivery transition
type DeliveryAction string

const (
	DeliveryActionMarkDelivered DeliveryAction = "mark-delivered"
	DeliveryActionSign          DeliveryAction = "sign"
)

// DeliveryActions returns every delivery action
func DeliveryActions() []DeliveryAction {
	return []DeliveryAction{DeliveryActionMarkDelivered, DeliveryActionSign}
}

// ParseDeliveryAction converts an action name into a DeliveryAction
func ParseDeliveryAction(s string) (DeliveryAction, error) {
	a := DeliveryAction(s)
	switch a {
	case DeliveryActionMarkDelivered, DeliveryActionSign:
		return a, nil
	}
	return "", unknownAction(KindDelivery, s)
}

// Delivery is a delivery note derived from an order. It cannot be created directly.
type Delivery struct {
	Header
	Status       DeliveryStatus
	OrderID      *uuid.UUID
	DeliveryDate *time.Time
	SignedBy     string
	SignedAt     *time.Time
}

func (d *Delivery) Kind() Kind         { return KindDelivery }
func (d *Delivery) StatusName() string { return string(d.Status) }
func (d *Delivery) IsTerminal() bool   { return d.Status.IsTerminal() }

// AvailableActions lists the actions legal from the current status
func (d *Delivery) AvailableActions() []string {
	out := make([]string, 0, 1)
	for _, a := range DeliveryActions() {
		if _, ok := d.Status.Next(a); ok {
			out = append(out, string(a))
		}
	}
	return out
}

// Transition applies a to a copy of the delivery.
// The status check runs before the signer precondition, so signing a PREPARED delivery
// is an invalid transition even without a signer.
func (d *Delivery) Transition(a DeliveryAction, p TransitionParams) (*Delivery, error) {
	next, ok := d.Status.Next(a)
	if !ok {
		return nil, invalidTransition(KindDelivery, string(d.Status), string(a))
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	n := d.clone()
	switch a {
	case DeliveryActionMarkDelivered:
		if n.DeliveryDate == nil {
			n.DeliveryDate = timePtr(p.Now)
		}
	case DeliveryActionSign:
		signer := strings.TrimSpace(p.SignedBy)
		if signer == "" {
			return nil, shared.NewValidationError("signed_by", "Signer name is required to sign a delivery")
		}
		n.SignedBy = signer
		n.SignedAt = timePtr(p.Now)
	}
	n.Status = next
	n.AddDomainEvent(NewStatusChangedEvent(n, string(a), string(d.Status), p.Reason, p.Now))
	return n, nil
}

func (d *Delivery) clone() *Delivery {
	c := *d
	c.Header = d.Header.fork()
	return &c
}
