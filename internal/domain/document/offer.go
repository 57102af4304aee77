package document

import (
	"time"

	"github.com/erp/docflow/internal/domain/shared"
	"github.com/google/uuid"
)

// OfferStatus represents the status of an offer
type OfferStatus string

const (
	OfferStatusDraft    OfferStatus = "DRAFT"
	OfferStatusSent     OfferStatus = "SENT"
	OfferStatusAccepted OfferStatus = "ACCEPTED"
	OfferStatusRejected OfferStatus = "REJECTED"
	OfferStatusExpired  OfferStatus = "EXPIRED"
)

// IsValid checks if the status is valid
func (s OfferStatus) IsValid() bool {
	switch s {
	case OfferStatusDraft, OfferStatusSent, OfferStatusAccepted, OfferStatusRejected, OfferStatusExpired:
		return true
	}
	return false
}

// String returns the string representation of OfferStatus
func (s OfferStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no action can leave the status
func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusAccepted || s == OfferStatusRejected || s == OfferStatusExpired
}

// Next returns the status reached by applying a, or false if a is not legal from s
func (s OfferStatus) Next(a OfferAction) (OfferStatus, bool) {
	switch s {
	case OfferStatusDraft:
		if a == OfferActionSend {
			return OfferStatusSent, true
		}
	case OfferStatusSent:
		switch a {
		case OfferActionApprove:
			return OfferStatusAccepted, true
		case OfferActionReject:
			return OfferStatusRejected, true
		case OfferActionExpire:
			return OfferStatusExpired, true
		}
	case OfferStatusAccepted, OfferStatusRejected, OfferStatusExpired:
		// Terminal states
	}
	return s, false
}

// OfferAction names an offer transition
type OfferAction string

const (
	OfferActionSend    OfferAction = "send"
	OfferActionApprove OfferAction = "approve"
	OfferActionReject  OfferAction = "reject"
	OfferActionExpire  OfferAction = "expire"
)

// OfferActions returns every offer action
func OfferActions() []OfferAction {
	return []OfferAction{OfferActionSend, OfferActionApprove, OfferActionReject, OfferActionExpire}
}

// ParseOfferAction converts an action name into an OfferAction
func ParseOfferAction(s string) (OfferAction, error) {
	a := OfferAction(s)
	switch a {
	case OfferActionSend, OfferActionApprove, OfferActionReject, OfferActionExpire:
		return a, nil
	}
	return "", unknownAction(KindOffer, s)
}

// Offer is a quotation sent to a customer
type Offer struct {
	Header
	Status     OfferStatus
	ValidUntil *time.Time
	SentAt     *time.Time
	DecidedAt  *time.Time
}

// NewOffer creates a new offer in DRAFT status
func NewOffer(number string, companyID, customerID uuid.UUID, currency string, items []LineItem, validUntil *time.Time, now time.Time) (*Offer, error) {
	h, err := newHeader(number, companyID, customerID, currency, items, ComputeTotals(items), now)
	if err != nil {
		return nil, err
	}
	o := &Offer{
		Header:     h,
		Status:     OfferStatusDraft,
		ValidUntil: validUntil,
	}
	o.AddDomainEvent(NewCreatedEvent(o, nil, now))
	return o, nil
}

func (o *Offer) Kind() Kind         { return KindOffer }
func (o *Offer) StatusName() string { return string(o.Status) }
func (o *Offer) IsTerminal() bool   { return o.Status.IsTerminal() }

// AvailableActions lists the actions legal from the current status
func (o *Offer) AvailableActions() []string {
	out := make([]string, 0, 3)
	for _, a := range OfferActions() {
		if _, ok := o.Status.Next(a); ok {
			out = append(out, string(a))
		}
	}
	return out
}

// Transition applies a to a copy of the offer.
// Expiring requires ValidUntil to lie strictly before p.Now.
func (o *Offer) Transition(a OfferAction, p TransitionParams) (*Offer, error) {
	next, ok := o.Status.Next(a)
	if !ok {
		return nil, invalidTransition(KindOffer, string(o.Status), string(a))
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	n := o.clone()
	switch a {
	case OfferActionSend:
		n.SentAt = timePtr(p.Now)
	case OfferActionApprove:
		n.DecidedAt = timePtr(p.Now)
	case OfferActionReject:
		n.DecidedAt = timePtr(p.Now)
		n.Note = appendNote(n.Note, p.Reason)
	case OfferActionExpire:
		if n.ValidUntil == nil || !n.ValidUntil.Before(p.Now) {
			return nil, shared.NewValidationError("valid_until", "Offer is still valid")
		}
	}
	n.Status = next
	n.AddDomainEvent(NewStatusChangedEvent(n, string(a), string(o.Status), p.Reason, p.Now))
	return n, nil
}

func (o *Offer) clone() *Offer {
	c := *o
	c.Header = o.Header.fork()
	return &c
}
