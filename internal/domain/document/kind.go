package document

import (
	"strings"

	"github.com/erp/docflow/internal/domain/shared"
)

// Kind identifies one of the commercial document types
type Kind string

const (
	KindOffer    Kind = "offer"
	KindOrder    Kind = "order"
	KindDelivery Kind = "delivery"
	KindInvoice  Kind = "invoice"
)

// AllKinds returns every document kind in chain order
func AllKinds() []Kind {
	return []Kind{KindOffer, KindOrder, KindDelivery, KindInvoice}
}

// ParseKind converts a name into a Kind. Plural forms are accepted.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	if k == "deliverie" {
		k = KindDelivery
	}
	if !k.IsValid() {
		return "", shared.NewValidationError("kind", "Unknown document kind: "+s)
	}
	return k, nil
}

// IsValid checks if the kind is known
func (k Kind) IsValid() bool {
	switch k {
	case KindOffer, KindOrder, KindDelivery, KindInvoice:
		return true
	}
	return false
}

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// NumberPrefix returns the prefix used for document numbers of this kind
func (k Kind) NumberPrefix() string {
	switch k {
	case KindOffer:
		return "OFF"
	case KindOrder:
		return "ORD"
	case KindDelivery:
		return "DEL"
	case KindInvoice:
		return "INV"
	}
	return "DOC"
}

// AggregateType returns the aggregate type name used on domain events
func (k Kind) AggregateType() string {
	switch k {
	case KindOffer:
		return "Offer"
	case KindOrder:
		return "Order"
	case KindDelivery:
		return "Delivery"
	case KindInvoice:
		return "Invoice"
	}
	return "Document"
}
