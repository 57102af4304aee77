package document

import (
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places kept for computed amounts
const MoneyScale = 2

// StoredScale is the number of decimal places stored for quantities, prices and tax rates
const StoredScale = 4

var hundred = decimal.NewFromInt(100)

// LineItem is one priced position of a document.
// LineTotal and LineTax are computed once, when the item is created.
type LineItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	LineTotal   decimal.Decimal `json:"line_total"`
	LineTax     decimal.Decimal `json:"line_tax"`
}

// NewLineItem creates a line item and computes its net total and tax
func NewLineItem(productID uuid.UUID, description string, quantity, unitPrice, taxRate decimal.Decimal) (LineItem, error) {
	if productID == uuid.Nil {
		return LineItem{}, shared.NewValidationError("product_id", "Product ID cannot be empty")
	}
	if !quantity.IsPositive() {
		return LineItem{}, shared.NewValidationError("quantity", "Quantity must be positive")
	}
	if !unitPrice.IsPositive() {
		return LineItem{}, shared.NewValidationError("unit_price", "Unit price must be positive")
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return LineItem{}, shared.NewValidationError("tax_rate", "Tax rate must be between 0 and 100")
	}
	for _, f := range []struct {
		field string
		value decimal.Decimal
	}{{"quantity", quantity}, {"unit_price", unitPrice}, {"tax_rate", taxRate}} {
		if !fitsStoredScale(f.value) {
			return LineItem{}, shared.NewValidationError(f.field, "At most 4 decimal places are allowed")
		}
	}

	total := quantity.Mul(unitPrice).Round(MoneyScale)
	return LineItem{
		ProductID:   productID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TaxRate:     taxRate,
		LineTotal:   total,
		LineTax:     total.Mul(taxRate).Div(hundred).Round(MoneyScale),
	}, nil
}

func fitsStoredScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(StoredScale))
}

// Totals holds the monetary summary of a document.
// Total always equals Subtotal + Tax.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals sums the line totals and taxes of items
func ComputeTotals(items []LineItem) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
		tax = tax.Add(item.LineTax)
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// CloneItems returns a copy of items that shares no backing array with the input
func CloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
