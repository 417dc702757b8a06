// Package invoice renders invoice documents to PDF using a single-pass
// vertical-cursor layout on one A4 page.
package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Customer is the invoice recipient.
type Customer struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	VATID   string `json:"vat_id,omitempty"`
	Email   string `json:"email,omitempty"`
}

// LineItem is one billed position. Monetary fields are authoritative
// inputs; the derived values are recomputed at render time and never
// trusted from storage.
type LineItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ProductCode string          `json:"product_code,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
}

// Subtotal returns quantity times unit price at full precision.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// VATAmount returns the VAT share of the item at full precision.
func (li LineItem) VATAmount() decimal.Decimal {
	return li.Subtotal().Mul(li.VATRate).Div(hundred)
}

// Total returns subtotal plus VAT at full precision.
func (li LineItem) Total() decimal.Decimal {
	return li.Subtotal().Add(li.VATAmount())
}

// Document is a complete invoice as consumed from the persistence
// collaborator.
type Document struct {
	Number    string    `json:"number"`
	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `json:"due_date"`
	Note      string    `json:"note,omitempty"`

	Customer Customer   `json:"customer"`
	Items    []LineItem `json:"items"`

	// DiscountPercentage, when set, derives the discount amount from the
	// recomputed subtotal. DiscountAmount, when set, is used as-is and
	// takes precedence.
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount,omitempty"`
}

// Totals holds the document aggregates recomputed from the line items.
// All values are full precision; rounding happens at display time only.
type Totals struct {
	Subtotal decimal.Decimal
	TotalVAT decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals recomputes the document aggregates from the line items.
// Per-item derived values and document aggregates are summed at full
// precision so per-item display rounding cannot compound.
func (d *Document) ComputeTotals() Totals {
	t := Totals{
		Subtotal: decimal.Zero,
		TotalVAT: decimal.Zero,
		Discount: decimal.Zero,
	}
	for _, item := range d.Items {
		t.Subtotal = t.Subtotal.Add(item.Subtotal())
		t.TotalVAT = t.TotalVAT.Add(item.VATAmount())
	}
	switch {
	case d.DiscountAmount != nil:
		t.Discount = *d.DiscountAmount
	case d.DiscountPercentage != nil:
		t.Discount = t.Subtotal.Mul(*d.DiscountPercentage).Div(hundred)
	}
	t.Total = t.Subtotal.Sub(t.Discount).Add(t.TotalVAT)
	return t
}

// HasDiscount reports whether the document carries any discount.
func (d *Document) HasDiscount() bool {
	return d.DiscountAmount != nil || d.DiscountPercentage != nil
}
