package core

import (
	"github.com/shopspring/decimal"
)

// InvoiceTotals is the derived monetary breakdown of an invoice.
type InvoiceTotals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// ComputeInvoiceTotals derives subtotal, tax, and total from item lines:
//
//	subtotal     = Σ quantity × unit_price
//	tax_amount   = subtotal × tax_percentage / 100
//	total_amount = subtotal + tax_amount - discount_amount
func ComputeInvoiceTotals(items []InvoiceItemInput, taxPercentage, discountAmount decimal.Decimal) InvoiceTotals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Quantity.Mul(it.UnitPrice))
	}
	taxAmount := subtotal.Mul(taxPercentage).Div(oneHundred).Round(2)
	return InvoiceTotals{
		Subtotal:       subtotal,
		TaxAmount:      taxAmount,
		DiscountAmount: discountAmount,
		TotalAmount:    subtotal.Add(taxAmount).Sub(discountAmount),
	}
}

// DeriveInvoiceStatus maps the running balance to a status. It is total over
// every (total, paid) combination:
//
//	paid ≤ 0       → sent    (a fully refunded invoice never returns to draft)
//	paid ≥ total   → paid
//	otherwise      → partial
//
// The paid ≤ 0 branch is checked first so a zero-total invoice with no
// payments reads as sent rather than paid.
func DeriveInvoiceStatus(total, paid decimal.Decimal) InvoiceStatus {
	switch {
	case paid.LessThanOrEqual(decimal.Zero):
		return InvoiceSent
	case paid.GreaterThanOrEqual(total):
		return InvoicePaid
	default:
		return InvoicePartial
	}
}

// validateInvoiceInput checks the structural rules shared by create and
// update. Returns ErrValidation before anything is written.
func validateInvoiceInput(items []InvoiceItemInput, taxPercentage, discountAmount decimal.Decimal) error {
	if len(items) == 0 {
		return validationf("invoice must have at least one item")
	}
	for i, it := range items {
		if it.Description == "" {
			return validationf("item %d: description is required", i+1)
		}
		if it.Unit == "" {
			return validationf("item %d: unit is required", i+1)
		}
		if !it.Quantity.IsPositive() {
			return validationf("item %d: quantity must be > 0, got %s", i+1, it.Quantity)
		}
		if it.UnitPrice.IsNegative() {
			return validationf("item %d: unit price cannot be negative, got %s", i+1, it.UnitPrice)
		}
	}
	if taxPercentage.IsNegative() || taxPercentage.GreaterThan(oneHundred) {
		return validationf("tax percentage must be between 0 and 100, got %s", taxPercentage)
	}
	if discountAmount.IsNegative() {
		return validationf("discount amount cannot be negative, got %s", discountAmount)
	}
	return nil
}
