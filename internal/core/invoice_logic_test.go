package core_test

import (
	"testing"

	"contractor-erp/internal/core"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestDeriveInvoiceStatus(t *testing.T) {
	tests := []struct {
		name  string
		total string
		paid  string
		want  core.InvoiceStatus
	}{
		{"no payments", "1000.00", "0", core.InvoiceSent},
		{"partial payment", "1000.00", "400.00", core.InvoicePartial},
		{"two payments covering total", "1000.00", "1000.00", core.InvoicePaid},
		{"overpaid", "1000.00", "1200.00", core.InvoicePaid},
		{"one cent short", "1000.00", "999.99", core.InvoicePartial},
		{"fully refunded", "1000.00", "0.00", core.InvoiceSent},
		{"refunded below zero", "1000.00", "-50.00", core.InvoiceSent},
		// paid <= 0 wins over paid >= total, so a zero-total invoice
		// with no payments is sent, not paid.
		{"zero total no payments", "0.00", "0.00", core.InvoiceSent},
		{"zero total with payment", "0.00", "10.00", core.InvoicePaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.DeriveInvoiceStatus(d(tt.total), d(tt.paid))
			if got != tt.want {
				t.Errorf("DeriveInvoiceStatus(%s, %s) = %s, want %s", tt.total, tt.paid, got, tt.want)
			}
		})
	}
}

func TestComputeInvoiceTotals(t *testing.T) {
	items := []core.InvoiceItemInput{
		{Description: "Panel installation", Quantity: d("2"), Unit: "unit", UnitPrice: d("350.00")},
		{Description: "Cabling", Quantity: d("12.5"), Unit: "m", UnitPrice: d("24.00")},
	}

	totals := core.ComputeInvoiceTotals(items, d("10"), d("50.00"))

	if !totals.Subtotal.Equal(d("1000.00")) {
		t.Errorf("subtotal = %s, want 1000.00", totals.Subtotal)
	}
	if !totals.TaxAmount.Equal(d("100.00")) {
		t.Errorf("tax = %s, want 100.00", totals.TaxAmount)
	}
	if !totals.TotalAmount.Equal(d("1050.00")) {
		t.Errorf("total = %s, want 1050.00", totals.TotalAmount)
	}
}

func TestComputeInvoiceTotals_RoundsTax(t *testing.T) {
	items := []core.InvoiceItemInput{
		{Description: "Misc", Quantity: d("1"), Unit: "lot", UnitPrice: d("99.99")},
	}

	// 99.99 * 7.5% = 7.49925, rounds to 7.50
	totals := core.ComputeInvoiceTotals(items, d("7.5"), decimal.Zero)

	if !totals.TaxAmount.Equal(d("7.50")) {
		t.Errorf("tax = %s, want 7.50", totals.TaxAmount)
	}
	if !totals.TotalAmount.Equal(d("107.49")) {
		t.Errorf("total = %s, want 107.49", totals.TotalAmount)
	}
}

func TestInvoiceOutstanding(t *testing.T) {
	inv := core.Invoice{TotalAmount: d("1000.00"), PaidAmount: d("400.00")}
	if got := inv.Outstanding(); !got.Equal(d("600.00")) {
		t.Errorf("Outstanding() = %s, want 600.00", got)
	}
}
