package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"contractor-erp/internal/core"
)

func TestQuotation_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	customer := seedCustomer(t, pool)
	quotations := core.NewQuotationService(pool, core.NewSequenceService(pool))

	validUntil := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	quotation, err := quotations.CreateQuotation(ctx, core.CreateQuotationInput{
		CustomerID:    customer.ID,
		QuotationDate: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		ValidUntil:    &validUntil,
		TaxPercentage: d("11"),
		Items: []core.InvoiceItemInput{
			{Description: "Panel upgrade", Quantity: d("1"), Unit: "lot", UnitPrice: d("20000000")},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuotation failed: %v", err)
	}
	if quotation.Status != core.QuotationDraft {
		t.Fatalf("status = %s, want draft", quotation.Status)
	}
	if !quotation.TotalAmount.Equal(d("22200000")) {
		t.Errorf("total = %s, want 22200000", quotation.TotalAmount)
	}

	// Approving a draft skips the sent state and is refused
	if _, err := quotations.ApproveQuotation(ctx, quotation.ID); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict approving a draft, got %v", err)
	}

	if _, err := quotations.SendQuotation(ctx, quotation.ID); err != nil {
		t.Fatalf("SendQuotation failed: %v", err)
	}

	// Sent quotations are frozen
	if _, err := quotations.UpdateQuotation(ctx, quotation.ID, core.CreateQuotationInput{
		CustomerID:    customer.ID,
		QuotationDate: quotation.QuotationDate,
		Items: []core.InvoiceItemInput{
			{Description: "Changed", Quantity: d("1"), Unit: "lot", UnitPrice: d("1")},
		},
	}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict editing a sent quotation, got %v", err)
	}

	approved, err := quotations.ApproveQuotation(ctx, quotation.ID)
	if err != nil {
		t.Fatalf("ApproveQuotation failed: %v", err)
	}
	if approved.Status != core.QuotationApproved || approved.DecidedAt == nil {
		t.Errorf("approval not recorded: status %s, decided_at %v", approved.Status, approved.DecidedAt)
	}
}

func TestQuotation_MarkExpired(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	customer := seedCustomer(t, pool)
	quotations := core.NewQuotationService(pool, core.NewSequenceService(pool))

	validUntil := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	quotation, err := quotations.CreateQuotation(ctx, core.CreateQuotationInput{
		CustomerID:    customer.ID,
		QuotationDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil:    &validUntil,
		Items: []core.InvoiceItemInput{
			{Description: "Pump overhaul", Quantity: d("1"), Unit: "lot", UnitPrice: d("5000000")},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuotation failed: %v", err)
	}
	if _, err := quotations.SendQuotation(ctx, quotation.ID); err != nil {
		t.Fatalf("SendQuotation failed: %v", err)
	}

	n, err := quotations.MarkExpired(ctx, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MarkExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expired %d quotations, want 1", n)
	}
	fresh, err := quotations.GetQuotation(ctx, quotation.ID)
	if err != nil {
		t.Fatalf("GetQuotation failed: %v", err)
	}
	if fresh.Status != core.QuotationExpired {
		t.Errorf("status = %s, want expired", fresh.Status)
	}
}

func TestInvoice_RequiresApprovedQuotation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	customer := seedCustomer(t, pool)
	sequences := core.NewSequenceService(pool)
	quotations := core.NewQuotationService(pool, sequences)
	invoices := core.NewInvoiceService(pool, sequences)

	quotation, err := quotations.CreateQuotation(ctx, core.CreateQuotationInput{
		CustomerID:    customer.ID,
		QuotationDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Items: []core.InvoiceItemInput{
			{Description: "Wiring", Quantity: d("1"), Unit: "lot", UnitPrice: d("3000000")},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuotation failed: %v", err)
	}

	in := core.CreateInvoiceInput{
		CustomerID:  customer.ID,
		QuotationID: &quotation.ID,
		InvoiceDate: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Items: []core.InvoiceItemInput{
			{Description: "Wiring", Quantity: d("1"), Unit: "lot", UnitPrice: d("3000000")},
		},
	}

	// Draft quotation cannot back an invoice
	if _, err := invoices.CreateInvoice(ctx, in); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation invoicing a draft quotation, got %v", err)
	}

	if _, err := quotations.SendQuotation(ctx, quotation.ID); err != nil {
		t.Fatalf("SendQuotation failed: %v", err)
	}
	if _, err := quotations.ApproveQuotation(ctx, quotation.ID); err != nil {
		t.Fatalf("ApproveQuotation failed: %v", err)
	}

	invoice, err := invoices.CreateInvoice(ctx, in)
	if err != nil {
		t.Fatalf("CreateInvoice after approval failed: %v", err)
	}
	if invoice.QuotationID == nil || *invoice.QuotationID != quotation.ID {
		t.Errorf("invoice not linked to quotation: %+v", invoice.QuotationID)
	}
}
