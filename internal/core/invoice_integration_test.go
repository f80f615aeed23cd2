package core_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"contractor-erp/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE payments, invoice_items, invoices, quotation_items, quotations,
			stock_movements, purchase_order_items, purchase_orders, inventories,
			expenses, attendances, projects, employees, customers, reference_sequences
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}

	return pool
}

// seedCustomer creates one customer through the service so the CUST sequence
// is exercised too.
func seedCustomer(t *testing.T, pool *pgxpool.Pool) *core.Customer {
	t.Helper()
	svc := core.NewCustomerService(pool, core.NewSequenceService(pool))
	customer, err := svc.CreateCustomer(context.Background(), core.CustomerInput{
		Name:        "PT Graha Persada",
		CompanyName: "PT Graha Persada",
		City:        "Jakarta",
		Status:      core.CustomerActive,
	})
	if err != nil {
		t.Fatalf("Failed to seed customer: %v", err)
	}
	return customer
}

func seedEmployee(t *testing.T, pool *pgxpool.Pool) *core.Employee {
	t.Helper()
	svc := core.NewEmployeeService(pool, core.NewSequenceService(pool))
	employee, err := svc.CreateEmployee(context.Background(), core.EmployeeInput{
		Name:       "Budi Santoso",
		Position:   "Site Supervisor",
		Department: "electrical",
		HireDate:   time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:     core.EmployeeActive,
	})
	if err != nil {
		t.Fatalf("Failed to seed employee: %v", err)
	}
	return employee
}

func seedInvoice(t *testing.T, pool *pgxpool.Pool, customerID int64, total string) *core.Invoice {
	t.Helper()
	ctx := context.Background()
	invoices := core.NewInvoiceService(pool, core.NewSequenceService(pool))

	inv, err := invoices.CreateInvoice(ctx, core.CreateInvoiceInput{
		CustomerID:  customerID,
		InvoiceDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		Items: []core.InvoiceItemInput{
			{Description: "Installation work", Quantity: d("1"), Unit: "lot", UnitPrice: d(total)},
		},
	})
	if err != nil {
		t.Fatalf("Failed to create invoice: %v", err)
	}
	sent, err := invoices.SendInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Failed to send invoice: %v", err)
	}
	return sent
}

func TestPayment_PartialThenPaid(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	customer := seedCustomer(t, pool)
	invoices := core.NewInvoiceService(pool, core.NewSequenceService(pool))
	payments := core.NewPaymentService(pool, invoices)

	inv := seedInvoice(t, pool, customer.ID, "1000.00")
	if inv.Status != core.InvoiceSent {
		t.Fatalf("invoice status after send = %s, want sent", inv.Status)
	}

	// First payment covers 400 of 1000
	_, updated, err := payments.RecordPayment(ctx, core.RecordPaymentInput{
		InvoiceID:     inv.ID,
		PaymentDate:   time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC),
		Amount:        d("400.00"),
		PaymentMethod: "bank_transfer",
	})
	if err != nil {
		t.Fatalf("First payment failed: %v", err)
	}
	if updated.Status != core.InvoicePartial {
		t.Errorf("status after 400 = %s, want partial", updated.Status)
	}
	if !updated.PaidAmount.Equal(d("400.00")) {
		t.Errorf("paid amount = %s, want 400.00", updated.PaidAmount)
	}

	// Second payment covers the remaining 600
	_, updated, err = payments.RecordPayment(ctx, core.RecordPaymentInput{
		InvoiceID:     inv.ID,
		PaymentDate:   time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		Amount:        d("600.00"),
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("Second payment failed: %v", err)
	}
	if updated.Status != core.InvoicePaid {
		t.Errorf("status after 1000 = %s, want paid", updated.Status)
	}
	if updated.PaidAt == nil {
		t.Errorf("paid_at not set on fully paid invoice")
	}

	// The payment ledger replays to the stored balance
	ledger, err := payments.ListPayments(ctx, inv.ID)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	sum := d("0")
	for _, p := range ledger {
		sum = sum.Add(p.Amount)
	}
	if !sum.Equal(updated.PaidAmount) {
		t.Errorf("payments sum to %s, stored paid_amount is %s", sum, updated.PaidAmount)
	}
}

func TestPayment_OverpaymentRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	customer := seedCustomer(t, pool)
	invoices := core.NewInvoiceService(pool, core.NewSequenceService(pool))
	payments := core.NewPaymentService(pool, invoices)

	inv := seedInvoice(t, pool, customer.ID, "1000.00")

	_, _, err := payments.RecordPayment(ctx, core.RecordPaymentInput{
		InvoiceID:     inv.ID,
		PaymentDate:   time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC),
		Amount:        d("1200.00"),
		PaymentMethod: "cash",
	})
	if !errors.Is(err, core.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Rejection writes nothing
	ledger, err := payments.ListPayments(ctx, inv.ID)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(ledger) != 0 {
		t.Errorf("expected no payment rows after rejection, found %d", len(ledger))
	}
	fresh, err := invoices.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if !fresh.PaidAmount.IsZero() || fresh.Status != core.InvoiceSent {
		t.Errorf("invoice changed after rejected payment: paid %s, status %s", fresh.PaidAmount, fresh.Status)
	}
}

func TestPayment_DeleteReversesBalanceAndStatus(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	customer := seedCustomer(t, pool)
	invoices := core.NewInvoiceService(pool, core.NewSequenceService(pool))
	payments := core.NewPaymentService(pool, invoices)

	inv := seedInvoice(t, pool, customer.ID, "1000.00")

	payment, updated, err := payments.RecordPayment(ctx, core.RecordPaymentInput{
		InvoiceID:     inv.ID,
		PaymentDate:   time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC),
		Amount:        d("1000.00"),
		PaymentMethod: "bank_transfer",
	})
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if updated.Status != core.InvoicePaid {
		t.Fatalf("status = %s, want paid", updated.Status)
	}

	reversed, err := payments.DeletePayment(ctx, payment.ID)
	if err != nil {
		t.Fatalf("DeletePayment failed: %v", err)
	}
	if !reversed.PaidAmount.IsZero() {
		t.Errorf("paid amount after reversal = %s, want 0", reversed.PaidAmount)
	}
	if reversed.Status != core.InvoiceSent {
		t.Errorf("status after reversal = %s, want sent", reversed.Status)
	}
	if reversed.PaidAt != nil {
		t.Errorf("paid_at still set after reversal")
	}
}

func TestInvoice_MarkOverdue(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	customer := seedCustomer(t, pool)
	invoices := core.NewInvoiceService(pool, core.NewSequenceService(pool))

	inv := seedInvoice(t, pool, customer.ID, "500.00")

	// Before the due date nothing flips
	n, err := invoices.MarkOverdue(ctx, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MarkOverdue failed: %v", err)
	}
	if n != 0 {
		t.Errorf("marked %d invoices before due date, want 0", n)
	}

	n, err = invoices.MarkOverdue(ctx, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MarkOverdue failed: %v", err)
	}
	if n != 1 {
		t.Errorf("marked %d invoices past due date, want 1", n)
	}
	fresh, err := invoices.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if fresh.Status != core.InvoiceOverdue {
		t.Errorf("status = %s, want overdue", fresh.Status)
	}
}

func TestInvoice_NumbersAreSequentialPerYear(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	customer := seedCustomer(t, pool)

	first := seedInvoice(t, pool, customer.ID, "100.00")
	second := seedInvoice(t, pool, customer.ID, "200.00")

	if first.InvoiceNumber != "INV2026-00001" {
		t.Errorf("first invoice number = %s, want INV2026-00001", first.InvoiceNumber)
	}
	if second.InvoiceNumber != "INV2026-00002" {
		t.Errorf("second invoice number = %s, want INV2026-00002", second.InvoiceNumber)
	}
}
