package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RecordPaymentInput is the validated input for recording one payment
// against an invoice.
type RecordPaymentInput struct {
	InvoiceID       int64
	PaymentDate     time.Time
	Amount          decimal.Decimal
	PaymentMethod   string
	ReferenceNumber string
	Notes           string
}

// PaymentService applies and reverses payments. Both operations lock the
// parent invoice row, mutate paid_amount, and re-derive the status inside a
// single transaction, so partial ledger state is never observable.
type PaymentService interface {
	// RecordPayment rejects amounts exceeding the outstanding balance with
	// ErrInsufficientBalance; nothing is written in that case.
	RecordPayment(ctx context.Context, in RecordPaymentInput) (*Payment, *Invoice, error)
	// DeletePayment exactly reverses the payment's contribution to the
	// invoice balance and re-derives the status.
	DeletePayment(ctx context.Context, paymentID int64) (*Invoice, error)
	ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error)
}

type paymentService struct {
	pool     *pgxpool.Pool
	invoices InvoiceService
}

func NewPaymentService(pool *pgxpool.Pool, invoices InvoiceService) PaymentService {
	return &paymentService{pool: pool, invoices: invoices}
}

func (s *paymentService) RecordPayment(ctx context.Context, in RecordPaymentInput) (*Payment, *Invoice, error) {
	if !in.Amount.IsPositive() {
		return nil, nil, validationf("payment amount must be > 0, got %s", in.Amount)
	}
	if in.PaymentMethod == "" {
		return nil, nil, validationf("payment method is required")
	}
	if in.PaymentDate.IsZero() {
		return nil, nil, validationf("payment date is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var total, paid decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT total_amount, paid_amount FROM invoices WHERE id = $1 FOR UPDATE",
		in.InvoiceID).Scan(&total, &paid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, notFoundf("invoice %d", in.InvoiceID)
		}
		return nil, nil, fmt.Errorf("failed to lock invoice %d: %w", in.InvoiceID, classifyPgError(err))
	}

	outstanding := total.Sub(paid)
	if in.Amount.GreaterThan(outstanding) {
		return nil, nil, fmt.Errorf("%w: payment %s exceeds outstanding balance %s on invoice %d",
			ErrInsufficientBalance, in.Amount, outstanding, in.InvoiceID)
	}

	var payment Payment
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, payment_date, amount, payment_method, reference_number, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, invoice_id, payment_date, amount, payment_method, COALESCE(reference_number, ''), COALESCE(notes, ''), created_at
	`, in.InvoiceID, in.PaymentDate, in.Amount, in.PaymentMethod, in.ReferenceNumber, in.Notes).Scan(
		&payment.ID, &payment.InvoiceID, &payment.PaymentDate, &payment.Amount,
		&payment.PaymentMethod, &payment.ReferenceNumber, &payment.Notes, &payment.CreatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert payment: %w", classifyPgError(err))
	}

	newPaid := paid.Add(in.Amount)
	if err := updateInvoiceBalance(ctx, tx, in.InvoiceID, total, newPaid); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	invoice, err := s.invoices.GetInvoice(ctx, in.InvoiceID)
	if err != nil {
		return nil, nil, err
	}
	return &payment, invoice, nil
}

func (s *paymentService) DeletePayment(ctx context.Context, paymentID int64) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var invoiceID int64
	var amount decimal.Decimal
	err = tx.QueryRow(ctx, "SELECT invoice_id, amount FROM payments WHERE id = $1", paymentID).Scan(&invoiceID, &amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("payment %d", paymentID)
		}
		return nil, fmt.Errorf("failed to fetch payment %d: %w", paymentID, err)
	}

	var total, paid decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT total_amount, paid_amount FROM invoices WHERE id = $1 FOR UPDATE",
		invoiceID).Scan(&total, &paid)
	if err != nil {
		return nil, fmt.Errorf("failed to lock invoice %d: %w", invoiceID, classifyPgError(err))
	}

	if _, err := tx.Exec(ctx, "DELETE FROM payments WHERE id = $1", paymentID); err != nil {
		return nil, fmt.Errorf("failed to delete payment %d: %w", paymentID, err)
	}

	// paid_amount always covers the payment being removed, so newPaid >= 0.
	newPaid := paid.Sub(amount)
	if err := updateInvoiceBalance(ctx, tx, invoiceID, total, newPaid); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment delete: %w", err)
	}
	return s.invoices.GetInvoice(ctx, invoiceID)
}

func (s *paymentService) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, invoice_id, payment_date, amount, payment_method, COALESCE(reference_number, ''), COALESCE(notes, ''), created_at
		FROM payments
		WHERE invoice_id = $1
		ORDER BY payment_date, id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.PaymentDate, &p.Amount, &p.PaymentMethod, &p.ReferenceNumber, &p.Notes, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return payments, nil
}

// updateInvoiceBalance writes the new running balance and the status derived
// from it. paid_at is set on the transition to paid and cleared otherwise.
func updateInvoiceBalance(ctx context.Context, tx pgx.Tx, invoiceID int64, total, newPaid decimal.Decimal) error {
	status := DeriveInvoiceStatus(total, newPaid)
	var err error
	if status == InvoicePaid {
		_, err = tx.Exec(ctx, `
			UPDATE invoices
			SET paid_amount = $1, status = $2, paid_at = COALESCE(paid_at, NOW()), updated_at = NOW()
			WHERE id = $3
		`, newPaid, string(status), invoiceID)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE invoices
			SET paid_amount = $1, status = $2, paid_at = NULL, updated_at = NOW()
			WHERE id = $3
		`, newPaid, string(status), invoiceID)
	}
	if err != nil {
		return fmt.Errorf("failed to update invoice %d balance: %w", invoiceID, err)
	}
	return nil
}
