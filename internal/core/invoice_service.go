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

// CreateInvoiceInput is the validated input for creating or replacing an
// invoice. Items are fixed at creation/edit time; once the invoice leaves
// draft they become immutable.
type CreateInvoiceInput struct {
	CustomerID     int64
	ProjectID      *int64
	QuotationID    *int64
	InvoiceDate    time.Time
	DueDate        time.Time
	TaxPercentage  decimal.Decimal
	DiscountAmount decimal.Decimal
	PaymentTerms   string
	Notes          string
	Items          []InvoiceItemInput
}

// InvoiceFilter narrows ListInvoices.
type InvoiceFilter struct {
	CustomerID *int64
	ProjectID  *int64
	Status     *InvoiceStatus
	Search     string // matches invoice number or customer name
}

type InvoiceService interface {
	// CreateInvoice creates a draft invoice with its items in one transaction.
	// The invoice number is issued from the yearly INV sequence.
	CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*Invoice, error)
	// UpdateInvoice replaces header fields and items. Draft invoices only.
	UpdateInvoice(ctx context.Context, invoiceID int64, in CreateInvoiceInput) (*Invoice, error)
	// DeleteInvoice removes a draft invoice and its items.
	DeleteInvoice(ctx context.Context, invoiceID int64) error
	// SendInvoice transitions draft → sent, freezing the invoice structure.
	SendInvoice(ctx context.Context, invoiceID int64) (*Invoice, error)
	// MarkOverdue flips sent/partial invoices past their due date to overdue
	// and returns how many rows changed.
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	GetInvoice(ctx context.Context, invoiceID int64) (*Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
}

type invoiceService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
}

func NewInvoiceService(pool *pgxpool.Pool, sequences SequenceService) InvoiceService {
	return &invoiceService{pool: pool, sequences: sequences}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*Invoice, error) {
	if err := s.validateHeader(in); err != nil {
		return nil, err
	}
	totals := ComputeInvoiceTotals(in.Items, in.TaxPercentage, in.DiscountAmount)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.checkReferences(ctx, tx, in); err != nil {
		return nil, err
	}

	invoiceNumber, err := s.sequences.NextReferenceTx(ctx, tx, DocTypeInvoice, YearPeriod(in.InvoiceDate))
	if err != nil {
		return nil, err
	}

	var invoiceID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (customer_id, project_id, quotation_id, invoice_number, invoice_date, due_date,
		                      subtotal, tax_percentage, tax_amount, discount_amount, total_amount,
		                      paid_amount, status, payment_terms, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, $12, $13, $14)
		RETURNING id
	`, in.CustomerID, in.ProjectID, in.QuotationID, invoiceNumber, in.InvoiceDate, in.DueDate,
		totals.Subtotal, in.TaxPercentage, totals.TaxAmount, totals.DiscountAmount, totals.TotalAmount,
		string(InvoiceDraft), in.PaymentTerms, in.Notes).Scan(&invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert invoice: %w", classifyPgError(err))
	}

	if err := insertInvoiceItems(ctx, tx, invoiceID, in.Items); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice: %w", err)
	}
	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, invoiceID int64, in CreateInvoiceInput) (*Invoice, error) {
	if err := s.validateHeader(in); err != nil {
		return nil, err
	}
	totals := ComputeInvoiceTotals(in.Items, in.TaxPercentage, in.DiscountAmount)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockInvoiceStatus(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if status != InvoiceDraft {
		return nil, conflictf("only draft invoices can be edited, invoice %d is %s", invoiceID, status)
	}

	if err := s.checkReferences(ctx, tx, in); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE invoices
		SET customer_id = $1, project_id = $2, quotation_id = $3, invoice_date = $4, due_date = $5,
		    subtotal = $6, tax_percentage = $7, tax_amount = $8, discount_amount = $9, total_amount = $10,
		    payment_terms = $11, notes = $12, updated_at = NOW()
		WHERE id = $13
	`, in.CustomerID, in.ProjectID, in.QuotationID, in.InvoiceDate, in.DueDate,
		totals.Subtotal, in.TaxPercentage, totals.TaxAmount, totals.DiscountAmount, totals.TotalAmount,
		in.PaymentTerms, in.Notes, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice %d: %w", invoiceID, classifyPgError(err))
	}

	if _, err := tx.Exec(ctx, "DELETE FROM invoice_items WHERE invoice_id = $1", invoiceID); err != nil {
		return nil, fmt.Errorf("failed to clear invoice items: %w", err)
	}
	if err := insertInvoiceItems(ctx, tx, invoiceID, in.Items); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice update: %w", err)
	}
	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockInvoiceStatus(ctx, tx, invoiceID)
	if err != nil {
		return err
	}
	if status != InvoiceDraft {
		return conflictf("only draft invoices can be deleted, invoice %d is %s", invoiceID, status)
	}

	// invoice_items cascade
	if _, err := tx.Exec(ctx, "DELETE FROM invoices WHERE id = $1", invoiceID); err != nil {
		return fmt.Errorf("failed to delete invoice %d: %w", invoiceID, classifyPgError(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit invoice delete: %w", err)
	}
	return nil
}

func (s *invoiceService) SendInvoice(ctx context.Context, invoiceID int64) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockInvoiceStatus(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if status != InvoiceDraft {
		return nil, conflictf("invoice %d is already %s", invoiceID, status)
	}

	_, err = tx.Exec(ctx,
		"UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2",
		string(InvoiceSent), invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to send invoice %d: %w", invoiceID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice send: %w", err)
	}
	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE invoices
		SET status = $1, updated_at = NOW()
		WHERE status IN ($2, $3) AND due_date < $4
	`, string(InvoiceOverdue), string(InvoiceSent), string(InvoicePartial), asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue invoices: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID int64) (*Invoice, error) {
	var inv Invoice
	err := s.pool.QueryRow(ctx, `
		SELECT id, customer_id, project_id, quotation_id, invoice_number, invoice_date, due_date,
		       subtotal, tax_percentage, tax_amount, discount_amount, total_amount, paid_amount,
		       status, COALESCE(payment_terms, ''), COALESCE(notes, ''), paid_at, created_at, updated_at
		FROM invoices
		WHERE id = $1
	`, invoiceID).Scan(
		&inv.ID, &inv.CustomerID, &inv.ProjectID, &inv.QuotationID, &inv.InvoiceNumber,
		&inv.InvoiceDate, &inv.DueDate, &inv.Subtotal, &inv.TaxPercentage, &inv.TaxAmount,
		&inv.DiscountAmount, &inv.TotalAmount, &inv.PaidAmount, &inv.Status,
		&inv.PaymentTerms, &inv.Notes, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("invoice %d", invoiceID)
		}
		return nil, fmt.Errorf("failed to fetch invoice %d: %w", invoiceID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit, unit_price, subtotal
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoice items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.Unit, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		inv.Items = append(inv.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice items: %w", err)
	}
	return &inv, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	query := `
		SELECT i.id, i.customer_id, i.project_id, i.quotation_id, i.invoice_number, i.invoice_date, i.due_date,
		       i.subtotal, i.tax_percentage, i.tax_amount, i.discount_amount, i.total_amount, i.paid_amount,
		       i.status, COALESCE(i.payment_terms, ''), COALESCE(i.notes, ''), i.paid_at, i.created_at, i.updated_at
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.CustomerID != nil {
		query += " AND i.customer_id = " + arg(*filter.CustomerID)
	}
	if filter.ProjectID != nil {
		query += " AND i.project_id = " + arg(*filter.ProjectID)
	}
	if filter.Status != nil {
		query += " AND i.status = " + arg(string(*filter.Status))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		query += fmt.Sprintf(" AND (i.invoice_number ILIKE %s OR c.name ILIKE %s)", p, p)
	}
	query += " ORDER BY i.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(
			&inv.ID, &inv.CustomerID, &inv.ProjectID, &inv.QuotationID, &inv.InvoiceNumber,
			&inv.InvoiceDate, &inv.DueDate, &inv.Subtotal, &inv.TaxPercentage, &inv.TaxAmount,
			&inv.DiscountAmount, &inv.TotalAmount, &inv.PaidAmount, &inv.Status,
			&inv.PaymentTerms, &inv.Notes, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}
	return invoices, nil
}

func (s *invoiceService) validateHeader(in CreateInvoiceInput) error {
	if in.CustomerID == 0 {
		return validationf("customer is required")
	}
	if in.InvoiceDate.IsZero() || in.DueDate.IsZero() {
		return validationf("invoice date and due date are required")
	}
	if in.DueDate.Before(in.InvoiceDate) {
		return validationf("due date %s is before invoice date %s",
			in.DueDate.Format("2006-01-02"), in.InvoiceDate.Format("2006-01-02"))
	}
	return validateInvoiceInput(in.Items, in.TaxPercentage, in.DiscountAmount)
}

// checkReferences verifies the customer exists and, when a quotation is
// attached, that it has been approved.
func (s *invoiceService) checkReferences(ctx context.Context, tx pgx.Tx, in CreateInvoiceInput) error {
	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)", in.CustomerID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check customer %d: %w", in.CustomerID, err)
	}
	if !exists {
		return notFoundf("customer %d", in.CustomerID)
	}
	if in.QuotationID != nil {
		var status string
		err := tx.QueryRow(ctx, "SELECT status FROM quotations WHERE id = $1", *in.QuotationID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFoundf("quotation %d", *in.QuotationID)
			}
			return fmt.Errorf("failed to check quotation %d: %w", *in.QuotationID, err)
		}
		if QuotationStatus(status) != QuotationApproved {
			return validationf("quotation %d is %s, only approved quotations can be invoiced", *in.QuotationID, status)
		}
	}
	return nil
}

// lockInvoiceStatus locks the invoice row and returns its current status.
func lockInvoiceStatus(ctx context.Context, tx pgx.Tx, invoiceID int64) (InvoiceStatus, error) {
	var status InvoiceStatus
	err := tx.QueryRow(ctx, "SELECT status FROM invoices WHERE id = $1 FOR UPDATE", invoiceID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", notFoundf("invoice %d", invoiceID)
		}
		return "", fmt.Errorf("failed to lock invoice %d: %w", invoiceID, classifyPgError(err))
	}
	return status, nil
}

func insertInvoiceItems(ctx context.Context, tx pgx.Tx, invoiceID int64, items []InvoiceItemInput) error {
	for _, it := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO invoice_items (invoice_id, description, quantity, unit, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, invoiceID, it.Description, it.Quantity, it.Unit, it.UnitPrice, it.Quantity.Mul(it.UnitPrice))
		if err != nil {
			return fmt.Errorf("failed to insert invoice item: %w", err)
		}
	}
	return nil
}
