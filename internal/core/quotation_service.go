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

type QuotationStatus string

const (
	QuotationDraft    QuotationStatus = "draft"
	QuotationSent     QuotationStatus = "sent"
	QuotationApproved QuotationStatus = "approved"
	QuotationRejected QuotationStatus = "rejected"
	QuotationExpired  QuotationStatus = "expired"
)

// Quotation is a priced offer to a customer. Only an approved quotation can
// back an invoice.
type Quotation struct {
	ID              int64           `json:"id"`
	CustomerID      int64           `json:"customer_id"`
	ProjectID       *int64          `json:"project_id,omitempty"`
	QuotationNumber string          `json:"quotation_number"`
	QuotationDate   time.Time       `json:"quotation_date"`
	ValidUntil      *time.Time      `json:"valid_until,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxPercentage   decimal.Decimal `json:"tax_percentage"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          QuotationStatus `json:"status"`
	Notes           string          `json:"notes,omitempty"`
	DecidedAt       *time.Time      `json:"decided_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []QuotationItem `json:"items,omitempty"`
}

type QuotationItem struct {
	ID          int64           `json:"id"`
	QuotationID int64           `json:"quotation_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// CreateQuotationInput is the validated input for a new quotation. Line items
// reuse the invoice item input shape; totals are computed server side.
type CreateQuotationInput struct {
	CustomerID     int64
	ProjectID      *int64
	QuotationDate  time.Time
	ValidUntil     *time.Time
	TaxPercentage  decimal.Decimal
	DiscountAmount decimal.Decimal
	Notes          string
	Items          []InvoiceItemInput
}

// QuotationFilter narrows ListQuotations.
type QuotationFilter struct {
	CustomerID *int64
	Status     *QuotationStatus
	Search     string
}

// QuotationService manages the quotation lifecycle:
//
//	draft → sent → approved | rejected
//	sent → expired (past valid_until)
//
// Edits and deletes are allowed in draft only.
type QuotationService interface {
	CreateQuotation(ctx context.Context, in CreateQuotationInput) (*Quotation, error)
	UpdateQuotation(ctx context.Context, quotationID int64, in CreateQuotationInput) (*Quotation, error)
	DeleteQuotation(ctx context.Context, quotationID int64) error
	GetQuotation(ctx context.Context, quotationID int64) (*Quotation, error)
	ListQuotations(ctx context.Context, filter QuotationFilter) ([]Quotation, error)
	SendQuotation(ctx context.Context, quotationID int64) (*Quotation, error)
	ApproveQuotation(ctx context.Context, quotationID int64) (*Quotation, error)
	RejectQuotation(ctx context.Context, quotationID int64) (*Quotation, error)
	// MarkExpired flips sent quotations whose valid_until has passed and
	// returns how many changed.
	MarkExpired(ctx context.Context, asOf time.Time) (int64, error)
}

type quotationService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
}

func NewQuotationService(pool *pgxpool.Pool, sequences SequenceService) QuotationService {
	return &quotationService{pool: pool, sequences: sequences}
}

func (s *quotationService) CreateQuotation(ctx context.Context, in CreateQuotationInput) (*Quotation, error) {
	if err := validateInvoiceInput(in.Items, in.TaxPercentage, in.DiscountAmount); err != nil {
		return nil, err
	}
	if in.QuotationDate.IsZero() {
		return nil, validationf("quotation date is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)", in.CustomerID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check customer %d: %w", in.CustomerID, err)
	}
	if !exists {
		return nil, notFoundf("customer %d", in.CustomerID)
	}

	number, err := s.sequences.NextReferenceTx(ctx, tx, DocTypeQuotation, YearPeriod(in.QuotationDate))
	if err != nil {
		return nil, err
	}

	totals := ComputeInvoiceTotals(in.Items, in.TaxPercentage, in.DiscountAmount)
	var quotationID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO quotations (customer_id, project_id, quotation_number, quotation_date, valid_until,
		                        subtotal, tax_percentage, tax_amount, discount_amount, total_amount, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, in.CustomerID, in.ProjectID, number, in.QuotationDate, in.ValidUntil,
		totals.Subtotal, in.TaxPercentage, totals.TaxAmount, in.DiscountAmount, totals.TotalAmount,
		string(QuotationDraft), in.Notes).Scan(&quotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert quotation: %w", classifyPgError(err))
	}

	if err := insertQuotationItems(ctx, tx, quotationID, in.Items); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quotation: %w", err)
	}
	return s.GetQuotation(ctx, quotationID)
}

func (s *quotationService) UpdateQuotation(ctx context.Context, quotationID int64, in CreateQuotationInput) (*Quotation, error) {
	if err := validateInvoiceInput(in.Items, in.TaxPercentage, in.DiscountAmount); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockQuotationStatus(ctx, tx, quotationID)
	if err != nil {
		return nil, err
	}
	if status != QuotationDraft {
		return nil, conflictf("quotation %d is %s and can no longer be edited", quotationID, status)
	}

	totals := ComputeInvoiceTotals(in.Items, in.TaxPercentage, in.DiscountAmount)
	_, err = tx.Exec(ctx, `
		UPDATE quotations
		SET quotation_date = $1, valid_until = $2, subtotal = $3, tax_percentage = $4,
		    tax_amount = $5, discount_amount = $6, total_amount = $7, notes = $8, updated_at = NOW()
		WHERE id = $9
	`, in.QuotationDate, in.ValidUntil, totals.Subtotal, in.TaxPercentage,
		totals.TaxAmount, in.DiscountAmount, totals.TotalAmount, in.Notes, quotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to update quotation %d: %w", quotationID, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM quotation_items WHERE quotation_id = $1", quotationID); err != nil {
		return nil, fmt.Errorf("failed to clear quotation %d items: %w", quotationID, err)
	}
	if err := insertQuotationItems(ctx, tx, quotationID, in.Items); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quotation update: %w", err)
	}
	return s.GetQuotation(ctx, quotationID)
}

func (s *quotationService) DeleteQuotation(ctx context.Context, quotationID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockQuotationStatus(ctx, tx, quotationID)
	if err != nil {
		return err
	}
	if status != QuotationDraft {
		return conflictf("quotation %d is %s and cannot be deleted", quotationID, status)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM quotations WHERE id = $1", quotationID); err != nil {
		return fmt.Errorf("failed to delete quotation %d: %w", quotationID, classifyPgError(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit quotation delete: %w", err)
	}
	return nil
}

func (s *quotationService) GetQuotation(ctx context.Context, quotationID int64) (*Quotation, error) {
	var q Quotation
	err := s.pool.QueryRow(ctx, `
		SELECT id, customer_id, project_id, quotation_number, quotation_date, valid_until,
		       subtotal, tax_percentage, tax_amount, discount_amount, total_amount, status,
		       COALESCE(notes, ''), decided_at, created_at, updated_at
		FROM quotations
		WHERE id = $1
	`, quotationID).Scan(
		&q.ID, &q.CustomerID, &q.ProjectID, &q.QuotationNumber, &q.QuotationDate, &q.ValidUntil,
		&q.Subtotal, &q.TaxPercentage, &q.TaxAmount, &q.DiscountAmount, &q.TotalAmount, &q.Status,
		&q.Notes, &q.DecidedAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("quotation %d", quotationID)
		}
		return nil, fmt.Errorf("failed to fetch quotation %d: %w", quotationID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, quotation_id, description, quantity, unit, unit_price, subtotal
		FROM quotation_items
		WHERE quotation_id = $1
		ORDER BY id
	`, quotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotation %d items: %w", quotationID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var item QuotationItem
		if err := rows.Scan(&item.ID, &item.QuotationID, &item.Description, &item.Quantity, &item.Unit, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan quotation item: %w", err)
		}
		q.Items = append(q.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quotation items: %w", err)
	}
	return &q, nil
}

func (s *quotationService) ListQuotations(ctx context.Context, filter QuotationFilter) ([]Quotation, error) {
	query := `
		SELECT q.id, q.customer_id, q.project_id, q.quotation_number, q.quotation_date, q.valid_until,
		       q.subtotal, q.tax_percentage, q.tax_amount, q.discount_amount, q.total_amount, q.status,
		       COALESCE(q.notes, ''), q.decided_at, q.created_at, q.updated_at
		FROM quotations q
		JOIN customers c ON c.id = q.customer_id
		WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.CustomerID != nil {
		query += " AND q.customer_id = " + arg(*filter.CustomerID)
	}
	if filter.Status != nil {
		query += " AND q.status = " + arg(string(*filter.Status))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		query += fmt.Sprintf(" AND (q.quotation_number ILIKE %s OR c.name ILIKE %s)", p, p)
	}
	query += " ORDER BY q.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotations: %w", err)
	}
	defer rows.Close()

	var quotations []Quotation
	for rows.Next() {
		var q Quotation
		if err := rows.Scan(
			&q.ID, &q.CustomerID, &q.ProjectID, &q.QuotationNumber, &q.QuotationDate, &q.ValidUntil,
			&q.Subtotal, &q.TaxPercentage, &q.TaxAmount, &q.DiscountAmount, &q.TotalAmount, &q.Status,
			&q.Notes, &q.DecidedAt, &q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quotation: %w", err)
		}
		quotations = append(quotations, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quotations: %w", err)
	}
	return quotations, nil
}

func (s *quotationService) SendQuotation(ctx context.Context, quotationID int64) (*Quotation, error) {
	return s.transition(ctx, quotationID, []QuotationStatus{QuotationDraft}, QuotationSent, false)
}

func (s *quotationService) ApproveQuotation(ctx context.Context, quotationID int64) (*Quotation, error) {
	return s.transition(ctx, quotationID, []QuotationStatus{QuotationSent}, QuotationApproved, true)
}

func (s *quotationService) RejectQuotation(ctx context.Context, quotationID int64) (*Quotation, error) {
	return s.transition(ctx, quotationID, []QuotationStatus{QuotationSent}, QuotationRejected, true)
}

func (s *quotationService) transition(ctx context.Context, quotationID int64, from []QuotationStatus, to QuotationStatus, decided bool) (*Quotation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockQuotationStatus(ctx, tx, quotationID)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, f := range from {
		if status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, conflictf("quotation %d is %s, cannot move to %s", quotationID, status, to)
	}

	if decided {
		_, err = tx.Exec(ctx,
			"UPDATE quotations SET status = $1, decided_at = NOW(), updated_at = NOW() WHERE id = $2",
			string(to), quotationID)
	} else {
		_, err = tx.Exec(ctx,
			"UPDATE quotations SET status = $1, updated_at = NOW() WHERE id = $2",
			string(to), quotationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to transition quotation %d: %w", quotationID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quotation transition: %w", err)
	}
	return s.GetQuotation(ctx, quotationID)
}

func (s *quotationService) MarkExpired(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE quotations
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND valid_until IS NOT NULL AND valid_until < $3
	`, string(QuotationExpired), string(QuotationSent), asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to expire quotations: %w", classifyPgError(err))
	}
	return tag.RowsAffected(), nil
}

func lockQuotationStatus(ctx context.Context, tx pgx.Tx, quotationID int64) (QuotationStatus, error) {
	var status QuotationStatus
	err := tx.QueryRow(ctx, "SELECT status FROM quotations WHERE id = $1 FOR UPDATE", quotationID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", notFoundf("quotation %d", quotationID)
		}
		return "", fmt.Errorf("failed to lock quotation %d: %w", quotationID, classifyPgError(err))
	}
	return status, nil
}

func insertQuotationItems(ctx context.Context, tx pgx.Tx, quotationID int64, items []InvoiceItemInput) error {
	for _, item := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO quotation_items (quotation_id, description, quantity, unit, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, quotationID, item.Description, item.Quantity, item.Unit, item.UnitPrice,
			item.Quantity.Mul(item.UnitPrice).Round(2))
		if err != nil {
			return fmt.Errorf("failed to insert quotation item: %w", err)
		}
	}
	return nil
}
