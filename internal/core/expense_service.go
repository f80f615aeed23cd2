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

// Expense categories.
const (
	ExpenseTransportation = "transportation"
	ExpenseMaterials      = "materials"
	ExpenseTools          = "tools"
	ExpenseMeals          = "meals"
	ExpenseAccommodation  = "accommodation"
	ExpenseOther          = "other"
)

// CreateExpenseInput is the validated input for a new expense claim.
type CreateExpenseInput struct {
	ProjectID   *int64
	EmployeeID  int64
	ExpenseDate time.Time
	Category    string
	Description string
	Amount      decimal.Decimal
	Notes       string
}

// ExpenseFilter narrows ListExpenses.
type ExpenseFilter struct {
	ProjectID  *int64
	EmployeeID *int64
	Status     *ExpenseStatus
	DateFrom   *time.Time
	DateTo     *time.Time
}

// ExpenseService manages expense claims:
//
//	pending → approved | rejected
//	approved → reimbursed
//
// Approving a project-linked expense charges the amount against the project.
type ExpenseService interface {
	CreateExpense(ctx context.Context, in CreateExpenseInput) (*Expense, error)
	GetExpense(ctx context.Context, expenseID int64) (*Expense, error)
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error)
	ApproveExpense(ctx context.Context, expenseID, approverID int64) (*Expense, error)
	RejectExpense(ctx context.Context, expenseID, approverID int64) (*Expense, error)
	ReimburseExpense(ctx context.Context, expenseID int64) (*Expense, error)
	// DeleteExpense removes a pending claim only.
	DeleteExpense(ctx context.Context, expenseID int64) error
}

type expenseService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
}

func NewExpenseService(pool *pgxpool.Pool, sequences SequenceService) ExpenseService {
	return &expenseService{pool: pool, sequences: sequences}
}

func (s *expenseService) CreateExpense(ctx context.Context, in CreateExpenseInput) (*Expense, error) {
	if !in.Amount.IsPositive() {
		return nil, validationf("expense amount must be > 0, got %s", in.Amount)
	}
	if in.Description == "" {
		return nil, validationf("description is required")
	}
	if in.ExpenseDate.IsZero() {
		return nil, validationf("expense date is required")
	}
	switch in.Category {
	case ExpenseTransportation, ExpenseMaterials, ExpenseTools, ExpenseMeals, ExpenseAccommodation, ExpenseOther:
	default:
		return nil, validationf("unknown expense category %q", in.Category)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, err := s.sequences.NextReferenceTx(ctx, tx, DocTypeExpense, YearPeriod(in.ExpenseDate))
	if err != nil {
		return nil, err
	}

	var expenseID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO expenses (project_id, employee_id, expense_number, expense_date, category, description, amount, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, in.ProjectID, in.EmployeeID, number, in.ExpenseDate, in.Category, in.Description,
		in.Amount, string(ExpensePending), in.Notes).Scan(&expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert expense: %w", classifyPgError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit expense: %w", err)
	}
	return s.GetExpense(ctx, expenseID)
}

func (s *expenseService) GetExpense(ctx context.Context, expenseID int64) (*Expense, error) {
	var e Expense
	err := s.pool.QueryRow(ctx, expenseSelect+" WHERE id = $1", expenseID).Scan(expenseFields(&e)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("expense %d", expenseID)
		}
		return nil, fmt.Errorf("failed to fetch expense %d: %w", expenseID, err)
	}
	return &e, nil
}

func (s *expenseService) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error) {
	query := expenseSelect + " WHERE 1=1"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.ProjectID != nil {
		query += " AND project_id = " + arg(*filter.ProjectID)
	}
	if filter.EmployeeID != nil {
		query += " AND employee_id = " + arg(*filter.EmployeeID)
	}
	if filter.Status != nil {
		query += " AND status = " + arg(string(*filter.Status))
	}
	if filter.DateFrom != nil {
		query += " AND expense_date >= " + arg(*filter.DateFrom)
	}
	if filter.DateTo != nil {
		query += " AND expense_date <= " + arg(*filter.DateTo)
	}
	query += " ORDER BY expense_date DESC, id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(expenseFields(&e)...); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

func (s *expenseService) ApproveExpense(ctx context.Context, expenseID, approverID int64) (*Expense, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, projectID, amount, err := lockExpense(ctx, tx, expenseID)
	if err != nil {
		return nil, err
	}
	if status != ExpensePending {
		return nil, conflictf("expense %d is %s, only pending expenses can be approved", expenseID, status)
	}

	_, err = tx.Exec(ctx, `
		UPDATE expenses
		SET status = $1, approved_by = $2, approved_at = NOW(), updated_at = NOW()
		WHERE id = $3
	`, string(ExpenseApproved), approverID, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to approve expense %d: %w", expenseID, err)
	}

	if projectID != nil {
		_, err = tx.Exec(ctx,
			"UPDATE projects SET actual_cost = actual_cost + $1, updated_at = NOW() WHERE id = $2",
			amount, *projectID)
		if err != nil {
			return nil, fmt.Errorf("failed to charge project %d: %w", *projectID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit expense approval: %w", err)
	}
	return s.GetExpense(ctx, expenseID)
}

func (s *expenseService) RejectExpense(ctx context.Context, expenseID, approverID int64) (*Expense, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, _, err := lockExpense(ctx, tx, expenseID)
	if err != nil {
		return nil, err
	}
	if status != ExpensePending {
		return nil, conflictf("expense %d is %s, only pending expenses can be rejected", expenseID, status)
	}

	_, err = tx.Exec(ctx, `
		UPDATE expenses
		SET status = $1, approved_by = $2, approved_at = NOW(), updated_at = NOW()
		WHERE id = $3
	`, string(ExpenseRejected), approverID, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to reject expense %d: %w", expenseID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit expense rejection: %w", err)
	}
	return s.GetExpense(ctx, expenseID)
}

func (s *expenseService) ReimburseExpense(ctx context.Context, expenseID int64) (*Expense, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, _, err := lockExpense(ctx, tx, expenseID)
	if err != nil {
		return nil, err
	}
	if status != ExpenseApproved {
		return nil, conflictf("expense %d is %s, only approved expenses can be reimbursed", expenseID, status)
	}

	_, err = tx.Exec(ctx,
		"UPDATE expenses SET status = $1, updated_at = NOW() WHERE id = $2",
		string(ExpenseReimbursed), expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to reimburse expense %d: %w", expenseID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit expense reimbursement: %w", err)
	}
	return s.GetExpense(ctx, expenseID)
}

func (s *expenseService) DeleteExpense(ctx context.Context, expenseID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, _, err := lockExpense(ctx, tx, expenseID)
	if err != nil {
		return err
	}
	if status != ExpensePending {
		return conflictf("expense %d is %s and cannot be deleted", expenseID, status)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM expenses WHERE id = $1", expenseID); err != nil {
		return fmt.Errorf("failed to delete expense %d: %w", expenseID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit expense delete: %w", err)
	}
	return nil
}

func lockExpense(ctx context.Context, tx pgx.Tx, expenseID int64) (ExpenseStatus, *int64, decimal.Decimal, error) {
	var status ExpenseStatus
	var projectID *int64
	var amount decimal.Decimal
	err := tx.QueryRow(ctx,
		"SELECT status, project_id, amount FROM expenses WHERE id = $1 FOR UPDATE",
		expenseID).Scan(&status, &projectID, &amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, decimal.Zero, notFoundf("expense %d", expenseID)
		}
		return "", nil, decimal.Zero, fmt.Errorf("failed to lock expense %d: %w", expenseID, classifyPgError(err))
	}
	return status, projectID, amount, nil
}

const expenseSelect = `
	SELECT id, project_id, employee_id, expense_number, expense_date, category, description,
	       amount, status, approved_by, approved_at, COALESCE(notes, ''), created_at
	FROM expenses`

func expenseFields(e *Expense) []any {
	return []any{
		&e.ID, &e.ProjectID, &e.EmployeeID, &e.ExpenseNumber, &e.ExpenseDate, &e.Category,
		&e.Description, &e.Amount, &e.Status, &e.ApprovedBy, &e.ApprovedAt, &e.Notes, &e.CreatedAt,
	}
}
