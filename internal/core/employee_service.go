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

// Departments an employee can belong to.
const (
	DeptElectrical = "electrical"
	DeptMechanical = "mechanical"
	DeptAdmin      = "admin"
	DeptManagement = "management"
)

// EmployeeInput is the validated input for creating or updating an employee.
type EmployeeInput struct {
	Name       string
	Phone      string
	Address    string
	Position   string
	Department string
	HireDate   time.Time
	HourlyRate *decimal.Decimal
	Status     EmployeeStatus
}

// EmployeeFilter narrows ListEmployees.
type EmployeeFilter struct {
	Department *string
	Status     *EmployeeStatus
	Search     string
}

type EmployeeService interface {
	CreateEmployee(ctx context.Context, in EmployeeInput) (*Employee, error)
	UpdateEmployee(ctx context.Context, employeeID int64, in EmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, employeeID int64) (*Employee, error)
	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error)
}

type employeeService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
}

func NewEmployeeService(pool *pgxpool.Pool, sequences SequenceService) EmployeeService {
	return &employeeService{pool: pool, sequences: sequences}
}

func (s *employeeService) CreateEmployee(ctx context.Context, in EmployeeInput) (*Employee, error) {
	if err := validateEmployeeInput(in); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	code, err := s.sequences.NextReferenceTx(ctx, tx, DocTypeEmployee, AllTime)
	if err != nil {
		return nil, err
	}

	var employeeID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO employees (employee_code, name, phone, address, position, department, hire_date, hourly_rate, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, code, in.Name, in.Phone, in.Address, in.Position, in.Department, in.HireDate,
		in.HourlyRate, string(in.Status)).Scan(&employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert employee: %w", classifyPgError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit employee: %w", err)
	}
	return s.GetEmployee(ctx, employeeID)
}

func (s *employeeService) UpdateEmployee(ctx context.Context, employeeID int64, in EmployeeInput) (*Employee, error) {
	if err := validateEmployeeInput(in); err != nil {
		return nil, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE employees
		SET name = $1, phone = $2, address = $3, position = $4, department = $5,
		    hire_date = $6, hourly_rate = $7, status = $8, updated_at = NOW()
		WHERE id = $9
	`, in.Name, in.Phone, in.Address, in.Position, in.Department,
		in.HireDate, in.HourlyRate, string(in.Status), employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to update employee %d: %w", employeeID, classifyPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return nil, notFoundf("employee %d", employeeID)
	}
	return s.GetEmployee(ctx, employeeID)
}

func (s *employeeService) GetEmployee(ctx context.Context, employeeID int64) (*Employee, error) {
	var e Employee
	err := s.pool.QueryRow(ctx, employeeSelect+" WHERE id = $1", employeeID).Scan(employeeFields(&e)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("employee %d", employeeID)
		}
		return nil, fmt.Errorf("failed to fetch employee %d: %w", employeeID, err)
	}
	return &e, nil
}

func (s *employeeService) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error) {
	query := employeeSelect + " WHERE 1=1"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Department != nil {
		query += " AND department = " + arg(*filter.Department)
	}
	if filter.Status != nil {
		query += " AND status = " + arg(string(*filter.Status))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		query += fmt.Sprintf(" AND (employee_code ILIKE %s OR name ILIKE %s OR position ILIKE %s)", p, p, p)
	}
	query += " ORDER BY employee_code"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(employeeFields(&e)...); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}
	return employees, nil
}

const employeeSelect = `
	SELECT id, employee_code, name, COALESCE(phone, ''), COALESCE(address, ''), position,
	       department, hire_date, hourly_rate, status, created_at, updated_at
	FROM employees`

func employeeFields(e *Employee) []any {
	return []any{
		&e.ID, &e.EmployeeCode, &e.Name, &e.Phone, &e.Address, &e.Position,
		&e.Department, &e.HireDate, &e.HourlyRate, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	}
}

func validateEmployeeInput(in EmployeeInput) error {
	if in.Name == "" {
		return validationf("employee name is required")
	}
	if in.Position == "" {
		return validationf("position is required")
	}
	switch in.Department {
	case DeptElectrical, DeptMechanical, DeptAdmin, DeptManagement:
	default:
		return validationf("unknown department %q", in.Department)
	}
	if in.HireDate.IsZero() {
		return validationf("hire date is required")
	}
	if in.HourlyRate != nil && in.HourlyRate.IsNegative() {
		return validationf("hourly rate cannot be negative, got %s", in.HourlyRate)
	}
	switch in.Status {
	case EmployeeActive, EmployeeInactive, EmployeeResigned:
	default:
		return validationf("unknown employee status %q", in.Status)
	}
	return nil
}
