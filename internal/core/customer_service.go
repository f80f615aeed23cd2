package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerInput is the validated input for creating or updating a customer.
type CustomerInput struct {
	Name          string
	CompanyName   string
	Email         string
	Phone         string
	Address       string
	City          string
	TaxNumber     string
	ContactPerson string
	Notes         string
	Status        CustomerStatus
}

// CustomerFilter narrows ListCustomers.
type CustomerFilter struct {
	Status *CustomerStatus
	Search string // matches code, name, company, or email
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error)
	UpdateCustomer(ctx context.Context, customerID int64, in CustomerInput) (*Customer, error)
	// DeleteCustomer refuses while invoices, quotations, or projects still
	// reference the customer.
	DeleteCustomer(ctx context.Context, customerID int64) error
	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)
	ListCustomers(ctx context.Context, filter CustomerFilter) ([]Customer, error)
}

type customerService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
}

func NewCustomerService(pool *pgxpool.Pool, sequences SequenceService) CustomerService {
	return &customerService{pool: pool, sequences: sequences}
}

func (s *customerService) CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error) {
	if err := validateCustomerInput(in); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	code, err := s.sequences.NextReferenceTx(ctx, tx, DocTypeCustomer, AllTime)
	if err != nil {
		return nil, err
	}

	var customerID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO customers (code, name, company_name, email, phone, address, city, tax_number, contact_person, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, code, in.Name, in.CompanyName, in.Email, in.Phone, in.Address, in.City,
		in.TaxNumber, in.ContactPerson, in.Notes, string(in.Status)).Scan(&customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert customer: %w", classifyPgError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit customer: %w", err)
	}
	return s.GetCustomer(ctx, customerID)
}

func (s *customerService) UpdateCustomer(ctx context.Context, customerID int64, in CustomerInput) (*Customer, error) {
	if err := validateCustomerInput(in); err != nil {
		return nil, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE customers
		SET name = $1, company_name = $2, email = $3, phone = $4, address = $5, city = $6,
		    tax_number = $7, contact_person = $8, notes = $9, status = $10, updated_at = NOW()
		WHERE id = $11
	`, in.Name, in.CompanyName, in.Email, in.Phone, in.Address, in.City,
		in.TaxNumber, in.ContactPerson, in.Notes, string(in.Status), customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update customer %d: %w", customerID, classifyPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return nil, notFoundf("customer %d", customerID)
	}
	return s.GetCustomer(ctx, customerID)
}

func (s *customerService) DeleteCustomer(ctx context.Context, customerID int64) error {
	var hasRecords bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM invoices WHERE customer_id = $1)
		    OR EXISTS (SELECT 1 FROM quotations WHERE customer_id = $1)
		    OR EXISTS (SELECT 1 FROM projects WHERE customer_id = $1)
	`, customerID).Scan(&hasRecords)
	if err != nil {
		return fmt.Errorf("failed to check customer %d references: %w", customerID, err)
	}
	if hasRecords {
		return conflictf("customer %d has invoices, quotations, or projects and cannot be deleted", customerID)
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM customers WHERE id = $1", customerID)
	if err != nil {
		return fmt.Errorf("failed to delete customer %d: %w", customerID, classifyPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("customer %d", customerID)
	}
	return nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	var c Customer
	err := s.pool.QueryRow(ctx, customerSelect+" WHERE id = $1", customerID).Scan(customerFields(&c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("customer %d", customerID)
		}
		return nil, fmt.Errorf("failed to fetch customer %d: %w", customerID, err)
	}
	return &c, nil
}

func (s *customerService) ListCustomers(ctx context.Context, filter CustomerFilter) ([]Customer, error) {
	query := customerSelect + " WHERE 1=1"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != nil {
		query += " AND status = " + arg(string(*filter.Status))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		query += fmt.Sprintf(" AND (code ILIKE %s OR name ILIKE %s OR company_name ILIKE %s OR email ILIKE %s)", p, p, p, p)
	}
	query += " ORDER BY code"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(customerFields(&c)...); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}
	return customers, nil
}

const customerSelect = `
	SELECT id, code, name, COALESCE(company_name, ''), COALESCE(email, ''), COALESCE(phone, ''),
	       COALESCE(address, ''), COALESCE(city, ''), COALESCE(tax_number, ''),
	       COALESCE(contact_person, ''), COALESCE(notes, ''), status, created_at, updated_at
	FROM customers`

func customerFields(c *Customer) []any {
	return []any{
		&c.ID, &c.Code, &c.Name, &c.CompanyName, &c.Email, &c.Phone,
		&c.Address, &c.City, &c.TaxNumber, &c.ContactPerson, &c.Notes,
		&c.Status, &c.CreatedAt, &c.UpdatedAt,
	}
}

func validateCustomerInput(in CustomerInput) error {
	if in.Name == "" {
		return validationf("customer name is required")
	}
	switch in.Status {
	case CustomerActive, CustomerInactive:
	default:
		return validationf("unknown customer status %q", in.Status)
	}
	return nil
}
