package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// FinancialSummary is the receivables position over a period.
type FinancialSummary struct {
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	TotalInvoiced    decimal.Decimal `json:"total_invoiced"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	InvoiceCount     int64           `json:"invoice_count"`
	PaidCount        int64           `json:"paid_count"`
	OverdueCount     int64           `json:"overdue_count"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
}

// InventoryValuation is the stock position at query time.
type InventoryValuation struct {
	TotalValue    decimal.Decimal      `json:"total_value"`
	ItemCount     int64                `json:"item_count"`
	LowStockCount int64                `json:"low_stock_count"`
	OutCount      int64                `json:"out_of_stock_count"`
	ByCategory    []CategoryValuation  `json:"by_category"`
}

type CategoryValuation struct {
	Category  InventoryCategory `json:"category"`
	ItemCount int64             `json:"item_count"`
	Value     decimal.Decimal   `json:"value"`
}

// ProjectProfitability compares a project's billing against its costs.
type ProjectProfitability struct {
	ProjectID     int64           `json:"project_id"`
	ProjectCode   string          `json:"project_code"`
	ProjectName   string          `json:"project_name"`
	TotalInvoiced decimal.Decimal `json:"total_invoiced"`
	ActualCost    decimal.Decimal `json:"actual_cost"`
	Margin        decimal.Decimal `json:"margin"`
}

// ReportingService produces read-only aggregates over both ledgers. Reports
// never mutate state.
type ReportingService interface {
	FinancialSummary(ctx context.Context, from, to time.Time) (*FinancialSummary, error)
	InventoryValuation(ctx context.Context) (*InventoryValuation, error)
	ProjectProfitability(ctx context.Context) ([]ProjectProfitability, error)
}

type reportingService struct {
	pool *pgxpool.Pool
}

func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

func (s *reportingService) FinancialSummary(ctx context.Context, from, to time.Time) (*FinancialSummary, error) {
	summary := &FinancialSummary{From: from, To: to}

	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(paid_amount), 0),
		       COALESCE(SUM(total_amount - paid_amount), 0),
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'paid'),
		       COUNT(*) FILTER (WHERE status = 'overdue')
		FROM invoices
		WHERE invoice_date BETWEEN $1 AND $2
	`, from, to).Scan(
		&summary.TotalInvoiced, &summary.TotalCollected, &summary.TotalOutstanding,
		&summary.InvoiceCount, &summary.PaidCount, &summary.OverdueCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate invoices: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE status IN ('approved', 'reimbursed') AND expense_date BETWEEN $1 AND $2
	`, from, to).Scan(&summary.TotalExpenses)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate expenses: %w", err)
	}

	return summary, nil
}

func (s *reportingService) InventoryValuation(ctx context.Context) (*InventoryValuation, error) {
	valuation := &InventoryValuation{}

	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity * unit_price), 0),
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'low_stock'),
		       COUNT(*) FILTER (WHERE status = 'out_of_stock')
		FROM inventories
	`).Scan(&valuation.TotalValue, &valuation.ItemCount, &valuation.LowStockCount, &valuation.OutCount)
	if err != nil {
		return nil, fmt.Errorf("failed to value inventory: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(quantity * unit_price), 0)
		FROM inventories
		GROUP BY category
		ORDER BY category
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to value inventory by category: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c CategoryValuation
		if err := rows.Scan(&c.Category, &c.ItemCount, &c.Value); err != nil {
			return nil, fmt.Errorf("failed to scan category valuation: %w", err)
		}
		valuation.ByCategory = append(valuation.ByCategory, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category valuations: %w", err)
	}

	return valuation, nil
}

func (s *reportingService) ProjectProfitability(ctx context.Context) ([]ProjectProfitability, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.project_code, p.project_name,
		       COALESCE((SELECT SUM(total_amount) FROM invoices WHERE project_id = p.id), 0),
		       p.actual_cost
		FROM projects p
		WHERE p.status NOT IN ('draft', 'cancelled')
		ORDER BY p.project_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query project profitability: %w", err)
	}
	defer rows.Close()

	var results []ProjectProfitability
	for rows.Next() {
		var p ProjectProfitability
		if err := rows.Scan(&p.ProjectID, &p.ProjectCode, &p.ProjectName, &p.TotalInvoiced, &p.ActualCost); err != nil {
			return nil, fmt.Errorf("failed to scan project profitability: %w", err)
		}
		p.Margin = p.TotalInvoiced.Sub(p.ActualCost)
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project profitability: %w", err)
	}
	return results, nil
}
