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

// ProjectInput is the validated input for creating or updating a project.
// actual_cost is absent: it accumulates from stock issues and expense
// approvals only.
type ProjectInput struct {
	CustomerID         int64
	ProjectName        string
	ProjectType        ProjectType
	Description        string
	Location           string
	StartDate          time.Time
	EndDate            time.Time
	EstimatedBudget    decimal.Decimal
	Status             ProjectStatus
	ProgressPercentage int
	ProjectManagerID   *int64
	Notes              string
}

// ProjectFilter narrows ListProjects.
type ProjectFilter struct {
	CustomerID *int64
	Status     *ProjectStatus
	Type       *ProjectType
	Search     string
}

// ProjectCostSummary is the cost position of one project.
type ProjectCostSummary struct {
	Project       Project         `json:"project"`
	MaterialCost  decimal.Decimal `json:"material_cost"`
	ExpenseCost   decimal.Decimal `json:"expense_cost"`
	BudgetRemains decimal.Decimal `json:"budget_remains"`
}

type ProjectService interface {
	CreateProject(ctx context.Context, in ProjectInput) (*Project, error)
	UpdateProject(ctx context.Context, projectID int64, in ProjectInput) (*Project, error)
	DeleteProject(ctx context.Context, projectID int64) error
	GetProject(ctx context.Context, projectID int64) (*Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error)
	// CostSummary breaks actual_cost into its material and expense parts and
	// reports remaining budget.
	CostSummary(ctx context.Context, projectID int64) (*ProjectCostSummary, error)
}

type projectService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
}

func NewProjectService(pool *pgxpool.Pool, sequences SequenceService) ProjectService {
	return &projectService{pool: pool, sequences: sequences}
}

func (s *projectService) CreateProject(ctx context.Context, in ProjectInput) (*Project, error) {
	if err := validateProjectInput(in); err != nil {
		return nil, err
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

	code, err := s.sequences.NextReferenceTx(ctx, tx, DocTypeProject, YearPeriod(in.StartDate))
	if err != nil {
		return nil, err
	}

	var projectID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO projects (customer_id, project_code, project_name, project_type, description, location,
		                      start_date, end_date, estimated_budget, status, progress_percentage,
		                      project_manager_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, in.CustomerID, code, in.ProjectName, string(in.ProjectType), in.Description, in.Location,
		in.StartDate, in.EndDate, in.EstimatedBudget, string(in.Status), in.ProgressPercentage,
		in.ProjectManagerID, in.Notes).Scan(&projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", classifyPgError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit project: %w", err)
	}
	return s.GetProject(ctx, projectID)
}

func (s *projectService) UpdateProject(ctx context.Context, projectID int64, in ProjectInput) (*Project, error) {
	if err := validateProjectInput(in); err != nil {
		return nil, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE projects
		SET project_name = $1, project_type = $2, description = $3, location = $4,
		    start_date = $5, end_date = $6, estimated_budget = $7, status = $8,
		    progress_percentage = $9, project_manager_id = $10, notes = $11, updated_at = NOW()
		WHERE id = $12
	`, in.ProjectName, string(in.ProjectType), in.Description, in.Location,
		in.StartDate, in.EndDate, in.EstimatedBudget, string(in.Status),
		in.ProgressPercentage, in.ProjectManagerID, in.Notes, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to update project %d: %w", projectID, classifyPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return nil, notFoundf("project %d", projectID)
	}
	return s.GetProject(ctx, projectID)
}

func (s *projectService) DeleteProject(ctx context.Context, projectID int64) error {
	var hasRecords bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM invoices WHERE project_id = $1)
		    OR EXISTS (SELECT 1 FROM stock_movements WHERE project_id = $1)
		    OR EXISTS (SELECT 1 FROM expenses WHERE project_id = $1)
	`, projectID).Scan(&hasRecords)
	if err != nil {
		return fmt.Errorf("failed to check project %d references: %w", projectID, err)
	}
	if hasRecords {
		return conflictf("project %d has ledger records and cannot be deleted", projectID)
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM projects WHERE id = $1", projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project %d: %w", projectID, classifyPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("project %d", projectID)
	}
	return nil
}

func (s *projectService) GetProject(ctx context.Context, projectID int64) (*Project, error) {
	var p Project
	err := s.pool.QueryRow(ctx, projectSelect+" WHERE id = $1", projectID).Scan(projectFields(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("project %d", projectID)
		}
		return nil, fmt.Errorf("failed to fetch project %d: %w", projectID, err)
	}
	return &p, nil
}

func (s *projectService) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	query := projectSelect + " WHERE 1=1"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.CustomerID != nil {
		query += " AND customer_id = " + arg(*filter.CustomerID)
	}
	if filter.Status != nil {
		query += " AND status = " + arg(string(*filter.Status))
	}
	if filter.Type != nil {
		query += " AND project_type = " + arg(string(*filter.Type))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		query += fmt.Sprintf(" AND (project_code ILIKE %s OR project_name ILIKE %s)", p, p)
	}
	query += " ORDER BY project_code"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(projectFields(&p)...); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func (s *projectService) CostSummary(ctx context.Context, projectID int64) (*ProjectCostSummary, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	summary := &ProjectCostSummary{Project: *project}
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(m.quantity * i.unit_price), 0)
		FROM stock_movements m
		JOIN inventories i ON i.id = m.inventory_id
		WHERE m.project_id = $1 AND m.movement_type = 'out'
	`, projectID).Scan(&summary.MaterialCost)
	if err != nil {
		return nil, fmt.Errorf("failed to sum material cost for project %d: %w", projectID, err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE project_id = $1 AND status IN ('approved', 'reimbursed')
	`, projectID).Scan(&summary.ExpenseCost)
	if err != nil {
		return nil, fmt.Errorf("failed to sum expenses for project %d: %w", projectID, err)
	}

	summary.BudgetRemains = project.EstimatedBudget.Sub(project.ActualCost)
	return summary, nil
}

const projectSelect = `
	SELECT id, customer_id, project_code, project_name, project_type, COALESCE(description, ''),
	       COALESCE(location, ''), start_date, end_date, estimated_budget, actual_cost, status,
	       progress_percentage, project_manager_id, COALESCE(notes, ''), created_at, updated_at
	FROM projects`

func projectFields(p *Project) []any {
	return []any{
		&p.ID, &p.CustomerID, &p.ProjectCode, &p.ProjectName, &p.ProjectType, &p.Description,
		&p.Location, &p.StartDate, &p.EndDate, &p.EstimatedBudget, &p.ActualCost, &p.Status,
		&p.ProgressPercentage, &p.ProjectManagerID, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	}
}

func validateProjectInput(in ProjectInput) error {
	if in.ProjectName == "" {
		return validationf("project name is required")
	}
	switch in.ProjectType {
	case ProjectElectrical, ProjectMechanical, ProjectBoth:
	default:
		return validationf("unknown project type %q", in.ProjectType)
	}
	switch in.Status {
	case ProjectDraft, ProjectPlanning, ProjectInProgress, ProjectOnHold, ProjectCompleted, ProjectCancelled:
	default:
		return validationf("unknown project status %q", in.Status)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return validationf("start and end dates are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return validationf("end date %s is before start date %s",
			in.EndDate.Format("2006-01-02"), in.StartDate.Format("2006-01-02"))
	}
	if in.EstimatedBudget.IsNegative() {
		return validationf("estimated budget cannot be negative, got %s", in.EstimatedBudget)
	}
	if in.ProgressPercentage < 0 || in.ProgressPercentage > 100 {
		return validationf("progress percentage must be 0..100, got %d", in.ProgressPercentage)
	}
	return nil
}
