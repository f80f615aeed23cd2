package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contractor-erp/internal/ai"
	"contractor-erp/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type appService struct {
	pool       *pgxpool.Pool
	customers  core.CustomerService
	projects   core.ProjectService
	quotations core.QuotationService
	invoices   core.InvoiceService
	payments   core.PaymentService
	inventory  core.InventoryService
	purchasing core.PurchaseOrderService
	employees  core.EmployeeService
	attendance core.AttendanceService
	expenses   core.ExpenseService
	reports    core.ReportingService
	agent      *ai.Agent
}

// NewAppService constructs an appService that satisfies ApplicationService.
// agent may be nil; the AI operations then return an error.
func NewAppService(
	pool *pgxpool.Pool,
	customers core.CustomerService,
	projects core.ProjectService,
	quotations core.QuotationService,
	invoices core.InvoiceService,
	payments core.PaymentService,
	inventory core.InventoryService,
	purchasing core.PurchaseOrderService,
	employees core.EmployeeService,
	attendance core.AttendanceService,
	expenses core.ExpenseService,
	reports core.ReportingService,
	agent *ai.Agent,
) ApplicationService {
	return &appService{
		pool:       pool,
		customers:  customers,
		projects:   projects,
		quotations: quotations,
		invoices:   invoices,
		payments:   payments,
		inventory:  inventory,
		purchasing: purchasing,
		employees:  employees,
		attendance: attendance,
		expenses:   expenses,
		reports:    reports,
		agent:      agent,
	}
}

// ── Customers ─────────────────────────────────────────────────────────────────

func (s *appService) CreateCustomer(ctx context.Context, in core.CustomerInput) (*core.Customer, error) {
	return s.customers.CreateCustomer(ctx, in)
}

func (s *appService) UpdateCustomer(ctx context.Context, customerID int64, in core.CustomerInput) (*core.Customer, error) {
	return s.customers.UpdateCustomer(ctx, customerID, in)
}

func (s *appService) DeleteCustomer(ctx context.Context, customerID int64) error {
	return s.customers.DeleteCustomer(ctx, customerID)
}

func (s *appService) GetCustomer(ctx context.Context, customerID int64) (*core.Customer, error) {
	return s.customers.GetCustomer(ctx, customerID)
}

func (s *appService) ListCustomers(ctx context.Context, filter core.CustomerFilter) ([]core.Customer, error) {
	return s.customers.ListCustomers(ctx, filter)
}

// ── Projects ──────────────────────────────────────────────────────────────────

func (s *appService) CreateProject(ctx context.Context, in core.ProjectInput) (*core.Project, error) {
	return s.projects.CreateProject(ctx, in)
}

func (s *appService) UpdateProject(ctx context.Context, projectID int64, in core.ProjectInput) (*core.Project, error) {
	return s.projects.UpdateProject(ctx, projectID, in)
}

func (s *appService) DeleteProject(ctx context.Context, projectID int64) error {
	return s.projects.DeleteProject(ctx, projectID)
}

func (s *appService) GetProject(ctx context.Context, projectID int64) (*core.Project, error) {
	return s.projects.GetProject(ctx, projectID)
}

func (s *appService) ListProjects(ctx context.Context, filter core.ProjectFilter) ([]core.Project, error) {
	return s.projects.ListProjects(ctx, filter)
}

func (s *appService) ProjectCostSummary(ctx context.Context, projectID int64) (*core.ProjectCostSummary, error) {
	return s.projects.CostSummary(ctx, projectID)
}

// ── Quotations ────────────────────────────────────────────────────────────────

func (s *appService) CreateQuotation(ctx context.Context, in core.CreateQuotationInput) (*core.Quotation, error) {
	return s.quotations.CreateQuotation(ctx, in)
}

func (s *appService) UpdateQuotation(ctx context.Context, quotationID int64, in core.CreateQuotationInput) (*core.Quotation, error) {
	return s.quotations.UpdateQuotation(ctx, quotationID, in)
}

func (s *appService) DeleteQuotation(ctx context.Context, quotationID int64) error {
	return s.quotations.DeleteQuotation(ctx, quotationID)
}

func (s *appService) GetQuotation(ctx context.Context, quotationID int64) (*core.Quotation, error) {
	return s.quotations.GetQuotation(ctx, quotationID)
}

func (s *appService) ListQuotations(ctx context.Context, filter core.QuotationFilter) ([]core.Quotation, error) {
	return s.quotations.ListQuotations(ctx, filter)
}

func (s *appService) SendQuotation(ctx context.Context, quotationID int64) (*core.Quotation, error) {
	return s.quotations.SendQuotation(ctx, quotationID)
}

func (s *appService) ApproveQuotation(ctx context.Context, quotationID int64) (*core.Quotation, error) {
	return s.quotations.ApproveQuotation(ctx, quotationID)
}

func (s *appService) RejectQuotation(ctx context.Context, quotationID int64) (*core.Quotation, error) {
	return s.quotations.RejectQuotation(ctx, quotationID)
}

// ── Invoices and payments ─────────────────────────────────────────────────────

func (s *appService) CreateInvoice(ctx context.Context, in core.CreateInvoiceInput) (*core.Invoice, error) {
	return s.invoices.CreateInvoice(ctx, in)
}

func (s *appService) UpdateInvoice(ctx context.Context, invoiceID int64, in core.CreateInvoiceInput) (*core.Invoice, error) {
	return s.invoices.UpdateInvoice(ctx, invoiceID, in)
}

func (s *appService) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	return s.invoices.DeleteInvoice(ctx, invoiceID)
}

func (s *appService) SendInvoice(ctx context.Context, invoiceID int64) (*core.Invoice, error) {
	return s.invoices.SendInvoice(ctx, invoiceID)
}

func (s *appService) GetInvoice(ctx context.Context, invoiceID int64) (*core.Invoice, error) {
	return s.invoices.GetInvoice(ctx, invoiceID)
}

func (s *appService) ListInvoices(ctx context.Context, filter core.InvoiceFilter) ([]core.Invoice, error) {
	return s.invoices.ListInvoices(ctx, filter)
}

func (s *appService) MarkOverdueInvoices(ctx context.Context, asOf time.Time) (int64, error) {
	return s.invoices.MarkOverdue(ctx, asOf)
}

func (s *appService) RecordPayment(ctx context.Context, in core.RecordPaymentInput) (*PaymentResult, error) {
	payment, invoice, err := s.payments.RecordPayment(ctx, in)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Payment: payment, Invoice: invoice}, nil
}

func (s *appService) DeletePayment(ctx context.Context, paymentID int64) (*core.Invoice, error) {
	return s.payments.DeletePayment(ctx, paymentID)
}

func (s *appService) ListPayments(ctx context.Context, invoiceID int64) ([]core.Payment, error) {
	return s.payments.ListPayments(ctx, invoiceID)
}

// ── Inventory and stock movements ─────────────────────────────────────────────

func (s *appService) CreateInventoryItem(ctx context.Context, in core.CreateInventoryInput) (*core.Inventory, error) {
	return s.inventory.CreateItem(ctx, in)
}

func (s *appService) UpdateInventoryItem(ctx context.Context, itemID int64, in core.UpdateInventoryInput) (*core.Inventory, error) {
	return s.inventory.UpdateItem(ctx, itemID, in)
}

func (s *appService) DeleteInventoryItem(ctx context.Context, itemID int64) error {
	return s.inventory.DeleteItem(ctx, itemID)
}

func (s *appService) GetInventoryItem(ctx context.Context, itemID int64) (*core.Inventory, error) {
	return s.inventory.GetItem(ctx, itemID)
}

func (s *appService) ListInventoryItems(ctx context.Context, filter core.InventoryFilter) ([]core.Inventory, error) {
	return s.inventory.ListItems(ctx, filter)
}

func (s *appService) LowStockItems(ctx context.Context) ([]core.Inventory, error) {
	return s.inventory.LowStockItems(ctx)
}

func (s *appService) RecordStockMovement(ctx context.Context, in core.RecordMovementInput) (*MovementResult, error) {
	movement, item, err := s.inventory.RecordMovement(ctx, in)
	if err != nil {
		return nil, err
	}
	return &MovementResult{Movement: movement, Item: item}, nil
}

func (s *appService) DeleteStockMovement(ctx context.Context, movementID int64) (*core.Inventory, error) {
	return s.inventory.DeleteMovement(ctx, movementID)
}

func (s *appService) ListStockMovements(ctx context.Context, filter core.MovementFilter) ([]core.StockMovement, error) {
	return s.inventory.ListMovements(ctx, filter)
}

// ── Purchasing ────────────────────────────────────────────────────────────────

func (s *appService) CreatePurchaseOrder(ctx context.Context, in core.CreatePurchaseOrderInput) (*core.PurchaseOrder, error) {
	return s.purchasing.CreatePurchaseOrder(ctx, in)
}

func (s *appService) GetPurchaseOrder(ctx context.Context, orderID int64) (*core.PurchaseOrder, error) {
	return s.purchasing.GetPurchaseOrder(ctx, orderID)
}

func (s *appService) ListPurchaseOrders(ctx context.Context, filter core.PurchaseOrderFilter) ([]core.PurchaseOrder, error) {
	return s.purchasing.ListPurchaseOrders(ctx, filter)
}

func (s *appService) SendPurchaseOrder(ctx context.Context, orderID int64) (*core.PurchaseOrder, error) {
	return s.purchasing.SendPurchaseOrder(ctx, orderID)
}

func (s *appService) ConfirmPurchaseOrder(ctx context.Context, orderID int64) (*core.PurchaseOrder, error) {
	return s.purchasing.ConfirmPurchaseOrder(ctx, orderID)
}

func (s *appService) CancelPurchaseOrder(ctx context.Context, orderID int64) (*core.PurchaseOrder, error) {
	return s.purchasing.CancelPurchaseOrder(ctx, orderID)
}

func (s *appService) DeletePurchaseOrder(ctx context.Context, orderID int64) error {
	return s.purchasing.DeletePurchaseOrder(ctx, orderID)
}

func (s *appService) ReceivePurchaseOrder(ctx context.Context, orderID int64, receivedBy int64, lines []core.ReceiveLineInput) (*core.PurchaseOrder, error) {
	return s.purchasing.ReceiveItems(ctx, orderID, receivedBy, lines)
}

// ── Employees and attendance ──────────────────────────────────────────────────

func (s *appService) CreateEmployee(ctx context.Context, in core.EmployeeInput) (*core.Employee, error) {
	return s.employees.CreateEmployee(ctx, in)
}

func (s *appService) UpdateEmployee(ctx context.Context, employeeID int64, in core.EmployeeInput) (*core.Employee, error) {
	return s.employees.UpdateEmployee(ctx, employeeID, in)
}

func (s *appService) GetEmployee(ctx context.Context, employeeID int64) (*core.Employee, error) {
	return s.employees.GetEmployee(ctx, employeeID)
}

func (s *appService) ListEmployees(ctx context.Context, filter core.EmployeeFilter) ([]core.Employee, error) {
	return s.employees.ListEmployees(ctx, filter)
}

func (s *appService) ClockIn(ctx context.Context, employeeID int64, projectID *int64, at time.Time) (*core.Attendance, error) {
	return s.attendance.ClockIn(ctx, employeeID, projectID, at)
}

func (s *appService) ClockOut(ctx context.Context, employeeID int64, at time.Time) (*core.Attendance, error) {
	return s.attendance.ClockOut(ctx, employeeID, at)
}

func (s *appService) MarkAttendance(ctx context.Context, in core.MarkAttendanceInput) (*core.Attendance, error) {
	return s.attendance.MarkDay(ctx, in)
}

func (s *appService) ListAttendance(ctx context.Context, filter core.AttendanceFilter) ([]core.Attendance, error) {
	return s.attendance.ListAttendance(ctx, filter)
}

func (s *appService) AttendanceSummary(ctx context.Context, employeeID int64, from, to time.Time) (*core.AttendancePeriodSummary, error) {
	return s.attendance.PeriodSummary(ctx, employeeID, from, to)
}

// ── Expenses ──────────────────────────────────────────────────────────────────

func (s *appService) CreateExpense(ctx context.Context, in core.CreateExpenseInput) (*core.Expense, error) {
	return s.expenses.CreateExpense(ctx, in)
}

func (s *appService) GetExpense(ctx context.Context, expenseID int64) (*core.Expense, error) {
	return s.expenses.GetExpense(ctx, expenseID)
}

func (s *appService) ListExpenses(ctx context.Context, filter core.ExpenseFilter) ([]core.Expense, error) {
	return s.expenses.ListExpenses(ctx, filter)
}

func (s *appService) ApproveExpense(ctx context.Context, expenseID, approverID int64) (*core.Expense, error) {
	return s.expenses.ApproveExpense(ctx, expenseID, approverID)
}

func (s *appService) RejectExpense(ctx context.Context, expenseID, approverID int64) (*core.Expense, error) {
	return s.expenses.RejectExpense(ctx, expenseID, approverID)
}

func (s *appService) ReimburseExpense(ctx context.Context, expenseID int64) (*core.Expense, error) {
	return s.expenses.ReimburseExpense(ctx, expenseID)
}

func (s *appService) DeleteExpense(ctx context.Context, expenseID int64) error {
	return s.expenses.DeleteExpense(ctx, expenseID)
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (s *appService) FinancialSummary(ctx context.Context, from, to time.Time) (*core.FinancialSummary, error) {
	return s.reports.FinancialSummary(ctx, from, to)
}

func (s *appService) InventoryValuation(ctx context.Context) (*core.InventoryValuation, error) {
	return s.reports.InventoryValuation(ctx)
}

func (s *appService) ProjectProfitability(ctx context.Context) ([]core.ProjectProfitability, error) {
	return s.reports.ProjectProfitability(ctx)
}

func (s *appService) MovementReport(ctx context.Context, from, to time.Time) (*core.MovementSummary, error) {
	return s.inventory.MovementReport(ctx, from, to)
}

// ── AI assistant ──────────────────────────────────────────────────────────────

func (s *appService) InterpretAction(ctx context.Context, text string) (*AIActionResult, error) {
	if s.agent == nil {
		return nil, fmt.Errorf("AI assistant is not configured, set OPENAI_API_KEY")
	}

	openInvoices, err := s.fetchOpenInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open invoices: %w", err)
	}
	stockItems, err := s.fetchStockItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stock items: %w", err)
	}

	proposal, err := s.agent.InterpretAction(ctx, text, openInvoices, stockItems)
	if err != nil {
		return nil, err
	}

	return &AIActionResult{
		Proposal:        proposal,
		IsClarification: proposal.Action == core.ActionClarification,
		Summary:         proposal.Describe(),
	}, nil
}

func (s *appService) ExecuteProposal(ctx context.Context, proposal core.ActionProposal, actorID int64) (*ExecuteResult, error) {
	proposal.Normalize()
	if err := proposal.Validate(); err != nil {
		return nil, err
	}

	switch proposal.Action {
	case core.ActionRecordPayment:
		invoiceID, err := s.resolveInvoice(ctx, proposal.Payment.InvoiceNumber)
		if err != nil {
			return nil, err
		}
		amount, _ := decimal.NewFromString(proposal.Payment.Amount)
		date, _ := time.Parse("2006-01-02", proposal.Payment.PaymentDate)
		result, err := s.RecordPayment(ctx, core.RecordPaymentInput{
			InvoiceID:     invoiceID,
			PaymentDate:   date,
			Amount:        amount,
			PaymentMethod: proposal.Payment.PaymentMethod,
			Notes:         proposal.Payment.Notes,
		})
		if err != nil {
			return nil, err
		}
		return &ExecuteResult{Payment: result}, nil

	case core.ActionRecordMovement:
		itemID, err := s.resolveItem(ctx, proposal.Movement.ItemCode)
		if err != nil {
			return nil, err
		}
		var projectID *int64
		if proposal.Movement.ProjectCode != "" {
			id, err := s.resolveProject(ctx, proposal.Movement.ProjectCode)
			if err != nil {
				return nil, err
			}
			projectID = &id
		}
		quantity, _ := decimal.NewFromString(proposal.Movement.Quantity)
		result, err := s.RecordStockMovement(ctx, core.RecordMovementInput{
			InventoryID:  itemID,
			ProjectID:    projectID,
			MovementType: core.MovementType(proposal.Movement.MovementType),
			Quantity:     quantity,
			Notes:        proposal.Movement.Notes,
			CreatedBy:    actorID,
		})
		if err != nil {
			return nil, err
		}
		return &ExecuteResult{Movement: result}, nil

	default:
		return nil, fmt.Errorf("proposal action %q is not executable", proposal.Action)
	}
}

// ── private helpers ───────────────────────────────────────────────────────────

func (s *appService) resolveInvoice(ctx context.Context, invoiceNumber string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, "SELECT id FROM invoices WHERE invoice_number = $1", invoiceNumber).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("invoice %s not found: %w", invoiceNumber, err)
	}
	return id, nil
}

func (s *appService) resolveItem(ctx context.Context, itemCode string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, "SELECT id FROM inventories WHERE item_code = $1", itemCode).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inventory item %s not found: %w", itemCode, err)
	}
	return id, nil
}

func (s *appService) resolveProject(ctx context.Context, projectCode string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, "SELECT id FROM projects WHERE project_code = $1", projectCode).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("project %s not found: %w", projectCode, err)
	}
	return id, nil
}

// fetchOpenInvoices returns unpaid invoices as a formatted string for the AI
// prompt.
func (s *appService) fetchOpenInvoices(ctx context.Context) (string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.invoice_number, c.name, i.total_amount - i.paid_amount, i.status
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.status IN ('sent', 'partial', 'overdue')
		ORDER BY i.invoice_number
	`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var number, customer, status string
		var outstanding decimal.Decimal
		if err := rows.Scan(&number, &customer, &outstanding, &status); err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): outstanding %s, %s", number, customer, outstanding, status))
	}
	return strings.Join(lines, "\n"), nil
}

// fetchStockItems returns the stock list as a formatted string for the AI
// prompt.
func (s *appService) fetchStockItems(ctx context.Context) (string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT item_code, item_name, quantity, unit, status
		FROM inventories
		ORDER BY item_code
	`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var code, name, unit, status string
		var quantity decimal.Decimal
		if err := rows.Scan(&code, &name, &quantity, &unit, &status); err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("- %s %s: %s %s on hand (%s)", code, name, quantity, unit, status))
	}
	return strings.Join(lines, "\n"), nil
}
