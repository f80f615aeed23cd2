package app

import (
	"context"
	"time"

	"contractor-erp/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// ── Customers ─────────────────────────────────────────────────────────

	CreateCustomer(ctx context.Context, in core.CustomerInput) (*core.Customer, error)
	UpdateCustomer(ctx context.Context, customerID int64, in core.CustomerInput) (*core.Customer, error)
	DeleteCustomer(ctx context.Context, customerID int64) error
	GetCustomer(ctx context.Context, customerID int64) (*core.Customer, error)
	ListCustomers(ctx context.Context, filter core.CustomerFilter) ([]core.Customer, error)

	// ── Projects ──────────────────────────────────────────────────────────

	CreateProject(ctx context.Context, in core.ProjectInput) (*core.Project, error)
	UpdateProject(ctx context.Context, projectID int64, in core.ProjectInput) (*core.Project, error)
	DeleteProject(ctx context.Context, projectID int64) error
	GetProject(ctx context.Context, projectID int64) (*core.Project, error)
	ListProjects(ctx context.Context, filter core.ProjectFilter) ([]core.Project, error)
	ProjectCostSummary(ctx context.Context, projectID int64) (*core.ProjectCostSummary, error)

	// ── Quotations ────────────────────────────────────────────────────────

	CreateQuotation(ctx context.Context, in core.CreateQuotationInput) (*core.Quotation, error)
	UpdateQuotation(ctx context.Context, quotationID int64, in core.CreateQuotationInput) (*core.Quotation, error)
	DeleteQuotation(ctx context.Context, quotationID int64) error
	GetQuotation(ctx context.Context, quotationID int64) (*core.Quotation, error)
	ListQuotations(ctx context.Context, filter core.QuotationFilter) ([]core.Quotation, error)
	SendQuotation(ctx context.Context, quotationID int64) (*core.Quotation, error)
	ApproveQuotation(ctx context.Context, quotationID int64) (*core.Quotation, error)
	RejectQuotation(ctx context.Context, quotationID int64) (*core.Quotation, error)

	// ── Invoices and payments ─────────────────────────────────────────────

	CreateInvoice(ctx context.Context, in core.CreateInvoiceInput) (*core.Invoice, error)
	UpdateInvoice(ctx context.Context, invoiceID int64, in core.CreateInvoiceInput) (*core.Invoice, error)
	DeleteInvoice(ctx context.Context, invoiceID int64) error
	SendInvoice(ctx context.Context, invoiceID int64) (*core.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID int64) (*core.Invoice, error)
	ListInvoices(ctx context.Context, filter core.InvoiceFilter) ([]core.Invoice, error)
	// MarkOverdueInvoices flips past-due sent/partial invoices and returns
	// how many changed.
	MarkOverdueInvoices(ctx context.Context, asOf time.Time) (int64, error)

	// RecordPayment applies a payment and returns it with the updated
	// invoice. The payment is rejected when it exceeds the outstanding
	// balance.
	RecordPayment(ctx context.Context, in core.RecordPaymentInput) (*PaymentResult, error)
	// DeletePayment reverses a payment and returns the updated invoice.
	DeletePayment(ctx context.Context, paymentID int64) (*core.Invoice, error)
	ListPayments(ctx context.Context, invoiceID int64) ([]core.Payment, error)

	// ── Inventory and stock movements ─────────────────────────────────────

	CreateInventoryItem(ctx context.Context, in core.CreateInventoryInput) (*core.Inventory, error)
	UpdateInventoryItem(ctx context.Context, itemID int64, in core.UpdateInventoryInput) (*core.Inventory, error)
	DeleteInventoryItem(ctx context.Context, itemID int64) error
	GetInventoryItem(ctx context.Context, itemID int64) (*core.Inventory, error)
	ListInventoryItems(ctx context.Context, filter core.InventoryFilter) ([]core.Inventory, error)
	LowStockItems(ctx context.Context) ([]core.Inventory, error)

	// RecordStockMovement applies a movement and returns it with the updated
	// item. An out movement exceeding on-hand stock is rejected.
	RecordStockMovement(ctx context.Context, in core.RecordMovementInput) (*MovementResult, error)
	// DeleteStockMovement reverses a movement and returns the updated item.
	DeleteStockMovement(ctx context.Context, movementID int64) (*core.Inventory, error)
	ListStockMovements(ctx context.Context, filter core.MovementFilter) ([]core.StockMovement, error)

	// ── Purchasing ────────────────────────────────────────────────────────

	CreatePurchaseOrder(ctx context.Context, in core.CreatePurchaseOrderInput) (*core.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, orderID int64) (*core.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, filter core.PurchaseOrderFilter) ([]core.PurchaseOrder, error)
	SendPurchaseOrder(ctx context.Context, orderID int64) (*core.PurchaseOrder, error)
	ConfirmPurchaseOrder(ctx context.Context, orderID int64) (*core.PurchaseOrder, error)
	CancelPurchaseOrder(ctx context.Context, orderID int64) (*core.PurchaseOrder, error)
	DeletePurchaseOrder(ctx context.Context, orderID int64) error
	// ReceivePurchaseOrder records delivered quantities; stock-linked lines
	// post in movements through the stock ledger in the same transaction.
	ReceivePurchaseOrder(ctx context.Context, orderID int64, receivedBy int64, lines []core.ReceiveLineInput) (*core.PurchaseOrder, error)

	// ── Employees and attendance ──────────────────────────────────────────

	CreateEmployee(ctx context.Context, in core.EmployeeInput) (*core.Employee, error)
	UpdateEmployee(ctx context.Context, employeeID int64, in core.EmployeeInput) (*core.Employee, error)
	GetEmployee(ctx context.Context, employeeID int64) (*core.Employee, error)
	ListEmployees(ctx context.Context, filter core.EmployeeFilter) ([]core.Employee, error)

	ClockIn(ctx context.Context, employeeID int64, projectID *int64, at time.Time) (*core.Attendance, error)
	ClockOut(ctx context.Context, employeeID int64, at time.Time) (*core.Attendance, error)
	MarkAttendance(ctx context.Context, in core.MarkAttendanceInput) (*core.Attendance, error)
	ListAttendance(ctx context.Context, filter core.AttendanceFilter) ([]core.Attendance, error)
	AttendanceSummary(ctx context.Context, employeeID int64, from, to time.Time) (*core.AttendancePeriodSummary, error)

	// ── Expenses ──────────────────────────────────────────────────────────

	CreateExpense(ctx context.Context, in core.CreateExpenseInput) (*core.Expense, error)
	GetExpense(ctx context.Context, expenseID int64) (*core.Expense, error)
	ListExpenses(ctx context.Context, filter core.ExpenseFilter) ([]core.Expense, error)
	ApproveExpense(ctx context.Context, expenseID, approverID int64) (*core.Expense, error)
	RejectExpense(ctx context.Context, expenseID, approverID int64) (*core.Expense, error)
	ReimburseExpense(ctx context.Context, expenseID int64) (*core.Expense, error)
	DeleteExpense(ctx context.Context, expenseID int64) error

	// ── Reports ───────────────────────────────────────────────────────────

	FinancialSummary(ctx context.Context, from, to time.Time) (*core.FinancialSummary, error)
	InventoryValuation(ctx context.Context) (*core.InventoryValuation, error)
	ProjectProfitability(ctx context.Context) ([]core.ProjectProfitability, error)
	MovementReport(ctx context.Context, from, to time.Time) (*core.MovementSummary, error)

	// ── AI assistant ──────────────────────────────────────────────────────

	// InterpretAction sends a natural language instruction to the AI agent
	// and returns either a typed ledger action proposal or a clarification
	// request. Nothing is written.
	InterpretAction(ctx context.Context, text string) (*AIActionResult, error)
	// ExecuteProposal runs a previously returned proposal after explicit
	// user confirmation.
	ExecuteProposal(ctx context.Context, proposal core.ActionProposal, actorID int64) (*ExecuteResult, error)
}
