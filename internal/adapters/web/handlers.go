package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"contractor-erp/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Customers ─────────────────────────────────────────────────────
		r.Get("/api/customers", h.listCustomers)
		r.Post("/api/customers", h.createCustomer)
		r.Get("/api/customers/{id}", h.getCustomer)
		r.Put("/api/customers/{id}", h.updateCustomer)
		r.Delete("/api/customers/{id}", h.deleteCustomer)

		// ── Projects ──────────────────────────────────────────────────────
		r.Get("/api/projects", h.listProjects)
		r.Post("/api/projects", h.createProject)
		r.Get("/api/projects/{id}", h.getProject)
		r.Put("/api/projects/{id}", h.updateProject)
		r.Delete("/api/projects/{id}", h.deleteProject)
		r.Get("/api/projects/{id}/costs", h.projectCosts)

		// ── Quotations ────────────────────────────────────────────────────
		r.Get("/api/quotations", h.listQuotations)
		r.Post("/api/quotations", h.createQuotation)
		r.Get("/api/quotations/{id}", h.getQuotation)
		r.Put("/api/quotations/{id}", h.updateQuotation)
		r.Delete("/api/quotations/{id}", h.deleteQuotation)
		r.Post("/api/quotations/{id}/send", h.sendQuotation)
		r.Post("/api/quotations/{id}/approve", h.approveQuotation)
		r.Post("/api/quotations/{id}/reject", h.rejectQuotation)

		// ── Invoices and payments ─────────────────────────────────────────
		r.Get("/api/invoices", h.listInvoices)
		r.Post("/api/invoices", h.createInvoice)
		r.Get("/api/invoices/{id}", h.getInvoice)
		r.Put("/api/invoices/{id}", h.updateInvoice)
		r.Delete("/api/invoices/{id}", h.deleteInvoice)
		r.Post("/api/invoices/{id}/send", h.sendInvoice)
		r.Post("/api/invoices/mark-overdue", h.markOverdue)
		r.Get("/api/invoices/{id}/payments", h.listPayments)
		r.Post("/api/invoices/{id}/payments", h.recordPayment)
		r.Delete("/api/payments/{id}", h.deletePayment)

		// ── Inventory and stock movements ─────────────────────────────────
		r.Get("/api/inventory", h.listInventory)
		r.Post("/api/inventory", h.createInventoryItem)
		r.Get("/api/inventory/low-stock", h.lowStock)
		r.Get("/api/inventory/{id}", h.getInventoryItem)
		r.Put("/api/inventory/{id}", h.updateInventoryItem)
		r.Delete("/api/inventory/{id}", h.deleteInventoryItem)
		r.Get("/api/stock-movements", h.listMovements)
		r.Post("/api/stock-movements", h.recordMovement)
		r.Delete("/api/stock-movements/{id}", h.deleteMovement)

		// ── Purchasing ────────────────────────────────────────────────────
		r.Get("/api/purchase-orders", h.listPurchaseOrders)
		r.Post("/api/purchase-orders", h.createPurchaseOrder)
		r.Get("/api/purchase-orders/{id}", h.getPurchaseOrder)
		r.Delete("/api/purchase-orders/{id}", h.deletePurchaseOrder)
		r.Post("/api/purchase-orders/{id}/send", h.sendPurchaseOrder)
		r.Post("/api/purchase-orders/{id}/confirm", h.confirmPurchaseOrder)
		r.Post("/api/purchase-orders/{id}/cancel", h.cancelPurchaseOrder)
		r.Post("/api/purchase-orders/{id}/receive", h.receivePurchaseOrder)

		// ── Employees, attendance, expenses ───────────────────────────────
		r.Get("/api/employees", h.listEmployees)
		r.Post("/api/employees", h.createEmployee)
		r.Get("/api/employees/{id}", h.getEmployee)
		r.Put("/api/employees/{id}", h.updateEmployee)
		r.Get("/api/employees/{id}/attendance-summary", h.attendanceSummary)
		r.Get("/api/attendance", h.listAttendance)
		r.Post("/api/attendance/clock-in", h.clockIn)
		r.Post("/api/attendance/clock-out", h.clockOut)
		r.Post("/api/attendance/mark", h.markAttendance)
		r.Get("/api/expenses", h.listExpenses)
		r.Post("/api/expenses", h.createExpense)
		r.Get("/api/expenses/{id}", h.getExpense)
		r.Delete("/api/expenses/{id}", h.deleteExpense)
		r.Post("/api/expenses/{id}/approve", h.approveExpense)
		r.Post("/api/expenses/{id}/reject", h.rejectExpense)
		r.Post("/api/expenses/{id}/reimburse", h.reimburseExpense)

		// ── Reports ───────────────────────────────────────────────────────
		r.Get("/api/reports/financial-summary", h.financialSummary)
		r.Get("/api/reports/inventory-valuation", h.inventoryValuation)
		r.Get("/api/reports/project-profitability", h.projectProfitability)
		r.Get("/api/reports/stock-movements", h.movementReport)

		// ── AI assistant ──────────────────────────────────────────────────
		r.Post("/api/ai/interpret", h.aiInterpret)
		r.Post("/api/ai/execute", h.aiExecute)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// idParam extracts the numeric {id} URL parameter.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// queryInt64 parses an optional numeric query parameter.
func queryInt64(r *http.Request, name string) *int64 {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &v
		}
	}
	return nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) *time.Time {
	if raw := r.URL.Query().Get(name); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return &t
		}
	}
	return nil
}

// dateRange parses from/to query parameters, defaulting to the current month.
func dateRange(r *http.Request) (time.Time, time.Time) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Second)
	if t := queryDate(r, "from"); t != nil {
		from = *t
	}
	if t := queryDate(r, "to"); t != nil {
		to = *t
	}
	return from, to
}
