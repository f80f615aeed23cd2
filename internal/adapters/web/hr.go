package web

import (
	"net/http"
	"time"

	"contractor-erp/internal/core"

	"github.com/shopspring/decimal"
)

// ── Employees ─────────────────────────────────────────────────────────────────

type employeeRequest struct {
	Name       string           `json:"name"`
	Phone      string           `json:"phone"`
	Address    string           `json:"address"`
	Position   string           `json:"position"`
	Department string           `json:"department"`
	HireDate   string           `json:"hire_date"`
	HourlyRate *decimal.Decimal `json:"hourly_rate"`
	Status     string           `json:"status"`
}

func (req employeeRequest) toInput() (core.EmployeeInput, error) {
	hireDate, err := time.Parse("2006-01-02", req.HireDate)
	if err != nil {
		return core.EmployeeInput{}, err
	}
	status := core.EmployeeStatus(req.Status)
	if req.Status == "" {
		status = core.EmployeeActive
	}
	return core.EmployeeInput{
		Name:       req.Name,
		Phone:      req.Phone,
		Address:    req.Address,
		Position:   req.Position,
		Department: req.Department,
		HireDate:   hireDate,
		HourlyRate: req.HourlyRate,
		Status:     status,
	}, nil
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	filter := core.EmployeeFilter{Search: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("department"); raw != "" {
		filter.Department = &raw
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := core.EmployeeStatus(raw)
		filter.Status = &status
	}
	employees, err := h.svc.ListEmployees(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, employees)
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, "invalid hire_date, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	employee, err := h.svc.CreateEmployee(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, employee)
}

func (h *Handler) getEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	employee, err := h.svc.GetEmployee(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, employee)
}

func (h *Handler) updateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req employeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, "invalid hire_date, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	employee, err := h.svc.UpdateEmployee(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, employee)
}

// ── Attendance ────────────────────────────────────────────────────────────────

type clockRequest struct {
	EmployeeID int64  `json:"employee_id"`
	ProjectID  *int64 `json:"project_id"`
	At         string `json:"at"` // RFC3339; empty means now
}

func (req clockRequest) at() (time.Time, error) {
	if req.At == "" {
		return time.Now(), nil
	}
	return time.Parse(time.RFC3339, req.At)
}

func (h *Handler) clockIn(w http.ResponseWriter, r *http.Request) {
	var req clockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	at, err := req.at()
	if err != nil {
		writeError(w, r, "invalid at, expected RFC3339", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	attendance, err := h.svc.ClockIn(r.Context(), req.EmployeeID, req.ProjectID, at)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, attendance)
}

func (h *Handler) clockOut(w http.ResponseWriter, r *http.Request) {
	var req clockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	at, err := req.at()
	if err != nil {
		writeError(w, r, "invalid at, expected RFC3339", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	attendance, err := h.svc.ClockOut(r.Context(), req.EmployeeID, at)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, attendance)
}

type markAttendanceRequest struct {
	EmployeeID int64  `json:"employee_id"`
	Date       string `json:"date"`
	Status     string `json:"status"`
	Notes      string `json:"notes"`
}

func (h *Handler) markAttendance(w http.ResponseWriter, r *http.Request) {
	var req markAttendanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, r, "invalid date, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	attendance, err := h.svc.MarkAttendance(r.Context(), core.MarkAttendanceInput{
		EmployeeID: req.EmployeeID,
		Date:       date,
		Status:     core.AttendanceStatus(req.Status),
		Notes:      req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, attendance)
}

func (h *Handler) listAttendance(w http.ResponseWriter, r *http.Request) {
	filter := core.AttendanceFilter{
		EmployeeID: queryInt64(r, "employee_id"),
		ProjectID:  queryInt64(r, "project_id"),
		DateFrom:   queryDate(r, "from"),
		DateTo:     queryDate(r, "to"),
	}
	records, err := h.svc.ListAttendance(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, records)
}

func (h *Handler) attendanceSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	from, to := dateRange(r)
	summary, err := h.svc.AttendanceSummary(r.Context(), id, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, summary)
}

// ── Expenses ──────────────────────────────────────────────────────────────────

type expenseRequest struct {
	ProjectID   *int64          `json:"project_id"`
	EmployeeID  int64           `json:"employee_id"`
	ExpenseDate string          `json:"expense_date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Notes       string          `json:"notes"`
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := time.Parse("2006-01-02", req.ExpenseDate)
	if err != nil {
		writeError(w, r, "invalid expense_date, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	expense, err := h.svc.CreateExpense(r.Context(), core.CreateExpenseInput{
		ProjectID:   req.ProjectID,
		EmployeeID:  req.EmployeeID,
		ExpenseDate: date,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		Notes:       req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, expense)
}

func (h *Handler) getExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	expense, err := h.svc.GetExpense(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, expense)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	filter := core.ExpenseFilter{
		ProjectID:  queryInt64(r, "project_id"),
		EmployeeID: queryInt64(r, "employee_id"),
		DateFrom:   queryDate(r, "from"),
		DateTo:     queryDate(r, "to"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := core.ExpenseStatus(raw)
		filter.Status = &status
	}
	expenses, err := h.svc.ListExpenses(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, expenses)
}

type expenseDecisionRequest struct {
	ApproverID int64 `json:"approver_id"`
}

func (h *Handler) approveExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req expenseDecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	expense, err := h.svc.ApproveExpense(r.Context(), id, req.ApproverID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, expense)
}

func (h *Handler) rejectExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req expenseDecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	expense, err := h.svc.RejectExpense(r.Context(), id, req.ApproverID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, expense)
}

func (h *Handler) reimburseExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	expense, err := h.svc.ReimburseExpense(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, expense)
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteExpense(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
