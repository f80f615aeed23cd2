package web

import (
	"context"
	"net/http"
	"time"

	"contractor-erp/internal/core"

	"github.com/shopspring/decimal"
)

// ── Customers ─────────────────────────────────────────────────────────────────

type customerRequest struct {
	Name          string `json:"name"`
	CompanyName   string `json:"company_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	TaxNumber     string `json:"tax_number"`
	ContactPerson string `json:"contact_person"`
	Notes         string `json:"notes"`
	Status        string `json:"status"`
}

func (req customerRequest) toInput() core.CustomerInput {
	status := core.CustomerStatus(req.Status)
	if req.Status == "" {
		status = core.CustomerActive
	}
	return core.CustomerInput{
		Name:          req.Name,
		CompanyName:   req.CompanyName,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		TaxNumber:     req.TaxNumber,
		ContactPerson: req.ContactPerson,
		Notes:         req.Notes,
		Status:        status,
	}
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	filter := core.CustomerFilter{Search: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := core.CustomerStatus(raw)
		filter.Status = &status
	}
	customers, err := h.svc.ListCustomers(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, customers)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	customer, err := h.svc.CreateCustomer(r.Context(), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, customer)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	customer, err := h.svc.GetCustomer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, customer)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req customerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	customer, err := h.svc.UpdateCustomer(r.Context(), id, req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, customer)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteCustomer(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Projects ──────────────────────────────────────────────────────────────────

type projectRequest struct {
	CustomerID         int64           `json:"customer_id"`
	ProjectName        string          `json:"project_name"`
	ProjectType        string          `json:"project_type"`
	Description        string          `json:"description"`
	Location           string          `json:"location"`
	StartDate          string          `json:"start_date"`
	EndDate            string          `json:"end_date"`
	EstimatedBudget    decimal.Decimal `json:"estimated_budget"`
	Status             string          `json:"status"`
	ProgressPercentage int             `json:"progress_percentage"`
	ProjectManagerID   *int64          `json:"project_manager_id"`
	Notes              string          `json:"notes"`
}

func (req projectRequest) toInput() (core.ProjectInput, error) {
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return core.ProjectInput{}, err
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return core.ProjectInput{}, err
	}
	status := core.ProjectStatus(req.Status)
	if req.Status == "" {
		status = core.ProjectDraft
	}
	return core.ProjectInput{
		CustomerID:         req.CustomerID,
		ProjectName:        req.ProjectName,
		ProjectType:        core.ProjectType(req.ProjectType),
		Description:        req.Description,
		Location:           req.Location,
		StartDate:          startDate,
		EndDate:            endDate,
		EstimatedBudget:    req.EstimatedBudget,
		Status:             status,
		ProgressPercentage: req.ProgressPercentage,
		ProjectManagerID:   req.ProjectManagerID,
		Notes:              req.Notes,
	}, nil
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	filter := core.ProjectFilter{
		CustomerID: queryInt64(r, "customer_id"),
		Search:     r.URL.Query().Get("q"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := core.ProjectStatus(raw)
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		projectType := core.ProjectType(raw)
		filter.Type = &projectType
	}
	projects, err := h.svc.ListProjects(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, projects)
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, "invalid date, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	project, err := h.svc.CreateProject(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, project)
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	project, err := h.svc.GetProject(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, project)
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req projectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, "invalid date, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	project, err := h.svc.UpdateProject(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, project)
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteProject(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) projectCosts(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.ProjectCostSummary(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, summary)
}

// ── Quotations ────────────────────────────────────────────────────────────────

type quotationRequest struct {
	CustomerID     int64                `json:"customer_id"`
	ProjectID      *int64               `json:"project_id"`
	QuotationDate  string               `json:"quotation_date"`
	ValidUntil     string               `json:"valid_until"`
	TaxPercentage  decimal.Decimal      `json:"tax_percentage"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	Notes          string               `json:"notes"`
	Items          []invoiceItemRequest `json:"items"`
}

func (req quotationRequest) toInput() (core.CreateQuotationInput, error) {
	quotationDate, err := time.Parse("2006-01-02", req.QuotationDate)
	if err != nil {
		return core.CreateQuotationInput{}, err
	}
	var validUntil *time.Time
	if req.ValidUntil != "" {
		t, err := time.Parse("2006-01-02", req.ValidUntil)
		if err != nil {
			return core.CreateQuotationInput{}, err
		}
		validUntil = &t
	}
	items := make([]core.InvoiceItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = core.InvoiceItemInput{
			Description: it.Description,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   it.UnitPrice,
		}
	}
	return core.CreateQuotationInput{
		CustomerID:     req.CustomerID,
		ProjectID:      req.ProjectID,
		QuotationDate:  quotationDate,
		ValidUntil:     validUntil,
		TaxPercentage:  req.TaxPercentage,
		DiscountAmount: req.DiscountAmount,
		Notes:          req.Notes,
		Items:          items,
	}, nil
}

func (h *Handler) listQuotations(w http.ResponseWriter, r *http.Request) {
	filter := core.QuotationFilter{
		CustomerID: queryInt64(r, "customer_id"),
		Search:     r.URL.Query().Get("q"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := core.QuotationStatus(raw)
		filter.Status = &status
	}
	quotations, err := h.svc.ListQuotations(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, quotations)
}

func (h *Handler) createQuotation(w http.ResponseWriter, r *http.Request) {
	var req quotationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, "invalid date, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	quotation, err := h.svc.CreateQuotation(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, quotation)
}

func (h *Handler) getQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	quotation, err := h.svc.GetQuotation(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, quotation)
}

func (h *Handler) updateQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req quotationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, "invalid date, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	quotation, err := h.svc.UpdateQuotation(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, quotation)
}

func (h *Handler) deleteQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteQuotation(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendQuotation(w http.ResponseWriter, r *http.Request) {
	h.quotationTransition(w, r, h.svc.SendQuotation)
}

func (h *Handler) approveQuotation(w http.ResponseWriter, r *http.Request) {
	h.quotationTransition(w, r, h.svc.ApproveQuotation)
}

func (h *Handler) rejectQuotation(w http.ResponseWriter, r *http.Request) {
	h.quotationTransition(w, r, h.svc.RejectQuotation)
}

func (h *Handler) quotationTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) (*core.Quotation, error)) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	quotation, err := fn(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, quotation)
}
