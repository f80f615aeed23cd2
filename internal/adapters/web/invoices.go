package web

import (
	"net/http"
	"time"

	"contractor-erp/internal/core"

	"github.com/shopspring/decimal"
)

type invoiceItemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type invoiceRequest struct {
	CustomerID     int64                `json:"customer_id"`
	ProjectID      *int64               `json:"project_id"`
	QuotationID    *int64               `json:"quotation_id"`
	InvoiceDate    string               `json:"invoice_date"`
	DueDate        string               `json:"due_date"`
	TaxPercentage  decimal.Decimal      `json:"tax_percentage"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	PaymentTerms   string               `json:"payment_terms"`
	Notes          string               `json:"notes"`
	Items          []invoiceItemRequest `json:"items"`
}

func (req invoiceRequest) toInput() (core.CreateInvoiceInput, error) {
	invoiceDate, err := time.Parse("2006-01-02", req.InvoiceDate)
	if err != nil {
		return core.CreateInvoiceInput{}, err
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return core.CreateInvoiceInput{}, err
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
	return core.CreateInvoiceInput{
		CustomerID:     req.CustomerID,
		ProjectID:      req.ProjectID,
		QuotationID:    req.QuotationID,
		InvoiceDate:    invoiceDate,
		DueDate:        dueDate,
		TaxPercentage:  req.TaxPercentage,
		DiscountAmount: req.DiscountAmount,
		PaymentTerms:   req.PaymentTerms,
		Notes:          req.Notes,
		Items:          items,
	}, nil
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	filter := core.InvoiceFilter{
		CustomerID: queryInt64(r, "customer_id"),
		ProjectID:  queryInt64(r, "project_id"),
		Search:     r.URL.Query().Get("q"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := core.InvoiceStatus(raw)
		filter.Status = &status
	}
	invoices, err := h.svc.ListInvoices(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoices)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, "invalid date, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	invoice, err := h.svc.CreateInvoice(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, invoice)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	invoice, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoice)
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req invoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, "invalid date, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	invoice, err := h.svc.UpdateInvoice(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoice)
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteInvoice(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	invoice, err := h.svc.SendInvoice(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoice)
}

func (h *Handler) markOverdue(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if t := queryDate(r, "as_of"); t != nil {
		asOf = *t
	}
	count, err := h.svc.MarkOverdueInvoices(r.Context(), asOf)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	type response struct {
		Updated int64 `json:"updated"`
	}
	writeJSON(w, response{Updated: count})
}

type paymentRequest struct {
	PaymentDate     string          `json:"payment_date"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := idParam(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		writeError(w, r, "invalid payment_date, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.RecordPayment(r.Context(), core.RecordPaymentInput{
		InvoiceID:       invoiceID,
		PaymentDate:     paymentDate,
		Amount:          req.Amount,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	type response struct {
		Payment *core.Payment `json:"payment"`
		Invoice *core.Invoice `json:"invoice"`
	}
	writeCreated(w, response{Payment: result.Payment, Invoice: result.Invoice})
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := idParam(w, r)
	if !ok {
		return
	}
	payments, err := h.svc.ListPayments(r.Context(), invoiceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, payments)
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	invoice, err := h.svc.DeletePayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoice)
}
