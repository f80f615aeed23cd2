package web

import "net/http"

func (h *Handler) financialSummary(w http.ResponseWriter, r *http.Request) {
	from, to := dateRange(r)
	summary, err := h.svc.FinancialSummary(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, summary)
}

func (h *Handler) inventoryValuation(w http.ResponseWriter, r *http.Request) {
	valuation, err := h.svc.InventoryValuation(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, valuation)
}

func (h *Handler) projectProfitability(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.ProjectProfitability(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, results)
}

func (h *Handler) movementReport(w http.ResponseWriter, r *http.Request) {
	from, to := dateRange(r)
	summary, err := h.svc.MovementReport(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, summary)
}
