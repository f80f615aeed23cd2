package web

import (
	"net/http"

	"contractor-erp/internal/core"
)

type interpretRequest struct {
	Text string `json:"text"`
}

// aiInterpret handles POST /api/ai/interpret. It returns a typed proposal
// (or a clarification question) and writes nothing; the client must confirm
// with /api/ai/execute.
func (h *Handler) aiInterpret(w http.ResponseWriter, r *http.Request) {
	var req interpretRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeError(w, r, "text is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.InterpretAction(r.Context(), req.Text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	type response struct {
		Proposal        *core.ActionProposal `json:"proposal"`
		IsClarification bool                 `json:"is_clarification"`
		Summary         string               `json:"summary"`
	}
	writeJSON(w, response{
		Proposal:        result.Proposal,
		IsClarification: result.IsClarification,
		Summary:         result.Summary,
	})
}

type executeRequest struct {
	Proposal core.ActionProposal `json:"proposal"`
	ActorID  int64               `json:"actor_id"`
}

// aiExecute handles POST /api/ai/execute. The proposal is round-tripped from
// /api/ai/interpret and re-validated before anything is written.
func (h *Handler) aiExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.ExecuteProposal(r.Context(), req.Proposal, req.ActorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	type paymentResponse struct {
		Payment *core.Payment `json:"payment"`
		Invoice *core.Invoice `json:"invoice"`
	}
	type movementResponse struct {
		Movement *core.StockMovement `json:"movement"`
		Item     *core.Inventory     `json:"item"`
	}
	type response struct {
		Payment  *paymentResponse  `json:"payment_result,omitempty"`
		Movement *movementResponse `json:"movement_result,omitempty"`
	}
	var resp response
	if result.Payment != nil {
		resp.Payment = &paymentResponse{Payment: result.Payment.Payment, Invoice: result.Payment.Invoice}
	}
	if result.Movement != nil {
		resp.Movement = &movementResponse{Movement: result.Movement.Movement, Item: result.Movement.Item}
	}
	writeJSON(w, resp)
}
