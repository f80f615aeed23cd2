package web

import (
	"context"
	"net/http"
	"time"

	"contractor-erp/internal/core"

	"github.com/shopspring/decimal"
)

type purchaseOrderItemRequest struct {
	InventoryID *int64          `json:"inventory_id"`
	ItemName    string          `json:"item_name"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type purchaseOrderRequest struct {
	ProjectID            *int64                     `json:"project_id"`
	PODate               string                     `json:"po_date"`
	SupplierName         string                     `json:"supplier_name"`
	SupplierContact      string                     `json:"supplier_contact"`
	SupplierAddress      string                     `json:"supplier_address"`
	ExpectedDeliveryDate string                     `json:"expected_delivery_date"`
	TaxAmount            decimal.Decimal            `json:"tax_amount"`
	Notes                string                     `json:"notes"`
	Items                []purchaseOrderItemRequest `json:"items"`
}

func (req purchaseOrderRequest) toInput() (core.CreatePurchaseOrderInput, error) {
	poDate, err := time.Parse("2006-01-02", req.PODate)
	if err != nil {
		return core.CreatePurchaseOrderInput{}, err
	}
	var expected *time.Time
	if req.ExpectedDeliveryDate != "" {
		t, err := time.Parse("2006-01-02", req.ExpectedDeliveryDate)
		if err != nil {
			return core.CreatePurchaseOrderInput{}, err
		}
		expected = &t
	}
	items := make([]core.PurchaseOrderItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = core.PurchaseOrderItemInput{
			InventoryID: it.InventoryID,
			ItemName:    it.ItemName,
			Description: it.Description,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   it.UnitPrice,
		}
	}
	return core.CreatePurchaseOrderInput{
		ProjectID:            req.ProjectID,
		PODate:               poDate,
		SupplierName:         req.SupplierName,
		SupplierContact:      req.SupplierContact,
		SupplierAddress:      req.SupplierAddress,
		ExpectedDeliveryDate: expected,
		TaxAmount:            req.TaxAmount,
		Notes:                req.Notes,
		Items:                items,
	}, nil
}

func (h *Handler) listPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	filter := core.PurchaseOrderFilter{
		ProjectID: queryInt64(r, "project_id"),
		Search:    r.URL.Query().Get("q"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := core.PurchaseOrderStatus(raw)
		filter.Status = &status
	}
	orders, err := h.svc.ListPurchaseOrders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, orders)
}

func (h *Handler) createPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req purchaseOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, "invalid date, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.CreatePurchaseOrder(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, order)
}

func (h *Handler) getPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	order, err := h.svc.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) deletePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeletePurchaseOrder(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.purchaseOrderTransition(w, r, h.svc.SendPurchaseOrder)
}

func (h *Handler) confirmPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.purchaseOrderTransition(w, r, h.svc.ConfirmPurchaseOrder)
}

func (h *Handler) cancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.purchaseOrderTransition(w, r, h.svc.CancelPurchaseOrder)
}

func (h *Handler) purchaseOrderTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) (*core.PurchaseOrder, error)) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	order, err := fn(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

type receiveRequest struct {
	ReceivedBy int64 `json:"received_by"`
	Lines      []struct {
		ItemID   int64           `json:"item_id"`
		Quantity decimal.Decimal `json:"quantity"`
	} `json:"lines"`
}

func (h *Handler) receivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req receiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lines := make([]core.ReceiveLineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = core.ReceiveLineInput{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	order, err := h.svc.ReceivePurchaseOrder(r.Context(), id, req.ReceivedBy, lines)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}
