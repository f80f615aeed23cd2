package web

import (
	"net/http"

	"contractor-erp/internal/core"

	"github.com/shopspring/decimal"
)

type inventoryItemRequest struct {
	ItemName     string          `json:"item_name"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Supplier     string          `json:"supplier"`
	Location     string          `json:"location"`
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	filter := core.InventoryFilter{Search: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("category"); raw != "" {
		category := core.InventoryCategory(raw)
		filter.Category = &category
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := core.StockStatus(raw)
		filter.Status = &status
	}
	items, err := h.svc.ListInventoryItems(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, items)
}

func (h *Handler) createInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req inventoryItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.CreateInventoryItem(r.Context(), core.CreateInventoryInput{
		ItemName:     req.ItemName,
		Category:     core.InventoryCategory(req.Category),
		Description:  req.Description,
		Unit:         req.Unit,
		Quantity:     req.Quantity,
		MinimumStock: req.MinimumStock,
		UnitPrice:    req.UnitPrice,
		Supplier:     req.Supplier,
		Location:     req.Location,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, item)
}

func (h *Handler) getInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	item, err := h.svc.GetInventoryItem(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) updateInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req inventoryItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.UpdateInventoryItem(r.Context(), id, core.UpdateInventoryInput{
		ItemName:     req.ItemName,
		Category:     core.InventoryCategory(req.Category),
		Description:  req.Description,
		Unit:         req.Unit,
		MinimumStock: req.MinimumStock,
		UnitPrice:    req.UnitPrice,
		Supplier:     req.Supplier,
		Location:     req.Location,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) deleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteInventoryItem(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.LowStockItems(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, items)
}

type movementRequest struct {
	InventoryID     int64           `json:"inventory_id"`
	ProjectID       *int64          `json:"project_id"`
	MovementType    string          `json:"movement_type"`
	Quantity        decimal.Decimal `json:"quantity"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
	CreatedBy       int64           `json:"created_by"`
}

func (h *Handler) recordMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.RecordStockMovement(r.Context(), core.RecordMovementInput{
		InventoryID:     req.InventoryID,
		ProjectID:       req.ProjectID,
		MovementType:    core.MovementType(req.MovementType),
		Quantity:        req.Quantity,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	type response struct {
		Movement *core.StockMovement `json:"movement"`
		Item     *core.Inventory     `json:"item"`
	}
	writeCreated(w, response{Movement: result.Movement, Item: result.Item})
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	filter := core.MovementFilter{
		InventoryID: queryInt64(r, "inventory_id"),
		ProjectID:   queryInt64(r, "project_id"),
		DateFrom:    queryDate(r, "from"),
		DateTo:      queryDate(r, "to"),
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		movementType := core.MovementType(raw)
		filter.MovementType = &movementType
	}
	movements, err := h.svc.ListStockMovements(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, movements)
}

func (h *Handler) deleteMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	item, err := h.svc.DeleteStockMovement(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}
