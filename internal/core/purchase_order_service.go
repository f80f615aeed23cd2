package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PurchaseOrderStatus string

const (
	PurchaseDraft     PurchaseOrderStatus = "draft"
	PurchaseSent      PurchaseOrderStatus = "sent"
	PurchaseConfirmed PurchaseOrderStatus = "confirmed"
	PurchasePartial   PurchaseOrderStatus = "partial"
	PurchaseReceived  PurchaseOrderStatus = "received"
	PurchaseCancelled PurchaseOrderStatus = "cancelled"
)

// PurchaseOrder is an order to a supplier. Receiving lines that reference an
// inventory item posts in movements through the stock ledger, so purchase
// receipts and on-hand quantities stay consistent.
type PurchaseOrder struct {
	ID                   int64               `json:"id"`
	ProjectID            *int64              `json:"project_id,omitempty"`
	PONumber             string              `json:"po_number"`
	PODate               time.Time           `json:"po_date"`
	SupplierName         string              `json:"supplier_name"`
	SupplierContact      string              `json:"supplier_contact,omitempty"`
	SupplierAddress      string              `json:"supplier_address,omitempty"`
	ExpectedDeliveryDate *time.Time          `json:"expected_delivery_date,omitempty"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	TaxAmount            decimal.Decimal     `json:"tax_amount"`
	TotalAmount          decimal.Decimal     `json:"total_amount"`
	Status               PurchaseOrderStatus `json:"status"`
	Notes                string              `json:"notes,omitempty"`
	ReceivedAt           *time.Time          `json:"received_at,omitempty"`
	ReceivedBy           *int64              `json:"received_by,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	Items                []PurchaseOrderItem `json:"items,omitempty"`
}

type PurchaseOrderItem struct {
	ID               int64           `json:"id"`
	PurchaseOrderID  int64           `json:"purchase_order_id"`
	InventoryID      *int64          `json:"inventory_id,omitempty"`
	ItemName         string          `json:"item_name"`
	Description      string          `json:"description,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	Unit             string          `json:"unit"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
}

// PurchaseOrderItemInput is one ordered line. InventoryID links the line to a
// stock item so receipt posts an in movement; nil lines are non-stock
// purchases.
type PurchaseOrderItemInput struct {
	InventoryID *int64
	ItemName    string
	Description string
	Quantity    decimal.Decimal
	Unit        string
	UnitPrice   decimal.Decimal
}

// CreatePurchaseOrderInput is the validated input for a new purchase order.
type CreatePurchaseOrderInput struct {
	ProjectID            *int64
	PODate               time.Time
	SupplierName         string
	SupplierContact      string
	SupplierAddress      string
	ExpectedDeliveryDate *time.Time
	TaxAmount            decimal.Decimal
	Notes                string
	Items                []PurchaseOrderItemInput
}

// ReceiveLineInput is one received quantity against an order line.
type ReceiveLineInput struct {
	ItemID   int64
	Quantity decimal.Decimal
}

// PurchaseOrderFilter narrows ListPurchaseOrders.
type PurchaseOrderFilter struct {
	ProjectID *int64
	Status    *PurchaseOrderStatus
	Search    string // matches PO number or supplier name
}

// PurchaseOrderService manages the purchasing lifecycle:
//
//	draft → sent → confirmed → partial → received
//	draft | sent → cancelled
//
// ReceiveItems accumulates received_quantity per line, posts in movements for
// stock-linked lines, and flips the order to partial or received depending on
// whether every line is fully delivered. The whole receipt is one
// transaction.
type PurchaseOrderService interface {
	CreatePurchaseOrder(ctx context.Context, in CreatePurchaseOrderInput) (*PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, orderID int64) (*PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, filter PurchaseOrderFilter) ([]PurchaseOrder, error)
	SendPurchaseOrder(ctx context.Context, orderID int64) (*PurchaseOrder, error)
	ConfirmPurchaseOrder(ctx context.Context, orderID int64) (*PurchaseOrder, error)
	CancelPurchaseOrder(ctx context.Context, orderID int64) (*PurchaseOrder, error)
	ReceiveItems(ctx context.Context, orderID int64, receivedBy int64, lines []ReceiveLineInput) (*PurchaseOrder, error)
	DeletePurchaseOrder(ctx context.Context, orderID int64) error
}

type purchaseOrderService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
	inventory InventoryService
}

func NewPurchaseOrderService(pool *pgxpool.Pool, sequences SequenceService, inventory InventoryService) PurchaseOrderService {
	return &purchaseOrderService{pool: pool, sequences: sequences, inventory: inventory}
}

func (s *purchaseOrderService) CreatePurchaseOrder(ctx context.Context, in CreatePurchaseOrderInput) (*PurchaseOrder, error) {
	if in.SupplierName == "" {
		return nil, validationf("supplier name is required")
	}
	if in.PODate.IsZero() {
		return nil, validationf("order date is required")
	}
	if len(in.Items) == 0 {
		return nil, validationf("purchase order needs at least one line item")
	}
	if in.TaxAmount.IsNegative() {
		return nil, validationf("tax amount cannot be negative, got %s", in.TaxAmount)
	}
	subtotal := decimal.Zero
	for i, item := range in.Items {
		if item.ItemName == "" {
			return nil, validationf("item %d: name is required", i+1)
		}
		if !item.Quantity.IsPositive() {
			return nil, validationf("item %d: quantity must be > 0, got %s", i+1, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return nil, validationf("item %d: unit price cannot be negative, got %s", i+1, item.UnitPrice)
		}
		subtotal = subtotal.Add(item.Quantity.Mul(item.UnitPrice).Round(2))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, err := s.sequences.NextReferenceTx(ctx, tx, DocTypePurchaseOrder, YearPeriod(in.PODate))
	if err != nil {
		return nil, err
	}

	total := subtotal.Add(in.TaxAmount)
	var orderID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (project_id, po_number, po_date, supplier_name, supplier_contact,
		                             supplier_address, expected_delivery_date, subtotal, tax_amount,
		                             total_amount, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, in.ProjectID, number, in.PODate, in.SupplierName, in.SupplierContact,
		in.SupplierAddress, in.ExpectedDeliveryDate, subtotal, in.TaxAmount,
		total, string(PurchaseDraft), in.Notes).Scan(&orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert purchase order: %w", classifyPgError(err))
	}

	for _, item := range in.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO purchase_order_items (purchase_order_id, inventory_id, item_name, description, quantity, unit, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, orderID, item.InventoryID, item.ItemName, item.Description, item.Quantity, item.Unit,
			item.UnitPrice, item.Quantity.Mul(item.UnitPrice).Round(2))
		if err != nil {
			return nil, fmt.Errorf("failed to insert purchase order item: %w", classifyPgError(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase order: %w", err)
	}
	return s.GetPurchaseOrder(ctx, orderID)
}

func (s *purchaseOrderService) GetPurchaseOrder(ctx context.Context, orderID int64) (*PurchaseOrder, error) {
	var po PurchaseOrder
	err := s.pool.QueryRow(ctx, `
		SELECT id, project_id, po_number, po_date, supplier_name, COALESCE(supplier_contact, ''),
		       COALESCE(supplier_address, ''), expected_delivery_date, subtotal, tax_amount,
		       total_amount, status, COALESCE(notes, ''), received_at, received_by, created_at, updated_at
		FROM purchase_orders
		WHERE id = $1
	`, orderID).Scan(
		&po.ID, &po.ProjectID, &po.PONumber, &po.PODate, &po.SupplierName, &po.SupplierContact,
		&po.SupplierAddress, &po.ExpectedDeliveryDate, &po.Subtotal, &po.TaxAmount,
		&po.TotalAmount, &po.Status, &po.Notes, &po.ReceivedAt, &po.ReceivedBy, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("purchase order %d", orderID)
		}
		return nil, fmt.Errorf("failed to fetch purchase order %d: %w", orderID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, purchase_order_id, inventory_id, item_name, COALESCE(description, ''), quantity, unit, unit_price, subtotal, received_quantity
		FROM purchase_order_items
		WHERE purchase_order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase order %d items: %w", orderID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var item PurchaseOrderItem
		if err := rows.Scan(&item.ID, &item.PurchaseOrderID, &item.InventoryID, &item.ItemName, &item.Description,
			&item.Quantity, &item.Unit, &item.UnitPrice, &item.Subtotal, &item.ReceivedQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan purchase order item: %w", err)
		}
		po.Items = append(po.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchase order items: %w", err)
	}
	return &po, nil
}

func (s *purchaseOrderService) ListPurchaseOrders(ctx context.Context, filter PurchaseOrderFilter) ([]PurchaseOrder, error) {
	query := `
		SELECT id, project_id, po_number, po_date, supplier_name, COALESCE(supplier_contact, ''),
		       COALESCE(supplier_address, ''), expected_delivery_date, subtotal, tax_amount,
		       total_amount, status, COALESCE(notes, ''), received_at, received_by, created_at, updated_at
		FROM purchase_orders
		WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.ProjectID != nil {
		query += " AND project_id = " + arg(*filter.ProjectID)
	}
	if filter.Status != nil {
		query += " AND status = " + arg(string(*filter.Status))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		query += fmt.Sprintf(" AND (po_number ILIKE %s OR supplier_name ILIKE %s)", p, p)
	}
	query += " ORDER BY id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := rows.Scan(
			&po.ID, &po.ProjectID, &po.PONumber, &po.PODate, &po.SupplierName, &po.SupplierContact,
			&po.SupplierAddress, &po.ExpectedDeliveryDate, &po.Subtotal, &po.TaxAmount,
			&po.TotalAmount, &po.Status, &po.Notes, &po.ReceivedAt, &po.ReceivedBy, &po.CreatedAt, &po.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchase orders: %w", err)
	}
	return orders, nil
}

func (s *purchaseOrderService) SendPurchaseOrder(ctx context.Context, orderID int64) (*PurchaseOrder, error) {
	return s.transition(ctx, orderID, []PurchaseOrderStatus{PurchaseDraft}, PurchaseSent)
}

func (s *purchaseOrderService) ConfirmPurchaseOrder(ctx context.Context, orderID int64) (*PurchaseOrder, error) {
	return s.transition(ctx, orderID, []PurchaseOrderStatus{PurchaseSent}, PurchaseConfirmed)
}

func (s *purchaseOrderService) CancelPurchaseOrder(ctx context.Context, orderID int64) (*PurchaseOrder, error) {
	return s.transition(ctx, orderID, []PurchaseOrderStatus{PurchaseDraft, PurchaseSent}, PurchaseCancelled)
}

func (s *purchaseOrderService) transition(ctx context.Context, orderID int64, from []PurchaseOrderStatus, to PurchaseOrderStatus) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockPurchaseOrderStatus(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, f := range from {
		if status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, conflictf("purchase order %d is %s, cannot move to %s", orderID, status, to)
	}

	_, err = tx.Exec(ctx, "UPDATE purchase_orders SET status = $1, updated_at = NOW() WHERE id = $2",
		string(to), orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to transition purchase order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase order transition: %w", err)
	}
	return s.GetPurchaseOrder(ctx, orderID)
}

func (s *purchaseOrderService) ReceiveItems(ctx context.Context, orderID int64, receivedBy int64, lines []ReceiveLineInput) (*PurchaseOrder, error) {
	if len(lines) == 0 {
		return nil, validationf("nothing to receive")
	}
	if receivedBy == 0 {
		return nil, validationf("receipt must record the receiving employee")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockPurchaseOrderStatus(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	switch status {
	case PurchaseConfirmed, PurchasePartial:
	default:
		return nil, conflictf("purchase order %d is %s, receipt requires confirmed or partial", orderID, status)
	}

	var poNumber string
	var projectID *int64
	err = tx.QueryRow(ctx, "SELECT po_number, project_id FROM purchase_orders WHERE id = $1", orderID).Scan(&poNumber, &projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch purchase order %d: %w", orderID, err)
	}

	for _, line := range lines {
		if !line.Quantity.IsPositive() {
			return nil, validationf("received quantity must be > 0, got %s", line.Quantity)
		}

		var inventoryID *int64
		var ordered, received decimal.Decimal
		err := tx.QueryRow(ctx, `
			SELECT inventory_id, quantity, received_quantity
			FROM purchase_order_items
			WHERE id = $1 AND purchase_order_id = $2
			FOR UPDATE
		`, line.ItemID, orderID).Scan(&inventoryID, &ordered, &received)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, notFoundf("purchase order %d line %d", orderID, line.ItemID)
			}
			return nil, fmt.Errorf("failed to lock purchase order line %d: %w", line.ItemID, classifyPgError(err))
		}

		remaining := ordered.Sub(received)
		if line.Quantity.GreaterThan(remaining) {
			return nil, validationf("line %d: receiving %s exceeds remaining %s", line.ItemID, line.Quantity, remaining)
		}

		_, err = tx.Exec(ctx,
			"UPDATE purchase_order_items SET received_quantity = received_quantity + $1 WHERE id = $2",
			line.Quantity, line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("failed to update purchase order line %d: %w", line.ItemID, err)
		}

		// Stock-linked lines flow through the movement ledger so item
		// quantity and status update under the same lock discipline as
		// manual movements.
		if inventoryID != nil {
			_, err = s.inventory.RecordMovementTx(ctx, tx, RecordMovementInput{
				InventoryID:     *inventoryID,
				MovementType:    MovementIn,
				Quantity:        line.Quantity,
				ReferenceNumber: poNumber,
				Notes:           fmt.Sprintf("purchase order %s receipt", poNumber),
				CreatedBy:       receivedBy,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	var outstanding bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM purchase_order_items
			WHERE purchase_order_id = $1 AND received_quantity < quantity
		)
	`, orderID).Scan(&outstanding)
	if err != nil {
		return nil, fmt.Errorf("failed to check purchase order %d completion: %w", orderID, err)
	}

	newStatus := PurchaseReceived
	if outstanding {
		newStatus = PurchasePartial
	}
	if newStatus == PurchaseReceived {
		_, err = tx.Exec(ctx, `
			UPDATE purchase_orders
			SET status = $1, received_at = NOW(), received_by = $2, updated_at = NOW()
			WHERE id = $3
		`, string(newStatus), receivedBy, orderID)
	} else {
		_, err = tx.Exec(ctx,
			"UPDATE purchase_orders SET status = $1, updated_at = NOW() WHERE id = $2",
			string(newStatus), orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update purchase order %d status: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase order receipt: %w", err)
	}
	return s.GetPurchaseOrder(ctx, orderID)
}

func (s *purchaseOrderService) DeletePurchaseOrder(ctx context.Context, orderID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockPurchaseOrderStatus(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if status != PurchaseDraft {
		return conflictf("purchase order %d is %s and cannot be deleted", orderID, status)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM purchase_orders WHERE id = $1", orderID); err != nil {
		return fmt.Errorf("failed to delete purchase order %d: %w", orderID, classifyPgError(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit purchase order delete: %w", err)
	}
	return nil
}

func lockPurchaseOrderStatus(ctx context.Context, tx pgx.Tx, orderID int64) (PurchaseOrderStatus, error) {
	var status PurchaseOrderStatus
	err := tx.QueryRow(ctx, "SELECT status FROM purchase_orders WHERE id = $1 FOR UPDATE", orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", notFoundf("purchase order %d", orderID)
		}
		return "", fmt.Errorf("failed to lock purchase order %d: %w", orderID, classifyPgError(err))
	}
	return status, nil
}
