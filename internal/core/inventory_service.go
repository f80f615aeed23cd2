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

// CreateInventoryInput is the validated input for a new stock item. The
// item code is issued from the ITM sequence.
type CreateInventoryInput struct {
	ItemName     string
	Category     InventoryCategory
	Description  string
	Unit         string
	Quantity     decimal.Decimal
	MinimumStock decimal.Decimal
	UnitPrice    decimal.Decimal
	Supplier     string
	Location     string
}

// UpdateInventoryInput edits descriptive fields and thresholds. Quantity is
// deliberately absent: on-hand stock changes only through movements.
type UpdateInventoryInput struct {
	ItemName     string
	Category     InventoryCategory
	Description  string
	Unit         string
	MinimumStock decimal.Decimal
	UnitPrice    decimal.Decimal
	Supplier     string
	Location     string
}

// RecordMovementInput is the validated input for one stock movement.
type RecordMovementInput struct {
	InventoryID     int64
	ProjectID       *int64
	MovementType    MovementType
	Quantity        decimal.Decimal
	ReferenceNumber string // issued from the SM sequence when empty
	Notes           string
	CreatedBy       int64
}

// InventoryFilter narrows ListItems.
type InventoryFilter struct {
	Category *InventoryCategory
	Status   *StockStatus
	Search   string // matches item code, name, or category
}

// MovementFilter narrows ListMovements.
type MovementFilter struct {
	InventoryID  *int64
	ProjectID    *int64
	MovementType *MovementType
	DateFrom     *time.Time
	DateTo       *time.Time
}

// InventoryService manages stock items and the movement ledger. Movement
// application and reversal lock the parent item row, adjust the running
// quantity, re-derive the status, and mirror material cost onto the attached
// project, all within one transaction.
type InventoryService interface {
	CreateItem(ctx context.Context, in CreateInventoryInput) (*Inventory, error)
	UpdateItem(ctx context.Context, itemID int64, in UpdateInventoryInput) (*Inventory, error)
	// DeleteItem removes an item that has no recorded movements.
	DeleteItem(ctx context.Context, itemID int64) error
	GetItem(ctx context.Context, itemID int64) (*Inventory, error)
	ListItems(ctx context.Context, filter InventoryFilter) ([]Inventory, error)
	// LowStockItems returns items at or below their minimum stock.
	LowStockItems(ctx context.Context) ([]Inventory, error)

	// RecordMovement rejects an out movement exceeding on-hand quantity with
	// ErrInsufficientStock; nothing is written in that case.
	RecordMovement(ctx context.Context, in RecordMovementInput) (*StockMovement, *Inventory, error)
	// DeleteMovement reverses the movement's delta with inverted type
	// semantics and clamps project actual cost at zero.
	DeleteMovement(ctx context.Context, movementID int64) (*Inventory, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error)
	MovementReport(ctx context.Context, from, to time.Time) (*MovementSummary, error)

	// RecordMovementTx applies a movement within the caller's transaction.
	// Used by purchase order receipt to keep stock changes atomic with the
	// order state transition.
	RecordMovementTx(ctx context.Context, tx pgx.Tx, in RecordMovementInput) (*StockMovement, error)
}

type inventoryService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
}

func NewInventoryService(pool *pgxpool.Pool, sequences SequenceService) InventoryService {
	return &inventoryService{pool: pool, sequences: sequences}
}

// ── Items ─────────────────────────────────────────────────────────────────────

func (s *inventoryService) CreateItem(ctx context.Context, in CreateInventoryInput) (*Inventory, error) {
	if err := validateItemInput(in.ItemName, in.Category, in.Unit, in.MinimumStock, in.UnitPrice); err != nil {
		return nil, err
	}
	if in.Quantity.IsNegative() {
		return nil, validationf("opening quantity cannot be negative, got %s", in.Quantity)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	itemCode, err := s.sequences.NextReferenceTx(ctx, tx, DocTypeItem, YearPeriod(time.Now()))
	if err != nil {
		return nil, err
	}

	status := DeriveStockStatus(in.Quantity, in.MinimumStock)
	var itemID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO inventories (item_code, item_name, category, description, unit, quantity,
		                         minimum_stock, unit_price, supplier, location, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, itemCode, in.ItemName, string(in.Category), in.Description, in.Unit, in.Quantity,
		in.MinimumStock, in.UnitPrice, in.Supplier, in.Location, string(status)).Scan(&itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert inventory item: %w", classifyPgError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit inventory item: %w", err)
	}
	return s.GetItem(ctx, itemID)
}

func (s *inventoryService) UpdateItem(ctx context.Context, itemID int64, in UpdateInventoryInput) (*Inventory, error) {
	if err := validateItemInput(in.ItemName, in.Category, in.Unit, in.MinimumStock, in.UnitPrice); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var quantity decimal.Decimal
	err = tx.QueryRow(ctx, "SELECT quantity FROM inventories WHERE id = $1 FOR UPDATE", itemID).Scan(&quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("inventory item %d", itemID)
		}
		return nil, fmt.Errorf("failed to lock inventory item %d: %w", itemID, classifyPgError(err))
	}

	// minimum_stock may have moved, so the status is re-derived against the
	// unchanged on-hand quantity.
	status := DeriveStockStatus(quantity, in.MinimumStock)
	_, err = tx.Exec(ctx, `
		UPDATE inventories
		SET item_name = $1, category = $2, description = $3, unit = $4, minimum_stock = $5,
		    unit_price = $6, supplier = $7, location = $8, status = $9, updated_at = NOW()
		WHERE id = $10
	`, in.ItemName, string(in.Category), in.Description, in.Unit, in.MinimumStock,
		in.UnitPrice, in.Supplier, in.Location, string(status), itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory item %d: %w", itemID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit inventory update: %w", err)
	}
	return s.GetItem(ctx, itemID)
}

func (s *inventoryService) DeleteItem(ctx context.Context, itemID int64) error {
	var hasMovements bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM stock_movements WHERE inventory_id = $1)", itemID).Scan(&hasMovements)
	if err != nil {
		return fmt.Errorf("failed to check movements for item %d: %w", itemID, err)
	}
	if hasMovements {
		return conflictf("inventory item %d has stock movements and cannot be deleted", itemID)
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM inventories WHERE id = $1", itemID)
	if err != nil {
		return fmt.Errorf("failed to delete inventory item %d: %w", itemID, classifyPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("inventory item %d", itemID)
	}
	return nil
}

func (s *inventoryService) GetItem(ctx context.Context, itemID int64) (*Inventory, error) {
	var item Inventory
	err := s.pool.QueryRow(ctx, `
		SELECT id, item_code, item_name, category, COALESCE(description, ''), unit, quantity,
		       minimum_stock, unit_price, COALESCE(supplier, ''), COALESCE(location, ''), status,
		       created_at, updated_at
		FROM inventories
		WHERE id = $1
	`, itemID).Scan(
		&item.ID, &item.ItemCode, &item.ItemName, &item.Category, &item.Description, &item.Unit,
		&item.Quantity, &item.MinimumStock, &item.UnitPrice, &item.Supplier, &item.Location,
		&item.Status, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("inventory item %d", itemID)
		}
		return nil, fmt.Errorf("failed to fetch inventory item %d: %w", itemID, err)
	}
	return &item, nil
}

func (s *inventoryService) ListItems(ctx context.Context, filter InventoryFilter) ([]Inventory, error) {
	query := `
		SELECT id, item_code, item_name, category, COALESCE(description, ''), unit, quantity,
		       minimum_stock, unit_price, COALESCE(supplier, ''), COALESCE(location, ''), status,
		       created_at, updated_at
		FROM inventories
		WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Category != nil {
		query += " AND category = " + arg(string(*filter.Category))
	}
	if filter.Status != nil {
		query += " AND status = " + arg(string(*filter.Status))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		query += fmt.Sprintf(" AND (item_code ILIKE %s OR item_name ILIKE %s OR category ILIKE %s)", p, p, p)
	}
	query += " ORDER BY item_code"

	return s.queryItems(ctx, query, args...)
}

func (s *inventoryService) LowStockItems(ctx context.Context) ([]Inventory, error) {
	return s.queryItems(ctx, `
		SELECT id, item_code, item_name, category, COALESCE(description, ''), unit, quantity,
		       minimum_stock, unit_price, COALESCE(supplier, ''), COALESCE(location, ''), status,
		       created_at, updated_at
		FROM inventories
		WHERE status IN ($1, $2)
		ORDER BY item_code
	`, string(StockLow), string(StockOut))
}

func (s *inventoryService) queryItems(ctx context.Context, query string, args ...any) ([]Inventory, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory items: %w", err)
	}
	defer rows.Close()

	var items []Inventory
	for rows.Next() {
		var item Inventory
		if err := rows.Scan(
			&item.ID, &item.ItemCode, &item.ItemName, &item.Category, &item.Description, &item.Unit,
			&item.Quantity, &item.MinimumStock, &item.UnitPrice, &item.Supplier, &item.Location,
			&item.Status, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory items: %w", err)
	}
	return items, nil
}

// ── Movements ─────────────────────────────────────────────────────────────────

func (s *inventoryService) RecordMovement(ctx context.Context, in RecordMovementInput) (*StockMovement, *Inventory, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	movement, err := s.RecordMovementTx(ctx, tx, in)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit stock movement: %w", err)
	}

	item, err := s.GetItem(ctx, in.InventoryID)
	if err != nil {
		return nil, nil, err
	}
	return movement, item, nil
}

func (s *inventoryService) RecordMovementTx(ctx context.Context, tx pgx.Tx, in RecordMovementInput) (*StockMovement, error) {
	if !in.Quantity.IsPositive() {
		return nil, validationf("movement quantity must be > 0, got %s", in.Quantity)
	}
	if in.CreatedBy == 0 {
		return nil, validationf("movement must record the creating employee")
	}
	delta, err := movementDelta(in.MovementType, in.Quantity)
	if err != nil {
		return nil, err
	}

	var quantity, minimumStock, unitPrice decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT quantity, minimum_stock, unit_price FROM inventories WHERE id = $1 FOR UPDATE",
		in.InventoryID).Scan(&quantity, &minimumStock, &unitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("inventory item %d", in.InventoryID)
		}
		return nil, fmt.Errorf("failed to lock inventory item %d: %w", in.InventoryID, classifyPgError(err))
	}

	if in.MovementType == MovementOut && quantity.LessThan(in.Quantity) {
		return nil, fmt.Errorf("%w: item %d has %s on hand, requested %s",
			ErrInsufficientStock, in.InventoryID, quantity, in.Quantity)
	}

	newQuantity := quantity.Add(delta)
	status := DeriveStockStatus(newQuantity, minimumStock)
	_, err = tx.Exec(ctx,
		"UPDATE inventories SET quantity = $1, status = $2, updated_at = NOW() WHERE id = $3",
		newQuantity, string(status), in.InventoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory item %d: %w", in.InventoryID, err)
	}

	reference := in.ReferenceNumber
	if reference == "" {
		reference, err = s.sequences.NextReferenceTx(ctx, tx, DocTypeMovement, DayPeriod(time.Now()))
		if err != nil {
			return nil, err
		}
	}

	var movement StockMovement
	err = tx.QueryRow(ctx, `
		INSERT INTO stock_movements (inventory_id, project_id, movement_type, quantity, reference_number, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, inventory_id, project_id, movement_type, quantity, reference_number, COALESCE(notes, ''), created_by, created_at
	`, in.InventoryID, in.ProjectID, string(in.MovementType), in.Quantity, reference, in.Notes, in.CreatedBy).Scan(
		&movement.ID, &movement.InventoryID, &movement.ProjectID, &movement.MovementType,
		&movement.Quantity, &movement.ReferenceNumber, &movement.Notes, &movement.CreatedBy, &movement.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert stock movement: %w", classifyPgError(err))
	}

	// Material issued to a project is charged against it at the item's
	// current unit price.
	if in.MovementType == MovementOut && in.ProjectID != nil {
		cost := materialCost(in.Quantity, unitPrice)
		tag, err := tx.Exec(ctx,
			"UPDATE projects SET actual_cost = actual_cost + $1, updated_at = NOW() WHERE id = $2",
			cost, *in.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to charge project %d: %w", *in.ProjectID, classifyPgError(err))
		}
		if tag.RowsAffected() == 0 {
			return nil, notFoundf("project %d", *in.ProjectID)
		}
	}

	return &movement, nil
}

func (s *inventoryService) DeleteMovement(ctx context.Context, movementID int64) (*Inventory, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var movement StockMovement
	err = tx.QueryRow(ctx, `
		SELECT id, inventory_id, project_id, movement_type, quantity
		FROM stock_movements
		WHERE id = $1
	`, movementID).Scan(&movement.ID, &movement.InventoryID, &movement.ProjectID, &movement.MovementType, &movement.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("stock movement %d", movementID)
		}
		return nil, fmt.Errorf("failed to fetch stock movement %d: %w", movementID, err)
	}

	var quantity, minimumStock, unitPrice decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT quantity, minimum_stock, unit_price FROM inventories WHERE id = $1 FOR UPDATE",
		movement.InventoryID).Scan(&quantity, &minimumStock, &unitPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to lock inventory item %d: %w", movement.InventoryID, classifyPgError(err))
	}

	// Reversal applies the negated creation delta: deleting an out movement
	// restores stock, deleting an in/adjustment removes it.
	delta, err := movementDelta(movement.MovementType, movement.Quantity)
	if err != nil {
		return nil, err
	}
	newQuantity := quantity.Sub(delta)
	status := DeriveStockStatus(newQuantity, minimumStock)
	_, err = tx.Exec(ctx,
		"UPDATE inventories SET quantity = $1, status = $2, updated_at = NOW() WHERE id = $3",
		newQuantity, string(status), movement.InventoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory item %d: %w", movement.InventoryID, err)
	}

	if movement.MovementType == MovementOut && movement.ProjectID != nil {
		cost := materialCost(movement.Quantity, unitPrice)
		_, err = tx.Exec(ctx,
			"UPDATE projects SET actual_cost = GREATEST(actual_cost - $1, 0), updated_at = NOW() WHERE id = $2",
			cost, *movement.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to reverse project %d charge: %w", *movement.ProjectID, err)
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM stock_movements WHERE id = $1", movementID); err != nil {
		return nil, fmt.Errorf("failed to delete stock movement %d: %w", movementID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit movement delete: %w", err)
	}
	return s.GetItem(ctx, movement.InventoryID)
}

func (s *inventoryService) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	query := `
		SELECT id, inventory_id, project_id, movement_type, quantity, reference_number, COALESCE(notes, ''), created_by, created_at
		FROM stock_movements
		WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.InventoryID != nil {
		query += " AND inventory_id = " + arg(*filter.InventoryID)
	}
	if filter.ProjectID != nil {
		query += " AND project_id = " + arg(*filter.ProjectID)
	}
	if filter.MovementType != nil {
		query += " AND movement_type = " + arg(string(*filter.MovementType))
	}
	if filter.DateFrom != nil {
		query += " AND created_at >= " + arg(*filter.DateFrom)
	}
	if filter.DateTo != nil {
		query += " AND created_at <= " + arg(*filter.DateTo)
	}
	query += " ORDER BY id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.InventoryID, &m.ProjectID, &m.MovementType, &m.Quantity,
			&m.ReferenceNumber, &m.Notes, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock movements: %w", err)
	}
	return movements, nil
}

func (s *inventoryService) MovementReport(ctx context.Context, from, to time.Time) (*MovementSummary, error) {
	summary := &MovementSummary{
		TotalIn:         decimal.Zero,
		TotalOut:        decimal.Zero,
		TotalAdjustment: decimal.Zero,
	}

	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity) FILTER (WHERE movement_type = 'in'), 0),
		       COALESCE(SUM(quantity) FILTER (WHERE movement_type = 'out'), 0),
		       COALESCE(SUM(quantity) FILTER (WHERE movement_type = 'adjustment'), 0)
		FROM stock_movements
		WHERE created_at BETWEEN $1 AND $2
	`, from, to).Scan(&summary.TotalIn, &summary.TotalOut, &summary.TotalAdjustment)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate movements: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.item_code, i.item_name,
		       COALESCE(SUM(m.quantity) FILTER (WHERE m.movement_type = 'in'), 0),
		       COALESCE(SUM(m.quantity) FILTER (WHERE m.movement_type = 'out'), 0)
		FROM stock_movements m
		JOIN inventories i ON i.id = m.inventory_id
		WHERE m.created_at BETWEEN $1 AND $2
		GROUP BY i.id, i.item_code, i.item_name
		ORDER BY i.item_code
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate movements by inventory: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f InventoryFlowSummary
		if err := rows.Scan(&f.InventoryID, &f.ItemCode, &f.ItemName, &f.TotalIn, &f.TotalOut); err != nil {
			return nil, fmt.Errorf("failed to scan inventory flow: %w", err)
		}
		summary.ByInventory = append(summary.ByInventory, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory flows: %w", err)
	}

	projRows, err := s.pool.Query(ctx, `
		SELECT p.id, p.project_name, COALESCE(SUM(m.quantity), 0), COUNT(*)
		FROM stock_movements m
		JOIN projects p ON p.id = m.project_id
		WHERE m.created_at BETWEEN $1 AND $2
		GROUP BY p.id, p.project_name
		ORDER BY p.project_name
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate movements by project: %w", err)
	}
	defer projRows.Close()
	for projRows.Next() {
		var f ProjectFlowSummary
		if err := projRows.Scan(&f.ProjectID, &f.ProjectName, &f.TotalQuantity, &f.MovementCount); err != nil {
			return nil, fmt.Errorf("failed to scan project flow: %w", err)
		}
		summary.ByProject = append(summary.ByProject, f)
	}
	if err := projRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project flows: %w", err)
	}

	return summary, nil
}

func validateItemInput(name string, category InventoryCategory, unit string, minimumStock, unitPrice decimal.Decimal) error {
	if name == "" {
		return validationf("item name is required")
	}
	switch category {
	case CategoryElectrical, CategoryMechanical, CategoryTools, CategoryConsumables:
	default:
		return validationf("unknown inventory category %q", category)
	}
	if unit == "" {
		return validationf("unit is required")
	}
	if minimumStock.IsNegative() {
		return validationf("minimum stock cannot be negative, got %s", minimumStock)
	}
	if unitPrice.IsNegative() {
		return validationf("unit price cannot be negative, got %s", unitPrice)
	}
	return nil
}
