package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockStatus string

const (
	StockAvailable  StockStatus = "available"
	StockLow        StockStatus = "low_stock"
	StockOut        StockStatus = "out_of_stock"
)

type InventoryCategory string

const (
	CategoryElectrical  InventoryCategory = "electrical"
	CategoryMechanical  InventoryCategory = "mechanical"
	CategoryTools       InventoryCategory = "tools"
	CategoryConsumables InventoryCategory = "consumables"
)

// Inventory is one stock-keeping unit. quantity is a running balance mutated
// only by stock movement application and reversal; status is derived from
// (quantity, minimum_stock) by DeriveStockStatus.
type Inventory struct {
	ID           int64             `json:"id"`
	ItemCode     string            `json:"item_code"`
	ItemName     string            `json:"item_name"`
	Category     InventoryCategory `json:"category"`
	Description  string            `json:"description,omitempty"`
	Unit         string            `json:"unit"`
	Quantity     decimal.Decimal   `json:"quantity"`
	MinimumStock decimal.Decimal   `json:"minimum_stock"`
	UnitPrice    decimal.Decimal   `json:"unit_price"`
	Supplier     string            `json:"supplier,omitempty"`
	Location     string            `json:"location,omitempty"`
	Status       StockStatus       `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

// StockMovement is one inventory transaction. Immutable once created except
// via deletion, which reverses its effect on the parent item (and, for out
// movements with a project, on the project's actual cost).
type StockMovement struct {
	ID              int64           `json:"id"`
	InventoryID     int64           `json:"inventory_id"`
	ProjectID       *int64          `json:"project_id,omitempty"`
	MovementType    MovementType    `json:"movement_type"`
	Quantity        decimal.Decimal `json:"quantity"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       int64           `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MovementSummary aggregates movements over a reporting period.
type MovementSummary struct {
	TotalIn         decimal.Decimal        `json:"total_in"`
	TotalOut        decimal.Decimal        `json:"total_out"`
	TotalAdjustment decimal.Decimal        `json:"total_adjustment"`
	ByInventory     []InventoryFlowSummary `json:"by_inventory"`
	ByProject       []ProjectFlowSummary   `json:"by_project"`
}

type InventoryFlowSummary struct {
	InventoryID int64           `json:"inventory_id"`
	ItemCode    string          `json:"item_code"`
	ItemName    string          `json:"item_name"`
	TotalIn     decimal.Decimal `json:"total_in"`
	TotalOut    decimal.Decimal `json:"total_out"`
}

type ProjectFlowSummary struct {
	ProjectID     int64           `json:"project_id"`
	ProjectName   string          `json:"project_name"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	MovementCount int             `json:"movement_count"`
}
