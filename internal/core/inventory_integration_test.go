package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"contractor-erp/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func seedProject(t *testing.T, pool *pgxpool.Pool, customerID int64) *core.Project {
	t.Helper()
	svc := core.NewProjectService(pool, core.NewSequenceService(pool))
	project, err := svc.CreateProject(context.Background(), core.ProjectInput{
		CustomerID:      customerID,
		ProjectName:     "Warehouse electrical fit-out",
		ProjectType:     core.ProjectElectrical,
		StartDate:       time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		EstimatedBudget: d("50000.00"),
		Status:          core.ProjectInProgress,
	})
	if err != nil {
		t.Fatalf("Failed to seed project: %v", err)
	}
	return project
}

func seedItem(t *testing.T, pool *pgxpool.Pool, qty, minimum, price string) *core.Inventory {
	t.Helper()
	svc := core.NewInventoryService(pool, core.NewSequenceService(pool))
	item, err := svc.CreateItem(context.Background(), core.CreateInventoryInput{
		ItemName:     "MCB 16A 1P",
		Category:     core.CategoryElectrical,
		Unit:         "pcs",
		Quantity:     d(qty),
		MinimumStock: d(minimum),
		UnitPrice:    d(price),
	})
	if err != nil {
		t.Fatalf("Failed to seed inventory item: %v", err)
	}
	return item
}

func TestStockMovement_LowStockThenRejection(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	employee := seedEmployee(t, pool)
	inventory := core.NewInventoryService(pool, core.NewSequenceService(pool))

	item := seedItem(t, pool, "10", "5", "45000")
	if item.Status != core.StockAvailable {
		t.Fatalf("opening status = %s, want available", item.Status)
	}

	// Issue 7 of 10: drops to 3, at or below the minimum of 5
	_, updated, err := inventory.RecordMovement(ctx, core.RecordMovementInput{
		InventoryID:  item.ID,
		MovementType: core.MovementOut,
		Quantity:     d("7"),
		CreatedBy:    employee.ID,
	})
	if err != nil {
		t.Fatalf("Out movement failed: %v", err)
	}
	if !updated.Quantity.Equal(d("3")) {
		t.Errorf("quantity after out 7 = %s, want 3", updated.Quantity)
	}
	if updated.Status != core.StockLow {
		t.Errorf("status after out 7 = %s, want low_stock", updated.Status)
	}

	// Issuing 5 more would go below zero
	_, _, err = inventory.RecordMovement(ctx, core.RecordMovementInput{
		InventoryID:  item.ID,
		MovementType: core.MovementOut,
		Quantity:     d("5"),
		CreatedBy:    employee.ID,
	})
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// Rejection writes nothing
	fresh, err := inventory.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if !fresh.Quantity.Equal(d("3")) {
		t.Errorf("quantity changed after rejected movement: %s", fresh.Quantity)
	}
	movements, err := inventory.ListMovements(ctx, core.MovementFilter{InventoryID: &item.ID})
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movements) != 1 {
		t.Errorf("expected 1 movement row, found %d", len(movements))
	}
}

func TestStockMovement_DeleteReverses(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	employee := seedEmployee(t, pool)
	inventory := core.NewInventoryService(pool, core.NewSequenceService(pool))

	item := seedItem(t, pool, "10", "5", "45000")

	movement, updated, err := inventory.RecordMovement(ctx, core.RecordMovementInput{
		InventoryID:  item.ID,
		MovementType: core.MovementOut,
		Quantity:     d("7"),
		CreatedBy:    employee.ID,
	})
	if err != nil {
		t.Fatalf("Out movement failed: %v", err)
	}
	if updated.Status != core.StockLow {
		t.Fatalf("status = %s, want low_stock", updated.Status)
	}

	reversed, err := inventory.DeleteMovement(ctx, movement.ID)
	if err != nil {
		t.Fatalf("DeleteMovement failed: %v", err)
	}
	if !reversed.Quantity.Equal(d("10")) {
		t.Errorf("quantity after reversal = %s, want 10", reversed.Quantity)
	}
	if reversed.Status != core.StockAvailable {
		t.Errorf("status after reversal = %s, want available", reversed.Status)
	}
}

func TestStockMovement_ProjectCostMirror(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	customer := seedCustomer(t, pool)
	employee := seedEmployee(t, pool)
	project := seedProject(t, pool, customer.ID)
	projects := core.NewProjectService(pool, core.NewSequenceService(pool))
	inventory := core.NewInventoryService(pool, core.NewSequenceService(pool))

	item := seedItem(t, pool, "100", "10", "45000")

	// Issuing 4 to the project charges 4 × 45000
	movement, _, err := inventory.RecordMovement(ctx, core.RecordMovementInput{
		InventoryID:  item.ID,
		ProjectID:    &project.ID,
		MovementType: core.MovementOut,
		Quantity:     d("4"),
		CreatedBy:    employee.ID,
	})
	if err != nil {
		t.Fatalf("Out movement failed: %v", err)
	}
	charged, err := projects.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if !charged.ActualCost.Equal(d("180000")) {
		t.Errorf("actual cost after issue = %s, want 180000", charged.ActualCost)
	}

	// Deleting the movement refunds the cost, clamped at zero
	if _, err := inventory.DeleteMovement(ctx, movement.ID); err != nil {
		t.Fatalf("DeleteMovement failed: %v", err)
	}
	refunded, err := projects.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if !refunded.ActualCost.IsZero() {
		t.Errorf("actual cost after reversal = %s, want 0", refunded.ActualCost)
	}
}

func TestStockMovement_InMovementAndLowStockList(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	employee := seedEmployee(t, pool)
	inventory := core.NewInventoryService(pool, core.NewSequenceService(pool))

	item := seedItem(t, pool, "2", "5", "45000")
	if item.Status != core.StockLow {
		t.Fatalf("opening status = %s, want low_stock", item.Status)
	}

	low, err := inventory.LowStockItems(ctx)
	if err != nil {
		t.Fatalf("LowStockItems failed: %v", err)
	}
	if len(low) != 1 || low[0].ID != item.ID {
		t.Fatalf("expected item %d in low stock list, got %+v", item.ID, low)
	}

	// Restocking lifts it out of the list
	_, updated, err := inventory.RecordMovement(ctx, core.RecordMovementInput{
		InventoryID:  item.ID,
		MovementType: core.MovementIn,
		Quantity:     d("48"),
		CreatedBy:    employee.ID,
	})
	if err != nil {
		t.Fatalf("In movement failed: %v", err)
	}
	if !updated.Quantity.Equal(d("50")) || updated.Status != core.StockAvailable {
		t.Errorf("after restock: qty %s status %s, want 50 available", updated.Quantity, updated.Status)
	}

	low, err = inventory.LowStockItems(ctx)
	if err != nil {
		t.Fatalf("LowStockItems failed: %v", err)
	}
	if len(low) != 0 {
		t.Errorf("low stock list should be empty after restock, got %d items", len(low))
	}
}

func TestStockMovement_ReferenceNumbersUseDailySequence(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	employee := seedEmployee(t, pool)
	inventory := core.NewInventoryService(pool, core.NewSequenceService(pool))
	item := seedItem(t, pool, "100", "5", "45000")

	movement, _, err := inventory.RecordMovement(ctx, core.RecordMovementInput{
		InventoryID:  item.ID,
		MovementType: core.MovementIn,
		Quantity:     decimal.NewFromInt(1),
		CreatedBy:    employee.ID,
	})
	if err != nil {
		t.Fatalf("RecordMovement failed: %v", err)
	}
	want := "SM" + time.Now().Format("20060102") + "-00001"
	if movement.ReferenceNumber != want {
		t.Errorf("reference number = %s, want %s", movement.ReferenceNumber, want)
	}
}
