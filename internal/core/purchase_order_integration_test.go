package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"contractor-erp/internal/core"
)

func TestPurchaseOrder_ReceiveFlow(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	employee := seedEmployee(t, pool)
	sequences := core.NewSequenceService(pool)
	inventory := core.NewInventoryService(pool, sequences)
	purchasing := core.NewPurchaseOrderService(pool, sequences, inventory)

	item := seedItem(t, pool, "10", "5", "45000")

	order, err := purchasing.CreatePurchaseOrder(ctx, core.CreatePurchaseOrderInput{
		PODate:       time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		SupplierName: "CV Sumber Listrik",
		TaxAmount:    d("0"),
		Items: []core.PurchaseOrderItemInput{
			{InventoryID: &item.ID, ItemName: item.ItemName, Quantity: d("10"), Unit: "pcs", UnitPrice: d("42000")},
			{ItemName: "Delivery fee", Quantity: d("1"), Unit: "lot", UnitPrice: d("150000")},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder failed: %v", err)
	}
	if order.Status != core.PurchaseDraft {
		t.Fatalf("status = %s, want draft", order.Status)
	}
	if !order.TotalAmount.Equal(d("570000")) {
		t.Errorf("total = %s, want 570000", order.TotalAmount)
	}

	// Receiving before confirmation is rejected
	_, err = purchasing.ReceiveItems(ctx, order.ID, employee.ID, []core.ReceiveLineInput{
		{ItemID: order.Items[0].ID, Quantity: d("1")},
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict receiving a draft order, got %v", err)
	}

	if _, err := purchasing.SendPurchaseOrder(ctx, order.ID); err != nil {
		t.Fatalf("SendPurchaseOrder failed: %v", err)
	}
	if _, err := purchasing.ConfirmPurchaseOrder(ctx, order.ID); err != nil {
		t.Fatalf("ConfirmPurchaseOrder failed: %v", err)
	}

	stockLine := order.Items[0]
	feeLine := order.Items[1]

	// Partial delivery: 4 of 10 on the stock line
	updated, err := purchasing.ReceiveItems(ctx, order.ID, employee.ID, []core.ReceiveLineInput{
		{ItemID: stockLine.ID, Quantity: d("4")},
	})
	if err != nil {
		t.Fatalf("First receipt failed: %v", err)
	}
	if updated.Status != core.PurchasePartial {
		t.Errorf("status after partial receipt = %s, want partial", updated.Status)
	}

	// Stock ledger sees the receipt, referenced by the PO number
	freshItem, err := inventory.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if !freshItem.Quantity.Equal(d("14")) {
		t.Errorf("quantity after receipt = %s, want 14", freshItem.Quantity)
	}
	movements, err := inventory.ListMovements(ctx, core.MovementFilter{InventoryID: &item.ID})
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected 1 movement, found %d", len(movements))
	}
	if movements[0].MovementType != core.MovementIn || movements[0].ReferenceNumber != order.PONumber {
		t.Errorf("movement = %s ref %s, want in ref %s", movements[0].MovementType, movements[0].ReferenceNumber, order.PONumber)
	}

	// Over-receipt on the remaining 6 is rejected
	if _, err := purchasing.ReceiveItems(ctx, order.ID, employee.ID, []core.ReceiveLineInput{
		{ItemID: stockLine.ID, Quantity: d("7")},
	}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation on over-receipt, got %v", err)
	}

	// Delivering the rest closes the order
	updated, err = purchasing.ReceiveItems(ctx, order.ID, employee.ID, []core.ReceiveLineInput{
		{ItemID: stockLine.ID, Quantity: d("6")},
		{ItemID: feeLine.ID, Quantity: d("1")},
	})
	if err != nil {
		t.Fatalf("Final receipt failed: %v", err)
	}
	if updated.Status != core.PurchaseReceived {
		t.Errorf("status after full receipt = %s, want received", updated.Status)
	}
	if updated.ReceivedAt == nil || updated.ReceivedBy == nil || *updated.ReceivedBy != employee.ID {
		t.Errorf("received_at/received_by not recorded: %+v", updated)
	}

	freshItem, err = inventory.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if !freshItem.Quantity.Equal(d("20")) {
		t.Errorf("final quantity = %s, want 20", freshItem.Quantity)
	}
}

func TestPurchaseOrder_CancelAndDelete(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	sequences := core.NewSequenceService(pool)
	inventory := core.NewInventoryService(pool, sequences)
	purchasing := core.NewPurchaseOrderService(pool, sequences, inventory)

	order, err := purchasing.CreatePurchaseOrder(ctx, core.CreatePurchaseOrderInput{
		PODate:       time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		SupplierName: "CV Sumber Listrik",
		Items: []core.PurchaseOrderItemInput{
			{ItemName: "Pipe clamps", Quantity: d("20"), Unit: "pcs", UnitPrice: d("5000")},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder failed: %v", err)
	}

	if _, err := purchasing.SendPurchaseOrder(ctx, order.ID); err != nil {
		t.Fatalf("SendPurchaseOrder failed: %v", err)
	}
	cancelled, err := purchasing.CancelPurchaseOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("CancelPurchaseOrder failed: %v", err)
	}
	if cancelled.Status != core.PurchaseCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	// Cancelled orders are not drafts; deletion is refused
	if err := purchasing.DeletePurchaseOrder(ctx, order.ID); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict deleting a cancelled order, got %v", err)
	}
}
