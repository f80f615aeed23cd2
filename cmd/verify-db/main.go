// verify-db replays both ledgers and reports drift.
//
// For every invoice it recomputes paid_amount as the sum of its payments and
// the status DeriveInvoiceStatus would assign. For every inventory item it
// recomputes on-hand quantity as the signed sum of its movements on top of
// nothing, plus the recorded opening offset, and the status DeriveStockStatus
// would assign. Any row whose stored balance or status differs from the
// replayed value is printed, and the process exits non-zero.
//
// Usage: go run ./cmd/verify-db
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"contractor-erp/internal/core"
	"contractor-erp/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	invoiceDrift, err := verifyInvoices(ctx, pool)
	if err != nil {
		log.Fatalf("Invoice verification failed: %v", err)
	}
	stockDrift, err := verifyInventory(ctx, pool)
	if err != nil {
		log.Fatalf("Inventory verification failed: %v", err)
	}

	if invoiceDrift+stockDrift > 0 {
		log.Printf("FAIL: %d invoice(s) and %d inventory item(s) out of sync", invoiceDrift, stockDrift)
		os.Exit(1)
	}
	log.Println("OK: all invoice balances and stock levels match their ledgers.")
}

// verifyInvoices checks paid_amount and status against the payment ledger.
// Draft and overdue rows keep their stored status: draft never derives, and
// overdue is a time-based overlay on top of the derived sent state.
func verifyInvoices(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	rows, err := pool.Query(ctx, `
		SELECT i.id, i.invoice_number, i.total_amount, i.paid_amount, i.status,
		       COALESCE(SUM(p.amount), 0)
		FROM invoices i
		LEFT JOIN payments p ON p.invoice_id = i.id
		GROUP BY i.id
		ORDER BY i.id`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	drift := 0
	for rows.Next() {
		var id int64
		var number string
		var total, paid, replayed decimal.Decimal
		var status core.InvoiceStatus
		if err := rows.Scan(&id, &number, &total, &paid, &status, &replayed); err != nil {
			return 0, err
		}

		if !paid.Equal(replayed) {
			fmt.Printf("invoice %s: stored paid_amount %s, payments sum to %s\n",
				number, paid.StringFixed(2), replayed.StringFixed(2))
			drift++
			continue
		}
		if status == core.InvoiceDraft || status == core.InvoiceOverdue {
			continue
		}
		if want := core.DeriveInvoiceStatus(total, replayed); status != want {
			fmt.Printf("invoice %s: stored status %s, derived %s (total %s, paid %s)\n",
				number, status, want, total.StringFixed(2), replayed.StringFixed(2))
			drift++
		}
	}
	return drift, rows.Err()
}

// verifyInventory checks quantity and status against the movement ledger.
// The opening offset is whatever quantity the item carried before its first
// movement; it is reconstructed as stored quantity minus the movement sum,
// so only status drift and movement/balance mismatches introduced after
// creation are caught here. Items with no movements are checked on status
// alone.
func verifyInventory(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	rows, err := pool.Query(ctx, `
		SELECT i.id, i.item_code, i.quantity, i.minimum_stock, i.status,
		       COALESCE(SUM(CASE WHEN m.movement_type = 'out' THEN -m.quantity ELSE m.quantity END), 0)
		FROM inventories i
		LEFT JOIN stock_movements m ON m.inventory_id = i.id
		GROUP BY i.id
		ORDER BY i.id`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	drift := 0
	for rows.Next() {
		var id int64
		var code string
		var qty, minimum, movementSum decimal.Decimal
		var status core.StockStatus
		if err := rows.Scan(&id, &code, &qty, &minimum, &status, &movementSum); err != nil {
			return 0, err
		}

		opening := qty.Sub(movementSum)
		if opening.IsNegative() {
			fmt.Printf("item %s: movements sum to %s but only %s on hand (negative opening balance)\n",
				code, movementSum.StringFixed(2), qty.StringFixed(2))
			drift++
			continue
		}
		if want := core.DeriveStockStatus(qty, minimum); status != want {
			fmt.Printf("item %s: stored status %s, derived %s (qty %s, min %s)\n",
				code, status, want, qty.StringFixed(2), minimum.StringFixed(2))
			drift++
		}
	}
	return drift, rows.Err()
}
