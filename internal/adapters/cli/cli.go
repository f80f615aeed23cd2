package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"contractor-erp/internal/app"
	"contractor-erp/internal/core"
)

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:], with the subcommand name first.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	switch args[0] {
	case "propose", "prop", "p":
		if len(args) < 2 {
			log.Fatal("Usage: app propose \"<instruction>\"")
		}
		result, err := svc.InterpretAction(ctx, args[1])
		if err != nil {
			log.Fatalf("Agent error: %v", err)
		}
		if result.IsClarification {
			fmt.Fprintln(os.Stderr, "AI needs clarification:", result.Proposal.Clarification)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, result.Summary)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result.Proposal)

	case "execute", "exec", "x":
		if len(args) < 2 {
			log.Fatal("Usage: app execute <actor-id> < proposal.json")
		}
		actorID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			log.Fatalf("Invalid actor id: %v", err)
		}
		var proposal core.ActionProposal
		if err := json.NewDecoder(os.Stdin).Decode(&proposal); err != nil {
			log.Fatalf("Invalid JSON: %v", err)
		}
		result, err := svc.ExecuteProposal(ctx, proposal, actorID)
		if err != nil {
			log.Fatalf("Execute failed: %v", err)
		}
		switch {
		case result.Payment != nil:
			fmt.Printf("Payment %s recorded. Invoice %s is now %s (paid %s of %s).\n",
				result.Payment.Payment.ReferenceNumber,
				result.Payment.Invoice.InvoiceNumber,
				result.Payment.Invoice.Status,
				result.Payment.Invoice.PaidAmount.StringFixed(2),
				result.Payment.Invoice.TotalAmount.StringFixed(2))
		case result.Movement != nil:
			fmt.Printf("Movement %s recorded. Item %s now has %s %s on hand (%s).\n",
				result.Movement.Movement.ReferenceNumber,
				result.Movement.Item.ItemCode,
				result.Movement.Item.Quantity.StringFixed(2),
				result.Movement.Item.Unit,
				result.Movement.Item.Status)
		}

	case "invoices", "inv":
		invoices, err := svc.ListInvoices(ctx, core.InvoiceFilter{})
		if err != nil {
			log.Fatalf("Failed to list invoices: %v", err)
		}
		printInvoices(invoices)

	case "stock":
		items, err := svc.ListInventoryItems(ctx, core.InventoryFilter{})
		if err != nil {
			log.Fatalf("Failed to list inventory: %v", err)
		}
		printStock(items)

	case "low-stock", "low":
		items, err := svc.LowStockItems(ctx)
		if err != nil {
			log.Fatalf("Failed to list low stock: %v", err)
		}
		printStock(items)

	case "mark-overdue":
		n, err := svc.MarkOverdueInvoices(ctx, time.Now())
		if err != nil {
			log.Fatalf("Failed to mark overdue invoices: %v", err)
		}
		fmt.Printf("%d invoice(s) marked overdue.\n", n)

	case "summary", "sum":
		now := time.Now()
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		summary, err := svc.FinancialSummary(ctx, from, now)
		if err != nil {
			log.Fatalf("Failed to get financial summary: %v", err)
		}
		printSummary(from, now, summary)

	default:
		log.Fatalf("Unknown command: %s\nAvailable: propose, execute, invoices, stock, low-stock, mark-overdue, summary", args[0])
	}
}

func printInvoices(invoices []core.Invoice) {
	fmt.Println()
	fmt.Printf("  %-16s %-12s %-10s %12s %12s\n", "NUMBER", "DUE", "STATUS", "TOTAL", "PAID")
	fmt.Println(strings.Repeat("-", 78))
	for _, inv := range invoices {
		fmt.Printf("  %-16s %-12s %-10s %12s %12s\n",
			inv.InvoiceNumber, inv.DueDate.Format("2006-01-02"), inv.Status,
			inv.TotalAmount.StringFixed(2), inv.PaidAmount.StringFixed(2))
	}
	fmt.Println(strings.Repeat("-", 78))
}

func printStock(items []core.Inventory) {
	fmt.Println()
	fmt.Printf("  %-14s %-28s %10s %-6s %-14s\n", "CODE", "NAME", "QTY", "UNIT", "STATUS")
	fmt.Println(strings.Repeat("-", 78))
	for _, it := range items {
		fmt.Printf("  %-14s %-28s %10s %-6s %-14s\n",
			it.ItemCode, truncate(it.ItemName, 28), it.Quantity.StringFixed(2), it.Unit, it.Status)
	}
	fmt.Println(strings.Repeat("-", 78))
}

func printSummary(from, to time.Time, s *core.FinancialSummary) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("  FINANCIAL SUMMARY  %s to %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("  %-22s %15s\n", "Invoiced", s.TotalInvoiced.StringFixed(2))
	fmt.Printf("  %-22s %15s\n", "Collected", s.TotalCollected.StringFixed(2))
	fmt.Printf("  %-22s %15s\n", "Outstanding", s.TotalOutstanding.StringFixed(2))
	fmt.Printf("  %-22s %15s\n", "Expenses", s.TotalExpenses.StringFixed(2))
	fmt.Printf("  %-22s %15d\n", "Invoices", s.InvoiceCount)
	fmt.Printf("  %-22s %15d\n", "Paid", s.PaidCount)
	fmt.Printf("  %-22s %15d\n", "Overdue", s.OverdueCount)
	fmt.Println(strings.Repeat("=", 50))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
