package main

import (
	"context"
	"log"
	"os"

	cliAdapter "contractor-erp/internal/adapters/cli"
	"contractor-erp/internal/ai"
	"contractor-erp/internal/app"
	"contractor-erp/internal/core"
	"contractor-erp/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal("Usage: app <command> [args]\nCommands: propose, execute, invoices, stock, low-stock, mark-overdue, summary")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	sequences := core.NewSequenceService(pool)
	customers := core.NewCustomerService(pool, sequences)
	projects := core.NewProjectService(pool, sequences)
	quotations := core.NewQuotationService(pool, sequences)
	invoices := core.NewInvoiceService(pool, sequences)
	payments := core.NewPaymentService(pool, invoices)
	inventory := core.NewInventoryService(pool, sequences)
	purchasing := core.NewPurchaseOrderService(pool, sequences, inventory)
	employees := core.NewEmployeeService(pool, sequences)
	attendance := core.NewAttendanceService(pool)
	expenses := core.NewExpenseService(pool, sequences)
	reports := core.NewReportingService(pool)

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Println("Warning: OPENAI_API_KEY is not set")
	}
	agent := ai.NewAgent(apiKey)

	svc := app.NewAppService(pool, customers, projects, quotations, invoices, payments,
		inventory, purchasing, employees, attendance, expenses, reports, agent)

	cliAdapter.Run(ctx, svc, os.Args[1:])
}
