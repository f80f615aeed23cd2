package main

import (
	"context"
	"log"
	"net/http"
	"os"

	webAdapter "contractor-erp/internal/adapters/web"
	"contractor-erp/internal/ai"
	"contractor-erp/internal/app"
	"contractor-erp/internal/core"
	"contractor-erp/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

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

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
