// seed is a one-shot tool to load demo master data into an empty database.
// It is idempotent; re-running updates the same rows in place.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"
	"os"

	"contractor-erp/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Seeding employees...")
	_, err = tx.Exec(ctx, `
		INSERT INTO employees (employee_code, name, position, department, hire_date, hourly_rate)
		VALUES
		  ('EMP-00001', 'Budi Santoso',  'Site Supervisor',     'electrical', '2021-03-01', 85000),
		  ('EMP-00002', 'Agus Wijaya',   'Senior Technician',   'mechanical', '2021-06-15', 65000),
		  ('EMP-00003', 'Siti Rahma',    'Warehouse Admin',     'admin',      '2022-01-10', 45000),
		  ('EMP-00004', 'Dewi Lestari',  'Operations Manager',  'management', '2020-09-01', 120000)
		ON CONFLICT (employee_code) DO UPDATE
		  SET name = EXCLUDED.name,
		      position = EXCLUDED.position,
		      department = EXCLUDED.department;
	`)
	if err != nil {
		log.Fatalf("Failed to seed employees: %v", err)
	}

	log.Println("Seeding customers...")
	_, err = tx.Exec(ctx, `
		INSERT INTO customers (code, name, company_name, city, contact_person)
		VALUES
		  ('CUST-00001', 'PT Graha Persada',   'PT Graha Persada',   'Jakarta',  'Rudi Hartono'),
		  ('CUST-00002', 'CV Mitra Teknik',    'CV Mitra Teknik',    'Surabaya', 'Andi Saputra'),
		  ('CUST-00003', 'PT Bangun Sejahtera','PT Bangun Sejahtera','Bandung',  'Linda Kusuma')
		ON CONFLICT (code) DO UPDATE
		  SET name = EXCLUDED.name,
		      company_name = EXCLUDED.company_name,
		      city = EXCLUDED.city;
	`)
	if err != nil {
		log.Fatalf("Failed to seed customers: %v", err)
	}

	log.Println("Seeding inventory items...")
	_, err = tx.Exec(ctx, `
		INSERT INTO inventories (item_code, item_name, category, unit, quantity, minimum_stock, unit_price, status)
		VALUES
		  ('ITM2026-00001', 'NYA Cable 2.5mm',        'electrical',  'roll', 40,  10, 350000,  'available'),
		  ('ITM2026-00002', 'MCB 16A 1P',             'electrical',  'pcs',  120, 30, 45000,   'available'),
		  ('ITM2026-00003', 'Galvanized Pipe 2in',    'mechanical',  'pcs',  25,  8,  180000,  'available'),
		  ('ITM2026-00004', 'Ball Valve 1in',         'mechanical',  'pcs',  6,   10, 95000,   'low_stock'),
		  ('ITM2026-00005', 'Cordless Drill 18V',     'tools',       'unit', 5,   2,  1450000, 'available'),
		  ('ITM2026-00006', 'Electrical Tape',        'consumables', 'pcs',  0,   24, 8000,    'out_of_stock')
		ON CONFLICT (item_code) DO UPDATE
		  SET item_name = EXCLUDED.item_name,
		      category = EXCLUDED.category,
		      unit = EXCLUDED.unit;
	`)
	if err != nil {
		log.Fatalf("Failed to seed inventory: %v", err)
	}

	log.Println("Seeding reference counters...")
	_, err = tx.Exec(ctx, `
		INSERT INTO reference_sequences (doc_type, period, last_number)
		VALUES
		  ('EMP', '', 4),
		  ('CUST', '', 3),
		  ('ITM', '2026', 6)
		ON CONFLICT (doc_type, period) DO UPDATE
		  SET last_number = GREATEST(reference_sequences.last_number, EXCLUDED.last_number);
	`)
	if err != nil {
		log.Fatalf("Failed to seed reference counters: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed data loaded successfully.")
	os.Exit(0)
}
