package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Document type prefixes for reference numbers.
const (
	DocTypeInvoice       = "INV"
	DocTypeQuotation     = "QT"
	DocTypePurchaseOrder = "PO"
	DocTypeExpense       = "EXP"
	DocTypeMovement      = "SM"
	DocTypeItem          = "ITM"
	DocTypeCustomer      = "CUST"
	DocTypeProject       = "PRJ"
	DocTypeEmployee      = "EMP"
)

// SequenceService issues gapless reference numbers, one counter per
// (document type, period). NextReferenceTx runs inside the caller's
// transaction so a rolled-back operation never consumes a number.
type SequenceService interface {
	NextReferenceTx(ctx context.Context, tx pgx.Tx, docType, period string) (string, error)
}

type sequenceService struct {
	pool *pgxpool.Pool
}

func NewSequenceService(pool *pgxpool.Pool) SequenceService {
	return &sequenceService{pool: pool}
}

// NextReferenceTx increments the (docType, period) counter and returns the
// formatted reference, e.g. INV2026-00001 or SM20260828-00001. The upsert
// takes a row lock, so concurrent issuers for the same counter serialize.
func (s *sequenceService) NextReferenceTx(ctx context.Context, tx pgx.Tx, docType, period string) (string, error) {
	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO reference_sequences (doc_type, period, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET last_number = reference_sequences.last_number + 1
		RETURNING last_number
	`, docType, period).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s sequence number: %w", docType, classifyPgError(err))
	}
	return fmt.Sprintf("%s%s-%05d", docType, period, lastNumber), nil
}

// YearPeriod formats t as the yearly sequence period (invoices, quotations,
// purchase orders, expenses).
func YearPeriod(t time.Time) string {
	return t.Format("2006")
}

// DayPeriod formats t as the daily sequence period (stock movements).
func DayPeriod(t time.Time) string {
	return t.Format("20060102")
}

// AllTime is the period for counters that never reset (customer, employee
// codes).
const AllTime = ""
