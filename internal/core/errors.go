package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel error kinds. Services wrap them with fmt.Errorf("%w: ...") so
// callers classify with errors.Is while keeping the full message chain.
// Anything not matching one of these is a storage failure and carries the
// driver error in its chain.
var (
	// ErrValidation marks malformed or out-of-range input. Nothing has been
	// written when it is returned.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a lookup of a record that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientBalance marks a payment exceeding an invoice's
	// outstanding balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientStock marks an outbound movement exceeding the on-hand
	// quantity.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConflict marks a lost race on a parent row (lock timeout, deadlock,
	// serialization failure) or a state transition no longer allowed. The
	// caller may retry.
	ErrConflict = errors.New("conflict")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// classifyPgError folds Postgres concurrency failures into ErrConflict so
// callers can retry without inspecting SQLSTATE codes themselves.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03": // serialization failure, deadlock, lock not available
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}
