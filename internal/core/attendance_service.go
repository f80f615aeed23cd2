package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ComputeWorkHours returns the hours between clock in and clock out, rounded
// to two decimals. Either bound missing yields zero.
func ComputeWorkHours(clockIn, clockOut *time.Time) (decimal.Decimal, error) {
	if clockIn == nil || clockOut == nil {
		return decimal.Zero, nil
	}
	if clockOut.Before(*clockIn) {
		return decimal.Zero, validationf("clock out %s is before clock in %s",
			clockOut.Format(time.RFC3339), clockIn.Format(time.RFC3339))
	}
	hours := clockOut.Sub(*clockIn).Hours()
	return decimal.NewFromFloat(hours).Round(2), nil
}

// MarkAttendanceInput records a non-working day (absent, leave, sick,
// holiday) for an employee.
type MarkAttendanceInput struct {
	EmployeeID int64
	Date       time.Time
	Status     AttendanceStatus
	Notes      string
}

// AttendanceFilter narrows ListAttendance.
type AttendanceFilter struct {
	EmployeeID *int64
	ProjectID  *int64
	DateFrom   *time.Time
	DateTo     *time.Time
}

// AttendancePeriodSummary aggregates one employee's attendance over a period.
type AttendancePeriodSummary struct {
	EmployeeID     int64           `json:"employee_id"`
	TotalWorkHours decimal.Decimal `json:"total_work_hours"`
	DaysPresent    int64           `json:"days_present"`
	DaysAbsent     int64           `json:"days_absent"`
	DaysLeave      int64           `json:"days_leave"`
}

// AttendanceService tracks daily attendance, at most one record per employee
// per calendar day. Work hours are derived from the clock pair on clock out.
type AttendanceService interface {
	// ClockIn opens today's record for the employee; a second clock in on
	// the same day is a conflict.
	ClockIn(ctx context.Context, employeeID int64, projectID *int64, at time.Time) (*Attendance, error)
	// ClockOut closes the open record and stores the derived work hours.
	ClockOut(ctx context.Context, employeeID int64, at time.Time) (*Attendance, error)
	// MarkDay records an absence-type status for a day with no clock pair.
	MarkDay(ctx context.Context, in MarkAttendanceInput) (*Attendance, error)
	ListAttendance(ctx context.Context, filter AttendanceFilter) ([]Attendance, error)
	// PeriodSummary aggregates hours and day counts for one employee.
	PeriodSummary(ctx context.Context, employeeID int64, from, to time.Time) (*AttendancePeriodSummary, error)
}

type attendanceService struct {
	pool *pgxpool.Pool
}

func NewAttendanceService(pool *pgxpool.Pool) AttendanceService {
	return &attendanceService{pool: pool}
}

func (s *attendanceService) ClockIn(ctx context.Context, employeeID int64, projectID *int64, at time.Time) (*Attendance, error) {
	if at.IsZero() {
		return nil, validationf("clock in time is required")
	}
	day := at.Truncate(24 * time.Hour)

	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM employees WHERE id = $1 AND status = $2)",
		employeeID, string(EmployeeActive)).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check employee %d: %w", employeeID, err)
	}
	if !exists {
		return nil, notFoundf("active employee %d", employeeID)
	}

	var attendanceID int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO attendances (employee_id, project_id, date, clock_in, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (employee_id, date) DO NOTHING
		RETURNING id
	`, employeeID, projectID, day, at, string(AttendancePresent)).Scan(&attendanceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, conflictf("employee %d already has an attendance record for %s",
				employeeID, day.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to clock in employee %d: %w", employeeID, classifyPgError(err))
	}
	return s.getAttendance(ctx, attendanceID)
}

func (s *attendanceService) ClockOut(ctx context.Context, employeeID int64, at time.Time) (*Attendance, error) {
	if at.IsZero() {
		return nil, validationf("clock out time is required")
	}
	day := at.Truncate(24 * time.Hour)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var attendanceID int64
	var clockIn, clockOut *time.Time
	err = tx.QueryRow(ctx, `
		SELECT id, clock_in, clock_out
		FROM attendances
		WHERE employee_id = $1 AND date = $2
		FOR UPDATE
	`, employeeID, day).Scan(&attendanceID, &clockIn, &clockOut)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("attendance for employee %d on %s", employeeID, day.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to lock attendance: %w", classifyPgError(err))
	}
	if clockIn == nil {
		return nil, conflictf("employee %d has no clock in on %s", employeeID, day.Format("2006-01-02"))
	}
	if clockOut != nil {
		return nil, conflictf("employee %d already clocked out on %s", employeeID, day.Format("2006-01-02"))
	}

	hours, err := ComputeWorkHours(clockIn, &at)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx,
		"UPDATE attendances SET clock_out = $1, work_hours = $2, updated_at = NOW() WHERE id = $3",
		at, hours, attendanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to clock out employee %d: %w", employeeID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit clock out: %w", err)
	}
	return s.getAttendance(ctx, attendanceID)
}

func (s *attendanceService) MarkDay(ctx context.Context, in MarkAttendanceInput) (*Attendance, error) {
	switch in.Status {
	case AttendanceAbsent, AttendanceLeave, AttendanceSick, AttendanceHoliday:
	default:
		return nil, validationf("status %q cannot be marked without a clock pair", in.Status)
	}
	if in.Date.IsZero() {
		return nil, validationf("date is required")
	}
	day := in.Date.Truncate(24 * time.Hour)

	var attendanceID int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO attendances (employee_id, date, status, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (employee_id, date) DO NOTHING
		RETURNING id
	`, in.EmployeeID, day, string(in.Status), in.Notes).Scan(&attendanceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, conflictf("employee %d already has an attendance record for %s",
				in.EmployeeID, day.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to mark attendance: %w", classifyPgError(err))
	}
	return s.getAttendance(ctx, attendanceID)
}

func (s *attendanceService) getAttendance(ctx context.Context, attendanceID int64) (*Attendance, error) {
	var a Attendance
	err := s.pool.QueryRow(ctx, `
		SELECT id, employee_id, project_id, date, clock_in, clock_out, work_hours, status, COALESCE(notes, '')
		FROM attendances
		WHERE id = $1
	`, attendanceID).Scan(&a.ID, &a.EmployeeID, &a.ProjectID, &a.Date, &a.ClockIn, &a.ClockOut, &a.WorkHours, &a.Status, &a.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("attendance %d", attendanceID)
		}
		return nil, fmt.Errorf("failed to fetch attendance %d: %w", attendanceID, err)
	}
	return &a, nil
}

func (s *attendanceService) ListAttendance(ctx context.Context, filter AttendanceFilter) ([]Attendance, error) {
	query := `
		SELECT id, employee_id, project_id, date, clock_in, clock_out, work_hours, status, COALESCE(notes, '')
		FROM attendances
		WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.EmployeeID != nil {
		query += " AND employee_id = " + arg(*filter.EmployeeID)
	}
	if filter.ProjectID != nil {
		query += " AND project_id = " + arg(*filter.ProjectID)
	}
	if filter.DateFrom != nil {
		query += " AND date >= " + arg(*filter.DateFrom)
	}
	if filter.DateTo != nil {
		query += " AND date <= " + arg(*filter.DateTo)
	}
	query += " ORDER BY date DESC, employee_id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var records []Attendance
	for rows.Next() {
		var a Attendance
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.ProjectID, &a.Date, &a.ClockIn, &a.ClockOut, &a.WorkHours, &a.Status, &a.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance: %w", err)
	}
	return records, nil
}

func (s *attendanceService) PeriodSummary(ctx context.Context, employeeID int64, from, to time.Time) (*AttendancePeriodSummary, error) {
	summary := &AttendancePeriodSummary{EmployeeID: employeeID}
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(work_hours), 0),
		       COUNT(*) FILTER (WHERE status = 'present'),
		       COUNT(*) FILTER (WHERE status = 'absent'),
		       COUNT(*) FILTER (WHERE status IN ('leave', 'sick'))
		FROM attendances
		WHERE employee_id = $1 AND date BETWEEN $2 AND $3
	`, employeeID, from, to).Scan(&summary.TotalWorkHours, &summary.DaysPresent, &summary.DaysAbsent, &summary.DaysLeave)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize attendance for employee %d: %w", employeeID, err)
	}
	return summary, nil
}
