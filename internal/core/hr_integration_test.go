package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"contractor-erp/internal/core"
)

func TestAttendance_ClockPair(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	employee := seedEmployee(t, pool)
	attendance := core.NewAttendanceService(pool)

	morning := time.Date(2026, 8, 3, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 3, 17, 30, 0, 0, time.UTC)

	record, err := attendance.ClockIn(ctx, employee.ID, nil, morning)
	if err != nil {
		t.Fatalf("ClockIn failed: %v", err)
	}
	if record.Status != core.AttendancePresent {
		t.Errorf("status = %s, want present", record.Status)
	}

	// Second clock in on the same day is refused
	if _, err := attendance.ClockIn(ctx, employee.ID, nil, morning.Add(time.Hour)); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict on double clock in, got %v", err)
	}

	record, err = attendance.ClockOut(ctx, employee.ID, evening)
	if err != nil {
		t.Fatalf("ClockOut failed: %v", err)
	}
	if !record.WorkHours.Equal(d("9.5")) {
		t.Errorf("work hours = %s, want 9.5", record.WorkHours)
	}

	// Second clock out is refused too
	if _, err := attendance.ClockOut(ctx, employee.ID, evening.Add(time.Hour)); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict on double clock out, got %v", err)
	}
}

func TestAttendance_MarkDayAndSummary(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	employee := seedEmployee(t, pool)
	attendance := core.NewAttendanceService(pool)

	// Monday worked, Tuesday sick
	if _, err := attendance.ClockIn(ctx, employee.ID, nil, time.Date(2026, 8, 3, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("ClockIn failed: %v", err)
	}
	if _, err := attendance.ClockOut(ctx, employee.ID, time.Date(2026, 8, 3, 16, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("ClockOut failed: %v", err)
	}
	if _, err := attendance.MarkDay(ctx, core.MarkAttendanceInput{
		EmployeeID: employee.ID,
		Date:       time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC),
		Status:     core.AttendanceSick,
	}); err != nil {
		t.Fatalf("MarkDay failed: %v", err)
	}

	// present is a clock-pair status, not markable by hand
	if _, err := attendance.MarkDay(ctx, core.MarkAttendanceInput{
		EmployeeID: employee.ID,
		Date:       time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC),
		Status:     core.AttendancePresent,
	}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation marking present, got %v", err)
	}

	summary, err := attendance.PeriodSummary(ctx, employee.ID,
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PeriodSummary failed: %v", err)
	}
	if summary.DaysPresent != 1 {
		t.Errorf("days present = %d, want 1", summary.DaysPresent)
	}
	if summary.DaysLeave != 1 {
		t.Errorf("days leave = %d, want 1 (sick counts as leave)", summary.DaysLeave)
	}
	if !summary.TotalWorkHours.Equal(d("8")) {
		t.Errorf("total work hours = %s, want 8", summary.TotalWorkHours)
	}
}

func TestExpense_ApprovalChargesProject(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	customer := seedCustomer(t, pool)
	employee := seedEmployee(t, pool)
	project := seedProject(t, pool, customer.ID)
	sequences := core.NewSequenceService(pool)
	projects := core.NewProjectService(pool, sequences)
	expenses := core.NewExpenseService(pool, sequences)

	expense, err := expenses.CreateExpense(ctx, core.CreateExpenseInput{
		ProjectID:   &project.ID,
		EmployeeID:  employee.ID,
		ExpenseDate: time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC),
		Category:    "transportation",
		Description: "Site visit fuel",
		Amount:      d("250000"),
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if expense.Status != core.ExpensePending {
		t.Fatalf("status = %s, want pending", expense.Status)
	}

	approved, err := expenses.ApproveExpense(ctx, expense.ID, employee.ID)
	if err != nil {
		t.Fatalf("ApproveExpense failed: %v", err)
	}
	if approved.Status != core.ExpenseApproved || approved.ApprovedAt == nil {
		t.Errorf("approval not recorded: %+v", approved)
	}

	charged, err := projects.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if !charged.ActualCost.Equal(d("250000")) {
		t.Errorf("project actual cost = %s, want 250000", charged.ActualCost)
	}

	// Double approval is refused
	if _, err := expenses.ApproveExpense(ctx, expense.ID, employee.ID); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict on second approval, got %v", err)
	}

	// Approved expenses move on to reimbursement and stop being deletable
	if err := expenses.DeleteExpense(ctx, expense.ID); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict deleting an approved expense, got %v", err)
	}
	reimbursed, err := expenses.ReimburseExpense(ctx, expense.ID)
	if err != nil {
		t.Fatalf("ReimburseExpense failed: %v", err)
	}
	if reimbursed.Status != core.ExpenseReimbursed {
		t.Errorf("status = %s, want reimbursed", reimbursed.Status)
	}
}

func TestExpense_RejectionLeavesProjectUntouched(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	customer := seedCustomer(t, pool)
	employee := seedEmployee(t, pool)
	project := seedProject(t, pool, customer.ID)
	sequences := core.NewSequenceService(pool)
	projects := core.NewProjectService(pool, sequences)
	expenses := core.NewExpenseService(pool, sequences)

	expense, err := expenses.CreateExpense(ctx, core.CreateExpenseInput{
		ProjectID:   &project.ID,
		EmployeeID:  employee.ID,
		ExpenseDate: time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC),
		Category:    "meals",
		Description: "Team lunch",
		Amount:      d("180000"),
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	rejected, err := expenses.RejectExpense(ctx, expense.ID, employee.ID)
	if err != nil {
		t.Fatalf("RejectExpense failed: %v", err)
	}
	if rejected.Status != core.ExpenseRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}

	fresh, err := projects.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if !fresh.ActualCost.IsZero() {
		t.Errorf("rejected expense charged the project: %s", fresh.ActualCost)
	}
}
