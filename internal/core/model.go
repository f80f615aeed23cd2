package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
)

type Customer struct {
	ID            int64          `json:"id"`
	Code          string         `json:"code"`
	Name          string         `json:"name"`
	CompanyName   string         `json:"company_name,omitempty"`
	Email         string         `json:"email,omitempty"`
	Phone         string         `json:"phone,omitempty"`
	Address       string         `json:"address,omitempty"`
	City          string         `json:"city,omitempty"`
	TaxNumber     string         `json:"tax_number,omitempty"`
	ContactPerson string         `json:"contact_person,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	Status        CustomerStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "draft"
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectOnHold     ProjectStatus = "on_hold"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

type ProjectType string

const (
	ProjectElectrical ProjectType = "electrical"
	ProjectMechanical ProjectType = "mechanical"
	ProjectBoth       ProjectType = "both"
)

// Project is the cost-bearing aggregate: actual_cost accumulates material
// issues from the stock ledger and never goes below zero.
type Project struct {
	ID                 int64           `json:"id"`
	CustomerID         int64           `json:"customer_id"`
	ProjectCode        string          `json:"project_code"`
	ProjectName        string          `json:"project_name"`
	ProjectType        ProjectType     `json:"project_type"`
	Description        string          `json:"description,omitempty"`
	Location           string          `json:"location,omitempty"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	EstimatedBudget    decimal.Decimal `json:"estimated_budget"`
	ActualCost         decimal.Decimal `json:"actual_cost"`
	Status             ProjectStatus   `json:"status"`
	ProgressPercentage int             `json:"progress_percentage"`
	ProjectManagerID   *int64          `json:"project_manager_id,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
	EmployeeResigned EmployeeStatus = "resigned"
)

type Employee struct {
	ID           int64            `json:"id"`
	EmployeeCode string           `json:"employee_code"`
	Name         string           `json:"name"`
	Phone        string           `json:"phone,omitempty"`
	Address      string           `json:"address,omitempty"`
	Position     string           `json:"position"`
	Department   string           `json:"department"`
	HireDate     time.Time        `json:"hire_date"`
	HourlyRate   *decimal.Decimal `json:"hourly_rate,omitempty"`
	Status       EmployeeStatus   `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLeave   AttendanceStatus = "leave"
	AttendanceSick    AttendanceStatus = "sick"
	AttendanceHoliday AttendanceStatus = "holiday"
)

type Attendance struct {
	ID         int64            `json:"id"`
	EmployeeID int64            `json:"employee_id"`
	ProjectID  *int64           `json:"project_id,omitempty"`
	Date       time.Time        `json:"date"`
	ClockIn    *time.Time       `json:"clock_in,omitempty"`
	ClockOut   *time.Time       `json:"clock_out,omitempty"`
	WorkHours  decimal.Decimal  `json:"work_hours"`
	Status     AttendanceStatus `json:"status"`
	Notes      string           `json:"notes,omitempty"`
}

type ExpenseStatus string

const (
	ExpensePending    ExpenseStatus = "pending"
	ExpenseApproved   ExpenseStatus = "approved"
	ExpenseRejected   ExpenseStatus = "rejected"
	ExpenseReimbursed ExpenseStatus = "reimbursed"
)

type Expense struct {
	ID            int64           `json:"id"`
	ProjectID     *int64          `json:"project_id,omitempty"`
	EmployeeID    int64           `json:"employee_id"`
	ExpenseNumber string          `json:"expense_number"`
	ExpenseDate   time.Time       `json:"expense_date"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Status        ExpenseStatus   `json:"status"`
	ApprovedBy    *int64          `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
