// Package hr holds the narrow read interfaces through which the payroll
// engine consumes attendance, raise and adjustment data. The subsystems
// behind them are external collaborators; the engine only reads numbers.
package hr

import (
	"context"

	"github.com/shopspring/decimal"
)

// EmployeeProfile carries the scoping attributes item policies target.
type EmployeeProfile struct {
	ID           string
	DepartmentID string
	GradeID      string
}

// Roster resolves which employees a batch run covers.
type Roster interface {
	EligibleEmployeeIDs(ctx context.Context) ([]string, error)
	EmployeeProfile(ctx context.Context, employeeID string) (EmployeeProfile, error)
}

// AttendanceSource supplies the attendance-derived figures.
type AttendanceSource interface {
	BaseSalary(ctx context.Context, employeeID string) (decimal.Decimal, error)
	OvertimePay(ctx context.Context, employeeID, salaryMonth string) (decimal.Decimal, error)
}

// AdjustmentSource supplies approved raises and ad-hoc adjustments.
type AdjustmentSource interface {
	// ApprovedRaise returns the raised base salary effective for the month,
	// and whether such a raise exists.
	ApprovedRaise(ctx context.Context, employeeID, salaryMonth string) (decimal.Decimal, bool, error)
	// NetAdjustment returns the net approved ad-hoc adjustment for the month.
	// Positive nets count as allowance, negative as deduction.
	NetAdjustment(ctx context.Context, employeeID, salaryMonth string) (decimal.Decimal, error)
}
