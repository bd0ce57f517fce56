package batch

import "time"

// Status enum. A batch only ever moves forward through these stages.
type Status string

const (
	StatusReady      Status = "READY"
	StatusCalculated Status = "CALCULATED"
	StatusConfirmed  Status = "CONFIRMED"
	StatusPaid       Status = "PAID"
)

// Locked reports whether the batch forbids recalculation.
func (s Status) Locked() bool {
	return s == StatusConfirmed || s == StatusPaid
}

// PayrollBatch - one payroll processing run per salary month (unique on month).
type PayrollBatch struct {
	ID          string
	SalaryMonth string // "2025-12"
	Status      Status
	CreatedBy   string
	CreatedAt   time.Time
	ApprovedBy  *string
	ApprovedAt  *time.Time
	PaidBy      *string
	PaidAt      *time.Time
	ClosedAt    *time.Time
}
