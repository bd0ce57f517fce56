package batch

import (
	"context"
	"time"
)

// Repository - data access for payroll_batches.
//
// Confirm and Pay are status-guarded conditional updates: they only apply when
// the stored status still matches the expected stage and report whether a row
// was updated. Two concurrent confirm calls therefore cannot both succeed.
type Repository interface {
	Create(ctx context.Context, b PayrollBatch) (PayrollBatch, error)
	GetByID(ctx context.Context, id string) (PayrollBatch, error)
	GetByMonth(ctx context.Context, salaryMonth string) (PayrollBatch, error)
	List(ctx context.Context) ([]PayrollBatch, error)

	// MarkCalculated moves READY to CALCULATED. Already-calculated batches are
	// left untouched (recalculation keeps the batch at CALCULATED).
	MarkCalculated(ctx context.Context, id string) error
	// Confirm moves CALCULATED to CONFIRMED recording the approver.
	Confirm(ctx context.Context, id, approvedBy string, at time.Time) (bool, error)
	// Pay moves CONFIRMED to PAID recording the payer and closing the batch.
	Pay(ctx context.Context, id, paidBy string, at time.Time) (bool, error)
}
