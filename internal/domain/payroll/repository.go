package payroll

import "context"

// Repository - data access for payrolls and payroll_items.
type Repository interface {
	GetByEmployeeMonth(ctx context.Context, employeeID, salaryMonth string) (Payroll, error)
	// Upsert writes the payroll keyed on (employee_id, salary_month). It must
	// refuse to touch a CONFIRMED row and return ErrPayrollLocked instead.
	Upsert(ctx context.Context, p Payroll) (Payroll, error)
	ListByBatch(ctx context.Context, batchID string) ([]Payroll, error)
	// CountByBatch returns total and FAILED payroll counts under a batch.
	CountByBatch(ctx context.Context, batchID string) (total int, failed int, err error)
	// ConfirmByBatch bulk-locks every CALCULATED payroll under the batch.
	ConfirmByBatch(ctx context.Context, batchID string) error

	// ReplaceItems rewrites the full line breakdown of a payroll.
	ReplaceItems(ctx context.Context, payrollID string, items []Item) error
	ListItems(ctx context.Context, payrollID string) ([]Item, error)
}
