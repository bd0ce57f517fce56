package paymenthist

import "context"

// Repository - data access for payment_history.
type Repository interface {
	ExistsForPayroll(ctx context.Context, payrollID string) (bool, error)
	// Create inserts the ledger row. Inserting twice for the same payroll is
	// a no-op, which makes the pay step idempotent.
	Create(ctx context.Context, h PaymentHistory) error
	ListByBatch(ctx context.Context, batchID string) ([]PaymentHistory, error)
}
