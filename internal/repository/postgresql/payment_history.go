package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/paymenthist"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/database"
)

type paymentHistoryRepository struct {
	db *database.DB
}

func NewPaymentHistoryRepository(db *database.DB) paymenthist.Repository {
	return &paymentHistoryRepository{db: db}
}

func (r *paymentHistoryRepository) ExistsForPayroll(ctx context.Context, payrollID string) (bool, error) {
	q := r.db.Querier(ctx)

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_history WHERE payroll_id = $1)`, payrollID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check payment history: %w", err)
	}

	return exists, nil
}

func (r *paymentHistoryRepository) Create(ctx context.Context, h paymenthist.PaymentHistory) error {
	q := r.db.Querier(ctx)

	// Unique on payroll_id; a duplicate insert is a no-op so the pay step
	// stays idempotent even when two invocations race.
	query := `
		INSERT INTO payment_history (id, payroll_id, batch_id, employee_id, amount, paid_by, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (payroll_id) DO NOTHING
	`
	_, err := q.Exec(ctx, query, h.ID, h.PayrollID, h.BatchID, h.EmployeeID, h.Amount, h.PaidBy, h.PaidAt)
	if err != nil {
		return fmt.Errorf("failed to create payment history: %w", err)
	}

	return nil
}

func (r *paymentHistoryRepository) ListByBatch(ctx context.Context, batchID string) ([]paymenthist.PaymentHistory, error) {
	q := r.db.Querier(ctx)

	query := `
		SELECT id, payroll_id, batch_id, employee_id, amount, paid_by, paid_at
		FROM payment_history
		WHERE batch_id = $1
		ORDER BY employee_id
	`

	rows, err := q.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment history: %w", err)
	}
	defer rows.Close()

	var histories []paymenthist.PaymentHistory
	for rows.Next() {
		var h paymenthist.PaymentHistory
		if err := rows.Scan(&h.ID, &h.PayrollID, &h.BatchID, &h.EmployeeID, &h.Amount, &h.PaidBy, &h.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment history: %w", err)
		}
		histories = append(histories, h)
	}

	return histories, nil
}
