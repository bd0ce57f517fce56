package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/batch"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/database"
)

type batchRepository struct {
	db *database.DB
}

func NewBatchRepository(db *database.DB) batch.Repository {
	return &batchRepository{db: db}
}

const batchColumns = `id, salary_month, status, created_by, created_at,
	approved_by, approved_at, paid_by, paid_at, closed_at`

func (r *batchRepository) Create(ctx context.Context, b batch.PayrollBatch) (batch.PayrollBatch, error) {
	q := r.db.Querier(ctx)

	query := `
		INSERT INTO payroll_batches (id, salary_month, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + batchColumns

	var created batch.PayrollBatch
	err := q.QueryRow(ctx, query, b.ID, b.SalaryMonth, b.Status, b.CreatedBy, b.CreatedAt).Scan(
		&created.ID, &created.SalaryMonth, &created.Status, &created.CreatedBy, &created.CreatedAt,
		&created.ApprovedBy, &created.ApprovedAt, &created.PaidBy, &created.PaidAt, &created.ClosedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "uk_payroll_batch_month") {
			return batch.PayrollBatch{}, batch.ErrDuplicateBatch
		}
		return batch.PayrollBatch{}, fmt.Errorf("failed to create payroll batch: %w", err)
	}

	return created, nil
}

func (r *batchRepository) GetByID(ctx context.Context, id string) (batch.PayrollBatch, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *batchRepository) GetByMonth(ctx context.Context, salaryMonth string) (batch.PayrollBatch, error) {
	return r.getBy(ctx, "salary_month = $1", salaryMonth)
}

func (r *batchRepository) getBy(ctx context.Context, where string, arg interface{}) (batch.PayrollBatch, error) {
	q := r.db.Querier(ctx)

	query := `SELECT ` + batchColumns + ` FROM payroll_batches WHERE ` + where

	var b batch.PayrollBatch
	err := q.QueryRow(ctx, query, arg).Scan(
		&b.ID, &b.SalaryMonth, &b.Status, &b.CreatedBy, &b.CreatedAt,
		&b.ApprovedBy, &b.ApprovedAt, &b.PaidBy, &b.PaidAt, &b.ClosedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return batch.PayrollBatch{}, batch.ErrBatchNotFound
		}
		return batch.PayrollBatch{}, fmt.Errorf("failed to get payroll batch: %w", err)
	}

	return b, nil
}

func (r *batchRepository) List(ctx context.Context) ([]batch.PayrollBatch, error) {
	q := r.db.Querier(ctx)

	query := `SELECT ` + batchColumns + ` FROM payroll_batches ORDER BY salary_month DESC`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll batches: %w", err)
	}
	defer rows.Close()

	var batches []batch.PayrollBatch
	for rows.Next() {
		var b batch.PayrollBatch
		if err := rows.Scan(
			&b.ID, &b.SalaryMonth, &b.Status, &b.CreatedBy, &b.CreatedAt,
			&b.ApprovedBy, &b.ApprovedAt, &b.PaidBy, &b.PaidAt, &b.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payroll batch: %w", err)
		}
		batches = append(batches, b)
	}

	return batches, nil
}

func (r *batchRepository) MarkCalculated(ctx context.Context, id string) error {
	q := r.db.Querier(ctx)

	// Guarded on READY so recalculation keeps CALCULATED batches in place.
	query := `
		UPDATE payroll_batches
		SET status = $1
		WHERE id = $2 AND status = $3
	`
	_, err := q.Exec(ctx, query, batch.StatusCalculated, id, batch.StatusReady)
	if err != nil {
		return fmt.Errorf("failed to mark batch calculated: %w", err)
	}
	return nil
}

func (r *batchRepository) Confirm(ctx context.Context, id, approvedBy string, at time.Time) (bool, error) {
	q := r.db.Querier(ctx)

	// Compare-and-swap on status: concurrent confirms cannot both succeed.
	query := `
		UPDATE payroll_batches
		SET status = $1, approved_by = $2, approved_at = $3
		WHERE id = $4 AND status = $5
	`
	tag, err := q.Exec(ctx, query, batch.StatusConfirmed, approvedBy, at, id, batch.StatusCalculated)
	if err != nil {
		return false, fmt.Errorf("failed to confirm payroll batch: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *batchRepository) Pay(ctx context.Context, id, paidBy string, at time.Time) (bool, error) {
	q := r.db.Querier(ctx)

	query := `
		UPDATE payroll_batches
		SET status = $1, paid_by = $2, paid_at = $3, closed_at = $3
		WHERE id = $4 AND status = $5
	`
	tag, err := q.Exec(ctx, query, batch.StatusPaid, paidBy, at, id, batch.StatusConfirmed)
	if err != nil {
		return false, fmt.Errorf("failed to pay payroll batch: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
