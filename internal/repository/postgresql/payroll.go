package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/database"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.Repository {
	return &payrollRepository{db: db}
}

const payrollColumns = `id, batch_id, employee_id, salary_month, base_salary, overtime_pay,
	allowance_total, deduction_total, total_pay, status, error_message, created_at, updated_at`

func (r *payrollRepository) GetByEmployeeMonth(ctx context.Context, employeeID, salaryMonth string) (payroll.Payroll, error) {
	q := r.db.Querier(ctx)

	query := `SELECT ` + payrollColumns + ` FROM payrolls WHERE employee_id = $1 AND salary_month = $2`

	var p payroll.Payroll
	err := q.QueryRow(ctx, query, employeeID, salaryMonth).Scan(
		&p.ID, &p.BatchID, &p.EmployeeID, &p.SalaryMonth, &p.BaseSalary, &p.OvertimePay,
		&p.AllowanceTotal, &p.DeductionTotal, &p.TotalPay, &p.Status, &p.ErrorMessage,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Payroll{}, payroll.ErrPayrollNotFound
		}
		return payroll.Payroll{}, fmt.Errorf("failed to get payroll: %w", err)
	}

	return p, nil
}

func (r *payrollRepository) Upsert(ctx context.Context, p payroll.Payroll) (payroll.Payroll, error) {
	q := r.db.Querier(ctx)

	// The WHERE on the conflict branch keeps CONFIRMED rows untouched; the
	// statement then returns no row and the caller sees ErrPayrollLocked.
	query := `
		INSERT INTO payrolls (
			id, batch_id, employee_id, salary_month, base_salary, overtime_pay,
			allowance_total, deduction_total, total_pay, status, error_message,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (employee_id, salary_month) DO UPDATE SET
			batch_id = EXCLUDED.batch_id,
			base_salary = EXCLUDED.base_salary,
			overtime_pay = EXCLUDED.overtime_pay,
			allowance_total = EXCLUDED.allowance_total,
			deduction_total = EXCLUDED.deduction_total,
			total_pay = EXCLUDED.total_pay,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			updated_at = NOW()
		WHERE payrolls.status <> 'CONFIRMED'
		RETURNING ` + payrollColumns

	var saved payroll.Payroll
	err := q.QueryRow(ctx, query,
		p.ID, p.BatchID, p.EmployeeID, p.SalaryMonth, p.BaseSalary, p.OvertimePay,
		p.AllowanceTotal, p.DeductionTotal, p.TotalPay, p.Status, p.ErrorMessage,
	).Scan(
		&saved.ID, &saved.BatchID, &saved.EmployeeID, &saved.SalaryMonth, &saved.BaseSalary, &saved.OvertimePay,
		&saved.AllowanceTotal, &saved.DeductionTotal, &saved.TotalPay, &saved.Status, &saved.ErrorMessage,
		&saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Payroll{}, payroll.ErrPayrollLocked
		}
		return payroll.Payroll{}, fmt.Errorf("failed to upsert payroll: %w", err)
	}

	return saved, nil
}

func (r *payrollRepository) ListByBatch(ctx context.Context, batchID string) ([]payroll.Payroll, error) {
	q := r.db.Querier(ctx)

	query := `SELECT ` + payrollColumns + ` FROM payrolls WHERE batch_id = $1 ORDER BY employee_id`

	rows, err := q.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payrolls: %w", err)
	}
	defer rows.Close()

	var payrolls []payroll.Payroll
	for rows.Next() {
		var p payroll.Payroll
		if err := rows.Scan(
			&p.ID, &p.BatchID, &p.EmployeeID, &p.SalaryMonth, &p.BaseSalary, &p.OvertimePay,
			&p.AllowanceTotal, &p.DeductionTotal, &p.TotalPay, &p.Status, &p.ErrorMessage,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payroll: %w", err)
		}
		payrolls = append(payrolls, p)
	}

	return payrolls, nil
}

func (r *payrollRepository) CountByBatch(ctx context.Context, batchID string) (int, int, error) {
	q := r.db.Querier(ctx)

	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $2)
		FROM payrolls
		WHERE batch_id = $1
	`

	var total, failed int
	if err := q.QueryRow(ctx, query, batchID, payroll.StatusFailed).Scan(&total, &failed); err != nil {
		return 0, 0, fmt.Errorf("failed to count payrolls: %w", err)
	}

	return total, failed, nil
}

func (r *payrollRepository) ConfirmByBatch(ctx context.Context, batchID string) error {
	q := r.db.Querier(ctx)

	query := `
		UPDATE payrolls
		SET status = $1, updated_at = NOW()
		WHERE batch_id = $2 AND status = $3
	`
	_, err := q.Exec(ctx, query, payroll.StatusConfirmed, batchID, payroll.StatusCalculated)
	if err != nil {
		return fmt.Errorf("failed to confirm payrolls: %w", err)
	}
	return nil
}

func (r *payrollRepository) ReplaceItems(ctx context.Context, payrollID string, items []payroll.Item) error {
	q := r.db.Querier(ctx)

	if _, err := q.Exec(ctx, `DELETE FROM payroll_items WHERE payroll_id = $1`, payrollID); err != nil {
		return fmt.Errorf("failed to delete payroll items: %w", err)
	}

	query := `
		INSERT INTO payroll_items (id, payroll_id, item_type, item_code, item_name, amount, taxable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	for _, item := range items {
		_, err := q.Exec(ctx, query,
			item.ID, payrollID, item.ItemType, item.ItemCode, item.ItemName, item.Amount, item.Taxable,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payroll item %s: %w", item.ItemCode, err)
		}
	}

	return nil
}

func (r *payrollRepository) ListItems(ctx context.Context, payrollID string) ([]payroll.Item, error) {
	q := r.db.Querier(ctx)

	query := `
		SELECT id, payroll_id, item_type, item_code, item_name, amount, taxable, created_at
		FROM payroll_items
		WHERE payroll_id = $1
		ORDER BY item_type, item_code
	`

	rows, err := q.Query(ctx, query, payrollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll items: %w", err)
	}
	defer rows.Close()

	var items []payroll.Item
	for rows.Next() {
		var item payroll.Item
		if err := rows.Scan(
			&item.ID, &item.PayrollID, &item.ItemType, &item.ItemCode, &item.ItemName,
			&item.Amount, &item.Taxable, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payroll item: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}
