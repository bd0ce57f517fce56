package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/hr"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/database"
)

type hrRepository struct {
	db *database.DB
}

// NewHRRepository returns the roster, attendance and adjustment sources
// backed by the HR tables. One struct serves all three interfaces since
// they read from the same schema.
func NewHRRepository(db *database.DB) (hr.Roster, hr.AttendanceSource, hr.AdjustmentSource) {
	r := &hrRepository{db: db}
	return r, r, r
}

// ========== ROSTER ==========

func (r *hrRepository) EligibleEmployeeIDs(ctx context.Context) ([]string, error) {
	q := r.db.Querier(ctx)

	rows, err := q.Query(ctx,
		`SELECT id FROM employees WHERE employment_status = 'ACTIVE' ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible employees: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan employee id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func (r *hrRepository) EmployeeProfile(ctx context.Context, employeeID string) (hr.EmployeeProfile, error) {
	q := r.db.Querier(ctx)

	var p hr.EmployeeProfile
	err := q.QueryRow(ctx,
		`SELECT id, department_id, grade_id FROM employees WHERE id = $1`, employeeID,
	).Scan(&p.ID, &p.DepartmentID, &p.GradeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return hr.EmployeeProfile{}, hr.ErrEmployeeNotFound
		}
		return hr.EmployeeProfile{}, fmt.Errorf("failed to get employee profile: %w", err)
	}

	return p, nil
}

// ========== ATTENDANCE ==========

func (r *hrRepository) BaseSalary(ctx context.Context, employeeID string) (decimal.Decimal, error) {
	q := r.db.Querier(ctx)

	var base *decimal.Decimal
	err := q.QueryRow(ctx,
		`SELECT base_salary FROM employees WHERE id = $1`, employeeID,
	).Scan(&base)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, hr.ErrEmployeeNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to get base salary: %w", err)
	}
	if base == nil {
		return decimal.Zero, hr.ErrNoBaseSalary
	}

	return *base, nil
}

func (r *hrRepository) OvertimePay(ctx context.Context, employeeID, salaryMonth string) (decimal.Decimal, error) {
	q := r.db.Querier(ctx)

	var overtime decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT overtime_pay
		FROM attendance_summaries
		WHERE employee_id = $1 AND salary_month = $2
	`, employeeID, salaryMonth).Scan(&overtime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, hr.ErrNoAttendanceData
		}
		return decimal.Zero, fmt.Errorf("failed to get overtime pay: %w", err)
	}

	return overtime, nil
}

// ========== ADJUSTMENTS ==========

func (r *hrRepository) ApprovedRaise(ctx context.Context, employeeID, salaryMonth string) (decimal.Decimal, bool, error) {
	q := r.db.Querier(ctx)

	// The latest approved raise effective on or before the month wins.
	var raised decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT new_base_salary
		FROM salary_raises
		WHERE employee_id = $1 AND status = 'APPROVED' AND effective_month <= $2
		ORDER BY effective_month DESC
		LIMIT 1
	`, employeeID, salaryMonth).Scan(&raised)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to get approved raise: %w", err)
	}

	return raised, true, nil
}

func (r *hrRepository) NetAdjustment(ctx context.Context, employeeID, salaryMonth string) (decimal.Decimal, error) {
	q := r.db.Querier(ctx)

	var net decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM payroll_adjustments
		WHERE employee_id = $1 AND salary_month = $2 AND status = 'APPROVED'
	`, employeeID, salaryMonth).Scan(&net)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum adjustments: %w", err)
	}

	return net, nil
}
