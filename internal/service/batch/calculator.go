package batch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/batch"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/hr"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/policy"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/database"
	policyService "github.com/cmlabs-hris/payroll-batch-go/internal/service/policy"
)

const (
	itemCodeOvertime   = "OVERTIME"
	itemCodeAdjustment = "ADJUSTMENT"
)

// Calculator computes and persists one employee's payroll for a batch. Every
// failure is absorbed into a FAILED payroll row so one employee's data
// problem cannot abort the batch.
type Calculator struct {
	db          database.TxRunner
	payrolls    payroll.Repository
	roster      hr.Roster
	attendance  hr.AttendanceSource
	adjustments hr.AdjustmentSource
	evaluator   *policyService.Evaluator
	logger      *slog.Logger
}

func NewCalculator(
	db database.TxRunner,
	payrolls payroll.Repository,
	roster hr.Roster,
	attendance hr.AttendanceSource,
	adjustments hr.AdjustmentSource,
	evaluator *policyService.Evaluator,
	logger *slog.Logger,
) *Calculator {
	return &Calculator{
		db:          db,
		payrolls:    payrolls,
		roster:      roster,
		attendance:  attendance,
		adjustments: adjustments,
		evaluator:   evaluator,
		logger:      logger,
	}
}

// CalculateOne runs the full read-compute-write sequence for one employee and
// reports whether the payroll ended up CALCULATED. It never returns an error:
// a locked payroll is a silent no-op (and counts as success), everything else
// is written as a FAILED row with the reason.
func (c *Calculator) CalculateOne(ctx context.Context, b batch.PayrollBatch, rules []policy.ItemPolicy, employeeID string) bool {
	existing, err := c.payrolls.GetByEmployeeMonth(ctx, employeeID, b.SalaryMonth)
	if err == nil && existing.Locked() {
		// Confirmed data is immutable, skip entirely.
		return true
	}
	if err != nil && !errors.Is(err, payroll.ErrPayrollNotFound) {
		c.markFailed(ctx, b, employeeID, err)
		return false
	}

	p, items, err := c.compute(ctx, b, rules, employeeID)
	if err != nil {
		c.markFailed(ctx, b, employeeID, err)
		return false
	}

	err = c.db.WithTx(ctx, func(ctx context.Context) error {
		upserted, err := c.payrolls.Upsert(ctx, p)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].ID = uuid.NewString()
			items[i].PayrollID = upserted.ID
		}
		return c.payrolls.ReplaceItems(ctx, upserted.ID, items)
	})
	if err != nil {
		if errors.Is(err, payroll.ErrPayrollLocked) {
			// Row got confirmed between the lookup and the write; locked
			// data stays untouched.
			return true
		}
		c.markFailed(ctx, b, employeeID, err)
		return false
	}

	return true
}

func (c *Calculator) compute(ctx context.Context, b batch.PayrollBatch, rules []policy.ItemPolicy, employeeID string) (payroll.Payroll, []payroll.Item, error) {
	profile, err := c.roster.EmployeeProfile(ctx, employeeID)
	if err != nil {
		return payroll.Payroll{}, nil, err
	}

	baseSalary, err := c.attendance.BaseSalary(ctx, employeeID)
	if err != nil {
		return payroll.Payroll{}, nil, err
	}
	if raised, ok, err := c.adjustments.ApprovedRaise(ctx, employeeID, b.SalaryMonth); err != nil {
		return payroll.Payroll{}, nil, err
	} else if ok {
		baseSalary = raised
	}

	overtimePay, err := c.attendance.OvertimePay(ctx, employeeID, b.SalaryMonth)
	if err != nil {
		return payroll.Payroll{}, nil, err
	}

	result, err := c.evaluator.Evaluate(rules, policyService.EvalInput{
		Employee:    profile,
		SalaryMonth: b.SalaryMonth,
		BaseSalary:  baseSalary,
		OvertimePay: overtimePay,
	})
	if err != nil {
		return payroll.Payroll{}, nil, err
	}

	allowanceTotal := result.AllowanceTotal
	deductionTotal := result.DeductionTotal
	items := result.Items

	adjustment, err := c.adjustments.NetAdjustment(ctx, employeeID, b.SalaryMonth)
	if err != nil {
		return payroll.Payroll{}, nil, err
	}
	if adjustment.IsPositive() {
		allowanceTotal = allowanceTotal.Add(adjustment)
		items = append(items, payroll.Item{
			ItemType: payroll.ItemTypeAllowance,
			ItemCode: itemCodeAdjustment,
			ItemName: "Approved adjustment",
			Amount:   adjustment,
		})
	} else if adjustment.IsNegative() {
		deductionTotal = deductionTotal.Add(adjustment.Abs())
		items = append(items, payroll.Item{
			ItemType: payroll.ItemTypeDeduction,
			ItemCode: itemCodeAdjustment,
			ItemName: "Approved adjustment",
			Amount:   adjustment.Abs(),
		})
	}

	// The OVERTIME line mirrors the overtime figure in the breakdown. It is
	// not part of allowanceTotal: overtime already enters totalPay on its own.
	if overtimePay.IsPositive() {
		items = append(items, payroll.Item{
			ItemType: payroll.ItemTypeAllowance,
			ItemCode: itemCodeOvertime,
			ItemName: "Overtime pay",
			Amount:   overtimePay,
		})
	}

	totalPay := baseSalary.Add(overtimePay).Add(allowanceTotal).Sub(deductionTotal)

	p := payroll.Payroll{
		ID:             uuid.NewString(),
		BatchID:        b.ID,
		EmployeeID:     employeeID,
		SalaryMonth:    b.SalaryMonth,
		BaseSalary:     baseSalary,
		OvertimePay:    overtimePay,
		AllowanceTotal: allowanceTotal,
		DeductionTotal: deductionTotal,
		TotalPay:       totalPay,
		Status:         payroll.StatusCalculated,
	}

	return p, items, nil
}

// markFailed records the failure on the payroll row so the operator can see
// and fix it. A locked row silently drops the failure.
func (c *Calculator) markFailed(ctx context.Context, b batch.PayrollBatch, employeeID string, cause error) {
	msg := cause.Error()
	failed := payroll.Payroll{
		ID:             uuid.NewString(),
		BatchID:        b.ID,
		EmployeeID:     employeeID,
		SalaryMonth:    b.SalaryMonth,
		BaseSalary:     decimal.Zero,
		OvertimePay:    decimal.Zero,
		AllowanceTotal: decimal.Zero,
		DeductionTotal: decimal.Zero,
		TotalPay:       decimal.Zero,
		Status:         payroll.StatusFailed,
		ErrorMessage:   &msg,
	}

	err := c.db.WithTx(ctx, func(ctx context.Context) error {
		upserted, err := c.payrolls.Upsert(ctx, failed)
		if err != nil {
			return err
		}
		return c.payrolls.ReplaceItems(ctx, upserted.ID, nil)
	})
	if err != nil && !errors.Is(err, payroll.ErrPayrollLocked) {
		c.logger.Error("failed to record payroll calculation failure",
			slog.String("batch_id", b.ID),
			slog.String("employee_id", employeeID),
			slog.String("cause", msg),
			slog.Any("error", err),
		)
		return
	}

	c.logger.Warn("payroll calculation failed for employee",
		slog.String("batch_id", b.ID),
		slog.String("employee_id", employeeID),
		slog.String("cause", msg),
	)
}
