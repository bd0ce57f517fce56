package policy

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/hr"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/policy"
)

// EvalInput carries one employee's figures for one salary month.
type EvalInput struct {
	Employee    hr.EmployeeProfile
	SalaryMonth string
	BaseSalary  decimal.Decimal
	OvertimePay decimal.Decimal
}

// EvalResult is the resolved line breakdown plus the totals the payroll
// record stores. TAX lines count into the deduction total.
type EvalResult struct {
	Items          []payroll.Item
	AllowanceTotal decimal.Decimal
	DeductionTotal decimal.Decimal
}

// Evaluator computes allowance/deduction amounts from item policy rules.
type Evaluator struct {
	formulas *FormulaRegistry
	logger   *slog.Logger
}

func NewEvaluator(formulas *FormulaRegistry, logger *slog.Logger) *Evaluator {
	return &Evaluator{formulas: formulas, logger: logger}
}

// Evaluate applies every rule whose validity window covers the month, whose
// active flag is set and whose targets include the employee. Rules run in
// ascending priority order, id as tiebreak. A malformed rule aborts the whole
// evaluation; the per-employee calculator absorbs that into a FAILED row.
func (e *Evaluator) Evaluate(rules []policy.ItemPolicy, in EvalInput) (EvalResult, error) {
	applicable := make([]policy.ItemPolicy, 0, len(rules))
	for _, rule := range rules {
		if !rule.Active || !rule.CoversMonth(in.SalaryMonth) {
			continue
		}
		if !targetsInclude(rule.Targets, in.Employee) {
			continue
		}
		applicable = append(applicable, rule)
	}

	sort.Slice(applicable, func(i, j int) bool {
		if applicable[i].Priority != applicable[j].Priority {
			return applicable[i].Priority < applicable[j].Priority
		}
		return applicable[i].ID < applicable[j].ID
	})

	result := EvalResult{
		AllowanceTotal: decimal.Zero,
		DeductionTotal: decimal.Zero,
	}

	for _, rule := range applicable {
		amount, skip, err := e.amountFor(rule, in)
		if err != nil {
			return EvalResult{}, fmt.Errorf("item policy %s (%s): %w", rule.ItemCode, rule.ID, err)
		}
		if skip {
			continue
		}

		result.Items = append(result.Items, payroll.Item{
			ItemType: rule.ItemType,
			ItemCode: rule.ItemCode,
			ItemName: rule.ItemName,
			Amount:   amount,
			Taxable:  rule.Taxable,
		})

		switch rule.ItemType {
		case payroll.ItemTypeAllowance:
			result.AllowanceTotal = result.AllowanceTotal.Add(amount)
		case payroll.ItemTypeDeduction, payroll.ItemTypeTax:
			result.DeductionTotal = result.DeductionTotal.Add(amount)
		}
	}

	return result, nil
}

func (e *Evaluator) amountFor(rule policy.ItemPolicy, in EvalInput) (amount decimal.Decimal, skip bool, err error) {
	switch rule.CalcMethod {
	case policy.CalcMethodFixed:
		if rule.FixedAmount == nil {
			return decimal.Zero, false, fmt.Errorf("%w: fixed amount missing", policy.ErrInvalidItemPolicy)
		}
		return *rule.FixedAmount, false, nil

	case policy.CalcMethodRate:
		if rule.Rate == nil || rule.Rate.IsNegative() {
			return decimal.Zero, false, fmt.Errorf("%w: rate missing or negative", policy.ErrInvalidItemPolicy)
		}
		base, err := resolveBase(rule.BaseAmountType, in)
		if err != nil {
			return decimal.Zero, false, err
		}
		raw := rule.Rate.Mul(base)
		rounded, err := roundToUnit(raw, rule.RoundingUnit, rule.RoundingMode)
		if err != nil {
			return decimal.Zero, false, err
		}
		return rounded, false, nil

	case policy.CalcMethodFormula:
		fn, ok := e.formulas.Lookup(rule.ItemCode)
		if !ok {
			e.logger.Warn("skipping formula item policy with no registered function",
				slog.String("item_code", rule.ItemCode),
				slog.String("item_policy_id", rule.ID),
			)
			return decimal.Zero, true, nil
		}
		amount, err := fn(FormulaInput{
			Employee:    in.Employee,
			SalaryMonth: in.SalaryMonth,
			BaseSalary:  in.BaseSalary,
			OvertimePay: in.OvertimePay,
		})
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("formula %s: %w", rule.ItemCode, err)
		}
		rounded, err := roundToUnit(amount, rule.RoundingUnit, rule.RoundingMode)
		if err != nil {
			return decimal.Zero, false, err
		}
		return rounded, false, nil

	default:
		return decimal.Zero, false, fmt.Errorf("%w: unknown calc method %q", policy.ErrInvalidItemPolicy, rule.CalcMethod)
	}
}

func resolveBase(baseType *policy.BaseAmountType, in EvalInput) (decimal.Decimal, error) {
	if baseType == nil {
		return decimal.Zero, fmt.Errorf("%w: base amount type missing", policy.ErrInvalidItemPolicy)
	}
	switch *baseType {
	case policy.BaseAmountBaseSalary:
		return in.BaseSalary, nil
	case policy.BaseAmountOvertimePay:
		return in.OvertimePay, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", policy.ErrUnsupportedBaseAmountType, *baseType)
	}
}

// roundToUnit rounds amount to a multiple of unit. HALF_UP ties round away
// from zero, UP rounds away from zero, DOWN truncates toward zero.
func roundToUnit(amount decimal.Decimal, unit int64, mode policy.RoundingMode) (decimal.Decimal, error) {
	if unit < 1 {
		return decimal.Zero, policy.ErrInvalidRoundingUnit
	}
	u := decimal.NewFromInt(unit)
	q := amount.Div(u)
	switch mode {
	case policy.RoundingHalfUp:
		q = q.Round(0)
	case policy.RoundingUp:
		q = q.RoundUp(0)
	case policy.RoundingDown:
		q = q.RoundDown(0)
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", policy.ErrInvalidRoundingMode, mode)
	}
	return q.Mul(u), nil
}

func targetsInclude(targets []policy.Target, emp hr.EmployeeProfile) bool {
	if len(targets) == 0 {
		return true // no targets means universal applicability
	}
	for _, tg := range targets {
		switch tg.TargetType {
		case policy.TargetTypeEmployee:
			if tg.TargetValue == emp.ID {
				return true
			}
		case policy.TargetTypeDepartment:
			if tg.TargetValue == emp.DepartmentID {
				return true
			}
		case policy.TargetTypeGrade:
			if tg.TargetValue == emp.GradeID {
				return true
			}
		}
	}
	return false
}
