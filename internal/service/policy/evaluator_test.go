package policy

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/hr"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/policy"
)

func newTestEvaluator() *Evaluator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEvaluator(NewFormulaRegistry(), logger)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func baseTypePtr(t policy.BaseAmountType) *policy.BaseAmountType {
	return &t
}

func testEvalInput() EvalInput {
	return EvalInput{
		Employee: hr.EmployeeProfile{
			ID:           "emp-1",
			DepartmentID: "dept-eng",
			GradeID:      "grade-3",
		},
		SalaryMonth: "2025-12",
		BaseSalary:  decimal.NewFromInt(3_000_000),
		OvertimePay: decimal.NewFromInt(150_000),
	}
}

func fixedRule(id, code string, itemType payroll.ItemType, amount string, priority int) policy.ItemPolicy {
	return policy.ItemPolicy{
		ID:           id,
		ItemType:     itemType,
		ItemCode:     code,
		ItemName:     code,
		CalcMethod:   policy.CalcMethodFixed,
		FixedAmount:  decPtr(amount),
		RoundingUnit: 1,
		RoundingMode: policy.RoundingHalfUp,
		MonthFrom:    "2025-01",
		MonthTo:      "2025-12",
		Priority:     priority,
		Active:       true,
	}
}

func TestEvaluator_FixedAndRate(t *testing.T) {
	e := newTestEvaluator()

	rules := []policy.ItemPolicy{
		fixedRule("ip-1", "MEAL", payroll.ItemTypeAllowance, "250000", 10),
		{
			ID:             "ip-2",
			ItemType:       payroll.ItemTypeDeduction,
			ItemCode:       "PENSION",
			ItemName:       "Pension",
			CalcMethod:     policy.CalcMethodRate,
			Rate:           decPtr("0.1"),
			BaseAmountType: baseTypePtr(policy.BaseAmountBaseSalary),
			RoundingUnit:   1000,
			RoundingMode:   policy.RoundingHalfUp,
			MonthFrom:      "2025-01",
			MonthTo:        "2025-12",
			Priority:       20,
			Active:         true,
		},
	}

	result, err := e.Evaluate(rules, testEvalInput())
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	// 3,000,000 * 0.1 = 300,000, already a multiple of 1000
	assert.Equal(t, "MEAL", result.Items[0].ItemCode)
	assert.Equal(t, "250000", result.Items[0].Amount.String())
	assert.Equal(t, "PENSION", result.Items[1].ItemCode)
	assert.Equal(t, "300000", result.Items[1].Amount.String())
	assert.Equal(t, "250000", result.AllowanceTotal.String())
	assert.Equal(t, "300000", result.DeductionTotal.String())
}

func TestEvaluator_RoundingModes(t *testing.T) {
	e := newTestEvaluator()

	// 2,350,000 * 0.015 = 35,250 -> unit 100 quotient 352.5, an exact tie
	makeRule := func(mode policy.RoundingMode) []policy.ItemPolicy {
		return []policy.ItemPolicy{{
			ID:             "ip-1",
			ItemType:       payroll.ItemTypeDeduction,
			ItemCode:       "BPJS",
			ItemName:       "BPJS",
			CalcMethod:     policy.CalcMethodRate,
			Rate:           decPtr("0.015"),
			BaseAmountType: baseTypePtr(policy.BaseAmountBaseSalary),
			RoundingUnit:   100,
			RoundingMode:   mode,
			MonthFrom:      "2025-01",
			MonthTo:        "2025-12",
			Active:         true,
		}}
	}

	in := testEvalInput()
	in.BaseSalary = decimal.NewFromInt(2_350_000)

	cases := []struct {
		mode policy.RoundingMode
		want string
	}{
		{policy.RoundingHalfUp, "35300"}, // ties round away from zero
		{policy.RoundingUp, "35300"},
		{policy.RoundingDown, "35200"},
	}
	for _, tc := range cases {
		result, err := e.Evaluate(makeRule(tc.mode), in)
		require.NoError(t, err, string(tc.mode))
		require.Len(t, result.Items, 1, string(tc.mode))
		assert.Equal(t, tc.want, result.Items[0].Amount.String(), string(tc.mode))
	}
}

func TestEvaluator_RateOnOvertimeBase(t *testing.T) {
	e := newTestEvaluator()

	rules := []policy.ItemPolicy{{
		ID:             "ip-1",
		ItemType:       payroll.ItemTypeAllowance,
		ItemCode:       "OT_BONUS",
		ItemName:       "Overtime bonus",
		CalcMethod:     policy.CalcMethodRate,
		Rate:           decPtr("0.5"),
		BaseAmountType: baseTypePtr(policy.BaseAmountOvertimePay),
		RoundingUnit:   1,
		RoundingMode:   policy.RoundingHalfUp,
		MonthFrom:      "2025-01",
		MonthTo:        "2025-12",
		Active:         true,
	}}

	result, err := e.Evaluate(rules, testEvalInput())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "75000", result.Items[0].Amount.String())
}

func TestEvaluator_TaxCountsIntoDeductionTotal(t *testing.T) {
	e := newTestEvaluator()

	rules := []policy.ItemPolicy{
		fixedRule("ip-1", "PPH21", payroll.ItemTypeTax, "120000", 100),
		fixedRule("ip-2", "LOAN", payroll.ItemTypeDeduction, "80000", 50),
	}

	result, err := e.Evaluate(rules, testEvalInput())
	require.NoError(t, err)
	assert.Equal(t, "0", result.AllowanceTotal.String())
	assert.Equal(t, "200000", result.DeductionTotal.String())
}

func TestEvaluator_PriorityOrdering(t *testing.T) {
	e := newTestEvaluator()

	rules := []policy.ItemPolicy{
		fixedRule("ip-c", "THIRD", payroll.ItemTypeAllowance, "1", 30),
		fixedRule("ip-b", "SECOND", payroll.ItemTypeAllowance, "1", 20),
		fixedRule("ip-a", "FIRST", payroll.ItemTypeAllowance, "1", 10),
		// Same priority as SECOND, id breaks the tie
		fixedRule("ip-a2", "SECOND_TIE", payroll.ItemTypeAllowance, "1", 20),
	}

	result, err := e.Evaluate(rules, testEvalInput())
	require.NoError(t, err)
	require.Len(t, result.Items, 4)
	assert.Equal(t, "FIRST", result.Items[0].ItemCode)
	assert.Equal(t, "SECOND_TIE", result.Items[1].ItemCode)
	assert.Equal(t, "SECOND", result.Items[2].ItemCode)
	assert.Equal(t, "THIRD", result.Items[3].ItemCode)
}

func TestEvaluator_FiltersInactiveAndOutOfWindow(t *testing.T) {
	e := newTestEvaluator()

	inactive := fixedRule("ip-1", "INACTIVE", payroll.ItemTypeAllowance, "100", 1)
	inactive.Active = false

	expiredWindow := fixedRule("ip-2", "EXPIRED", payroll.ItemTypeAllowance, "100", 2)
	expiredWindow.MonthTo = "2025-06"

	future := fixedRule("ip-3", "FUTURE", payroll.ItemTypeAllowance, "100", 3)
	future.MonthFrom = "2026-01"
	future.MonthTo = "2026-12"

	kept := fixedRule("ip-4", "KEPT", payroll.ItemTypeAllowance, "100", 4)

	result, err := e.Evaluate([]policy.ItemPolicy{inactive, expiredWindow, future, kept}, testEvalInput())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "KEPT", result.Items[0].ItemCode)
}

func TestEvaluator_Targeting(t *testing.T) {
	e := newTestEvaluator()

	withTarget := func(code string, tt policy.TargetType, value string) policy.ItemPolicy {
		rule := fixedRule("ip-"+code, code, payroll.ItemTypeAllowance, "100", 1)
		rule.Targets = []policy.Target{{TargetType: tt, TargetValue: value}}
		return rule
	}

	rules := []policy.ItemPolicy{
		withTarget("BY_EMPLOYEE", policy.TargetTypeEmployee, "emp-1"),
		withTarget("OTHER_EMPLOYEE", policy.TargetTypeEmployee, "emp-2"),
		withTarget("BY_DEPARTMENT", policy.TargetTypeDepartment, "dept-eng"),
		withTarget("OTHER_DEPARTMENT", policy.TargetTypeDepartment, "dept-fin"),
		withTarget("BY_GRADE", policy.TargetTypeGrade, "grade-3"),
		withTarget("OTHER_GRADE", policy.TargetTypeGrade, "grade-9"),
		fixedRule("ip-universal", "UNIVERSAL", payroll.ItemTypeAllowance, "100", 1),
	}

	result, err := e.Evaluate(rules, testEvalInput())
	require.NoError(t, err)

	codes := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		codes = append(codes, item.ItemCode)
	}
	assert.ElementsMatch(t, []string{"BY_EMPLOYEE", "BY_DEPARTMENT", "BY_GRADE", "UNIVERSAL"}, codes)
}

func TestEvaluator_FormulaUnregisteredSkipped(t *testing.T) {
	e := newTestEvaluator()

	rules := []policy.ItemPolicy{{
		ID:           "ip-1",
		ItemType:     payroll.ItemTypeTax,
		ItemCode:     "CUSTOM_TAX",
		ItemName:     "Custom tax",
		CalcMethod:   policy.CalcMethodFormula,
		RoundingUnit: 1,
		RoundingMode: policy.RoundingHalfUp,
		MonthFrom:    "2025-01",
		MonthTo:      "2025-12",
		Active:       true,
	}}

	result, err := e.Evaluate(rules, testEvalInput())
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, "0", result.DeductionTotal.String())
}

func TestEvaluator_FormulaRegistered(t *testing.T) {
	registry := NewFormulaRegistry()
	registry.Register("PPH21", func(in FormulaInput) (decimal.Decimal, error) {
		// 5% of base, just enough shape for the test
		return in.BaseSalary.Mul(decimal.RequireFromString("0.05")), nil
	})
	e := NewEvaluator(registry, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rules := []policy.ItemPolicy{{
		ID:           "ip-1",
		ItemType:     payroll.ItemTypeTax,
		ItemCode:     "PPH21",
		ItemName:     "Income tax",
		CalcMethod:   policy.CalcMethodFormula,
		RoundingUnit: 1000,
		RoundingMode: policy.RoundingDown,
		MonthFrom:    "2025-01",
		MonthTo:      "2025-12",
		Active:       true,
	}}

	result, err := e.Evaluate(rules, testEvalInput())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "150000", result.Items[0].Amount.String())
	assert.Equal(t, "150000", result.DeductionTotal.String())
}

func TestEvaluator_FormulaErrorAborts(t *testing.T) {
	registry := NewFormulaRegistry()
	registry.Register("BROKEN", func(in FormulaInput) (decimal.Decimal, error) {
		return decimal.Zero, fmt.Errorf("missing bracket table")
	})
	e := NewEvaluator(registry, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rules := []policy.ItemPolicy{{
		ID:           "ip-1",
		ItemType:     payroll.ItemTypeTax,
		ItemCode:     "BROKEN",
		ItemName:     "Broken",
		CalcMethod:   policy.CalcMethodFormula,
		RoundingUnit: 1,
		RoundingMode: policy.RoundingHalfUp,
		MonthFrom:    "2025-01",
		MonthTo:      "2025-12",
		Active:       true,
	}}

	_, err := e.Evaluate(rules, testEvalInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing bracket table")
}

func TestEvaluator_InvalidRuleAborts(t *testing.T) {
	e := newTestEvaluator()

	missingRate := policy.ItemPolicy{
		ID:           "ip-1",
		ItemType:     payroll.ItemTypeDeduction,
		ItemCode:     "NO_RATE",
		ItemName:     "No rate",
		CalcMethod:   policy.CalcMethodRate,
		RoundingUnit: 1,
		RoundingMode: policy.RoundingHalfUp,
		MonthFrom:    "2025-01",
		MonthTo:      "2025-12",
		Active:       true,
	}
	_, err := e.Evaluate([]policy.ItemPolicy{missingRate}, testEvalInput())
	assert.ErrorIs(t, err, policy.ErrInvalidItemPolicy)

	badBase := missingRate
	badBase.Rate = decPtr("0.1")
	badBase.BaseAmountType = baseTypePtr(policy.BaseAmountType("NET_PAY"))
	_, err = e.Evaluate([]policy.ItemPolicy{badBase}, testEvalInput())
	assert.ErrorIs(t, err, policy.ErrUnsupportedBaseAmountType)

	badUnit := missingRate
	badUnit.Rate = decPtr("0.1")
	badUnit.BaseAmountType = baseTypePtr(policy.BaseAmountBaseSalary)
	badUnit.RoundingUnit = 0
	_, err = e.Evaluate([]policy.ItemPolicy{badUnit}, testEvalInput())
	assert.ErrorIs(t, err, policy.ErrInvalidRoundingUnit)
}
