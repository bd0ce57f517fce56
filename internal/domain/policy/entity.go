package policy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/payroll"
)

// Status enum. DRAFT policies are editable, ACTIVE/EXPIRED are not.
type Status string

const (
	StatusDraft   Status = "DRAFT"
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"
)

// CalcMethod enum
type CalcMethod string

const (
	CalcMethodFixed   CalcMethod = "FIXED"
	CalcMethodRate    CalcMethod = "RATE"
	CalcMethodFormula CalcMethod = "FORMULA"
)

// RoundingMode enum. HalfUp rounds half away from zero.
type RoundingMode string

const (
	RoundingHalfUp RoundingMode = "HALF_UP"
	RoundingUp     RoundingMode = "UP"
	RoundingDown   RoundingMode = "DOWN"
)

// BaseAmountType names the figure a RATE item multiplies.
type BaseAmountType string

const (
	BaseAmountBaseSalary  BaseAmountType = "BASE_SALARY"
	BaseAmountOvertimePay BaseAmountType = "OVERTIME_PAY"
)

// ItemTypeFromString maps a request value to a payroll item type,
// returning "" when unknown.
func ItemTypeFromString(s string) payroll.ItemType {
	switch payroll.ItemType(s) {
	case payroll.ItemTypeAllowance, payroll.ItemTypeDeduction, payroll.ItemTypeTax:
		return payroll.ItemType(s)
	}
	return ""
}

// IsSupportedBaseAmountType reports whether the evaluator can resolve the
// named base figure.
func IsSupportedBaseAmountType(s string) bool {
	switch BaseAmountType(s) {
	case BaseAmountBaseSalary, BaseAmountOvertimePay:
		return true
	}
	return false
}

// TargetType enum
type TargetType string

const (
	TargetTypeEmployee   TargetType = "EMPLOYEE"
	TargetTypeDepartment TargetType = "DEPARTMENT"
	TargetTypeGrade      TargetType = "GRADE"
)

// Policy - a versioned, date-scoped bundle of item rules and configuration
// values. At calculation time the engine resolves the single ACTIVE policy
// whose [SalaryMonthFrom, SalaryMonthTo] window covers the month.
type Policy struct {
	ID              string
	PolicyName      string
	Status          Status
	SalaryMonthFrom string
	SalaryMonthTo   string
	Active          bool
	Items           []ItemPolicy
	Configs         map[string]string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CoversMonth reports whether the policy window includes the salary month.
// Zero-padded "YYYY-MM" strings compare chronologically.
func (p Policy) CoversMonth(salaryMonth string) bool {
	return p.SalaryMonthFrom <= salaryMonth && salaryMonth <= p.SalaryMonthTo
}

// ItemPolicy - one allowance/deduction rule under a policy.
type ItemPolicy struct {
	ID             string           `json:"id"`
	PolicyID       string           `json:"policy_id"`
	ItemType       payroll.ItemType `json:"item_type"`
	ItemCode       string           `json:"item_code"`
	ItemName       string           `json:"item_name"`
	CalcMethod     CalcMethod       `json:"calc_method"`
	FixedAmount    *decimal.Decimal `json:"fixed_amount,omitempty"` // required iff FIXED
	Rate           *decimal.Decimal `json:"rate,omitempty"`         // required iff RATE, >= 0
	BaseAmountType *BaseAmountType  `json:"base_amount_type,omitempty"`
	RoundingUnit   int64            `json:"rounding_unit"` // >= 1
	RoundingMode   RoundingMode     `json:"rounding_mode"`
	MonthFrom      string           `json:"month_from"`
	MonthTo        string           `json:"month_to"`
	Priority       int              `json:"priority"` // lower evaluates first
	Taxable        bool             `json:"taxable"`
	Active         bool             `json:"active"`
	Targets        []Target         `json:"targets,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// CoversMonth reports whether the item validity window includes the month.
func (i ItemPolicy) CoversMonth(salaryMonth string) bool {
	return i.MonthFrom <= salaryMonth && salaryMonth <= i.MonthTo
}

// Target scopes an item rule to an employee, department or grade.
// An item with no targets applies to everyone.
type Target struct {
	ID           string     `json:"id"`
	ItemPolicyID string     `json:"item_policy_id"`
	TargetType   TargetType `json:"target_type"`
	TargetValue  string     `json:"target_value"`
}

// BatchSnapshot - the resolved rules frozen for a batch at calculation time.
// Written once, never mutated; it is the audit trail proving which rules
// produced a historical payslip even if the live policy is edited later.
type BatchSnapshot struct {
	ID          string
	BatchID     string
	PolicyID    string
	SalaryMonth string
	Rules       []byte // serialized []ItemPolicy
	CreatedAt   time.Time
}
