package policy

import (
	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/validator"
)

type CreatePolicyRequest struct {
	PolicyName      string            `json:"policy_name"`
	SalaryMonthFrom string            `json:"salary_month_from"`
	SalaryMonthTo   string            `json:"salary_month_to"`
	Configs         map[string]string `json:"configs,omitempty"`
}

func (r CreatePolicyRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.PolicyName) {
		errs = append(errs, validator.ValidationError{Field: "policy_name", Message: "policy name is required"})
	}
	errs = append(errs, validateMonthWindow(r.SalaryMonthFrom, r.SalaryMonthTo)...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UpdatePolicyRequest struct {
	ID              string            `json:"id"`
	PolicyName      *string           `json:"policy_name,omitempty"`
	SalaryMonthFrom *string           `json:"salary_month_from,omitempty"`
	SalaryMonthTo   *string           `json:"salary_month_to,omitempty"`
	Configs         map[string]string `json:"configs,omitempty"`
}

func (r UpdatePolicyRequest) Validate() error {
	var errs validator.ValidationErrors
	if r.PolicyName != nil && validator.IsEmpty(*r.PolicyName) {
		errs = append(errs, validator.ValidationError{Field: "policy_name", Message: "policy name must not be empty"})
	}
	if r.SalaryMonthFrom != nil && !validator.IsValidSalaryMonth(*r.SalaryMonthFrom) {
		errs = append(errs, validator.ValidationError{Field: "salary_month_from", Message: "salary month must be formatted as YYYY-MM"})
	}
	if r.SalaryMonthTo != nil && !validator.IsValidSalaryMonth(*r.SalaryMonthTo) {
		errs = append(errs, validator.ValidationError{Field: "salary_month_to", Message: "salary month must be formatted as YYYY-MM"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type TargetRequest struct {
	TargetType  string `json:"target_type"`
	TargetValue string `json:"target_value"`
}

type CreateItemPolicyRequest struct {
	PolicyID       string           `json:"policy_id"`
	ItemType       string           `json:"item_type"`
	ItemCode       string           `json:"item_code"`
	ItemName       string           `json:"item_name"`
	CalcMethod     string           `json:"calc_method"`
	FixedAmount    *decimal.Decimal `json:"fixed_amount,omitempty"`
	Rate           *decimal.Decimal `json:"rate,omitempty"`
	BaseAmountType *string          `json:"base_amount_type,omitempty"`
	RoundingUnit   int64            `json:"rounding_unit"`
	RoundingMode   string           `json:"rounding_mode"`
	MonthFrom      string           `json:"month_from"`
	MonthTo        string           `json:"month_to"`
	Priority       int              `json:"priority"`
	Taxable        bool             `json:"taxable"`
	Targets        []TargetRequest  `json:"targets,omitempty"`
}

// Validate rejects malformed rule configuration at write time, so the
// evaluator rarely sees a bad rule. The evaluator still guards on its own.
func (r CreateItemPolicyRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ItemCode) {
		errs = append(errs, validator.ValidationError{Field: "item_code", Message: "item code is required"})
	}
	if validator.IsEmpty(r.ItemName) {
		errs = append(errs, validator.ValidationError{Field: "item_name", Message: "item name is required"})
	}

	switch ItemTypeFromString(r.ItemType) {
	case "":
		errs = append(errs, validator.ValidationError{Field: "item_type", Message: "item type must be ALLOWANCE, DEDUCTION or TAX"})
	}

	switch CalcMethod(r.CalcMethod) {
	case CalcMethodFixed:
		if r.FixedAmount == nil {
			errs = append(errs, validator.ValidationError{Field: "fixed_amount", Message: "fixed amount is required for FIXED items"})
		}
	case CalcMethodRate:
		if r.Rate == nil {
			errs = append(errs, validator.ValidationError{Field: "rate", Message: "rate is required for RATE items"})
		} else if r.Rate.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: "rate", Message: "rate must not be negative"})
		}
		if r.BaseAmountType == nil {
			errs = append(errs, validator.ValidationError{Field: "base_amount_type", Message: "base amount type is required for RATE items"})
		} else if !IsSupportedBaseAmountType(*r.BaseAmountType) {
			errs = append(errs, validator.ValidationError{Field: "base_amount_type", Message: "unsupported base amount type"})
		}
	case CalcMethodFormula:
		// Formula bodies are registered in code, nothing to validate here.
	default:
		errs = append(errs, validator.ValidationError{Field: "calc_method", Message: "calc method must be FIXED, RATE or FORMULA"})
	}

	if r.RoundingUnit < 1 {
		errs = append(errs, validator.ValidationError{Field: "rounding_unit", Message: "rounding unit must be at least 1"})
	}
	switch RoundingMode(r.RoundingMode) {
	case RoundingHalfUp, RoundingUp, RoundingDown:
	default:
		errs = append(errs, validator.ValidationError{Field: "rounding_mode", Message: "rounding mode must be HALF_UP, UP or DOWN"})
	}

	errs = append(errs, validateMonthWindow(r.MonthFrom, r.MonthTo)...)
	errs = append(errs, validateTargets(r.Targets)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UpdateItemPolicyRequest struct {
	ID             string           `json:"id"`
	ItemName       *string          `json:"item_name,omitempty"`
	FixedAmount    *decimal.Decimal `json:"fixed_amount,omitempty"`
	Rate           *decimal.Decimal `json:"rate,omitempty"`
	BaseAmountType *string          `json:"base_amount_type,omitempty"`
	RoundingUnit   *int64           `json:"rounding_unit,omitempty"`
	RoundingMode   *string          `json:"rounding_mode,omitempty"`
	MonthFrom      *string          `json:"month_from,omitempty"`
	MonthTo        *string          `json:"month_to,omitempty"`
	Priority       *int             `json:"priority,omitempty"`
	Taxable        *bool            `json:"taxable,omitempty"`
	Active         *bool            `json:"active,omitempty"`
}

func (r UpdateItemPolicyRequest) Validate() error {
	var errs validator.ValidationErrors
	if r.ItemName != nil && validator.IsEmpty(*r.ItemName) {
		errs = append(errs, validator.ValidationError{Field: "item_name", Message: "item name must not be empty"})
	}
	if r.Rate != nil && r.Rate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "rate", Message: "rate must not be negative"})
	}
	if r.BaseAmountType != nil && !IsSupportedBaseAmountType(*r.BaseAmountType) {
		errs = append(errs, validator.ValidationError{Field: "base_amount_type", Message: "unsupported base amount type"})
	}
	if r.RoundingUnit != nil && *r.RoundingUnit < 1 {
		errs = append(errs, validator.ValidationError{Field: "rounding_unit", Message: "rounding unit must be at least 1"})
	}
	if r.RoundingMode != nil {
		switch RoundingMode(*r.RoundingMode) {
		case RoundingHalfUp, RoundingUp, RoundingDown:
		default:
			errs = append(errs, validator.ValidationError{Field: "rounding_mode", Message: "rounding mode must be HALF_UP, UP or DOWN"})
		}
	}
	if r.MonthFrom != nil && !validator.IsValidSalaryMonth(*r.MonthFrom) {
		errs = append(errs, validator.ValidationError{Field: "month_from", Message: "salary month must be formatted as YYYY-MM"})
	}
	if r.MonthTo != nil && !validator.IsValidSalaryMonth(*r.MonthTo) {
		errs = append(errs, validator.ValidationError{Field: "month_to", Message: "salary month must be formatted as YYYY-MM"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ReplaceTargetsRequest struct {
	Targets []TargetRequest `json:"targets"`
}

func (r ReplaceTargetsRequest) Validate() error {
	errs := validateTargets(r.Targets)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PolicyResponse struct {
	ID              string            `json:"id"`
	PolicyName      string            `json:"policy_name"`
	Status          string            `json:"status"`
	SalaryMonthFrom string            `json:"salary_month_from"`
	SalaryMonthTo   string            `json:"salary_month_to"`
	Active          bool              `json:"active"`
	Items           []ItemPolicy      `json:"items"`
	Configs         map[string]string `json:"configs,omitempty"`
}

func validateMonthWindow(from, to string) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if !validator.IsValidSalaryMonth(from) {
		errs = append(errs, validator.ValidationError{Field: "month_from", Message: "salary month must be formatted as YYYY-MM"})
	}
	if !validator.IsValidSalaryMonth(to) {
		errs = append(errs, validator.ValidationError{Field: "month_to", Message: "salary month must be formatted as YYYY-MM"})
	}
	if len(errs) == 0 && from > to {
		errs = append(errs, validator.ValidationError{Field: "month_from", Message: "window start must not be after window end"})
	}
	return errs
}

func validateTargets(targets []TargetRequest) validator.ValidationErrors {
	var errs validator.ValidationErrors
	for _, tg := range targets {
		switch TargetType(tg.TargetType) {
		case TargetTypeEmployee, TargetTypeDepartment, TargetTypeGrade:
		default:
			errs = append(errs, validator.ValidationError{Field: "targets", Message: "target type must be EMPLOYEE, DEPARTMENT or GRADE"})
			return errs
		}
		if validator.IsEmpty(tg.TargetValue) {
			errs = append(errs, validator.ValidationError{Field: "targets", Message: "target value must not be empty"})
			return errs
		}
	}
	return errs
}
