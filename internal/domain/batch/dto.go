package batch

import (
	"encoding/json"

	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/validator"
)

type CreateBatchRequest struct {
	SalaryMonth string `json:"salary_month"`
}

func (r CreateBatchRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.SalaryMonth) {
		errs = append(errs, validator.ValidationError{Field: "salary_month", Message: "salary month is required"})
	} else if !validator.IsValidSalaryMonth(r.SalaryMonth) {
		errs = append(errs, validator.ValidationError{Field: "salary_month", Message: "salary month must be formatted as YYYY-MM"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CalculateRequest struct {
	// EmployeeIDs restricts the run to a subset. Empty means the full
	// eligible roster.
	EmployeeIDs []string `json:"employee_ids"`
}

func (r CalculateRequest) Validate() error {
	var errs validator.ValidationErrors
	for _, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{Field: "employee_ids", Message: "employee ids must not be empty"})
			break
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type BatchResponse struct {
	ID          string  `json:"id"`
	SalaryMonth string  `json:"salary_month"`
	Status      string  `json:"status"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
	ApprovedBy  *string `json:"approved_by,omitempty"`
	ApprovedAt  *string `json:"approved_at,omitempty"`
	PaidBy      *string `json:"paid_by,omitempty"`
	PaidAt      *string `json:"paid_at,omitempty"`
	ClosedAt    *string `json:"closed_at,omitempty"`
}

// CalculationResultResponse summarizes one calculate call. Per-employee
// failures are absorbed into FAILED payroll rows, so the call itself
// succeeds and reports counts.
type CalculationResultResponse struct {
	BatchID     string `json:"batch_id"`
	SalaryMonth string `json:"salary_month"`
	Status      string `json:"status"`
	Total       int    `json:"total"`
	Succeeded   int    `json:"succeeded"`
	Failed      int    `json:"failed"`
}

type SnapshotResponse struct {
	BatchID     string          `json:"batch_id"`
	PolicyID    string          `json:"policy_id"`
	SalaryMonth string          `json:"salary_month"`
	Rules       json.RawMessage `json:"rules"`
	CreatedAt   string          `json:"created_at"`
}
