package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/batch"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/hr"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/policy"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Batch domain errors
	switch {
	case errors.Is(err, batch.ErrBatchNotFound):
		NotFound(w, "Payroll batch not found")
	case errors.Is(err, batch.ErrDuplicateBatch):
		Conflict(w, "A payroll batch already exists for this salary month")
	case errors.Is(err, batch.ErrBatchLocked):
		Conflict(w, "Payroll batch is confirmed or paid, recalculation is not allowed")
	case errors.Is(err, batch.ErrNotCalculated):
		Conflict(w, "Payroll batch has not been calculated")
	case errors.Is(err, batch.ErrInvalidTransition):
		Conflict(w, "Payroll batch status changed, please reload and retry")
	case errors.Is(err, batch.ErrHasFailedEmployees):
		Conflict(w, "Payroll batch has failed employee calculations")
	case errors.Is(err, batch.ErrNothingToConfirm):
		Conflict(w, "Payroll batch has no payroll records to confirm")
	case errors.Is(err, batch.ErrNothingToPay):
		Conflict(w, "Payroll batch has no payroll records to pay")
	case errors.Is(err, batch.ErrNoTargets):
		BadRequest(w, "No target employees resolved for calculation", nil)

	// Payroll domain errors
	case errors.Is(err, payroll.ErrPayrollNotFound):
		NotFound(w, "Payroll record not found")
	case errors.Is(err, payroll.ErrPayrollLocked):
		Conflict(w, "Payroll record is confirmed and can no longer change")

	// Policy domain errors
	case errors.Is(err, policy.ErrPolicyNotFound):
		NotFound(w, "Payroll policy not found")
	case errors.Is(err, policy.ErrItemPolicyNotFound):
		NotFound(w, "Item policy not found")
	case errors.Is(err, policy.ErrPolicyNotEditable),
		errors.Is(err, policy.ErrPolicyNotDraft):
		Conflict(w, "Policy is not in draft status")
	case errors.Is(err, policy.ErrPolicyExpired):
		Conflict(w, "Policy is already expired")
	case errors.Is(err, policy.ErrActivePolicyOverlap):
		Conflict(w, "Another active policy overlaps this salary month window")
	case errors.Is(err, policy.ErrNoActivePolicy):
		Conflict(w, "No active policy covers this salary month")
	case errors.Is(err, policy.ErrSnapshotNotFound):
		NotFound(w, "Batch policy snapshot not found")
	case errors.Is(err, policy.ErrInvalidItemPolicy),
		errors.Is(err, policy.ErrUnsupportedBaseAmountType),
		errors.Is(err, policy.ErrInvalidRoundingUnit),
		errors.Is(err, policy.ErrInvalidRoundingMode):
		BadRequest(w, err.Error(), nil)

	// HR source errors
	case errors.Is(err, hr.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
