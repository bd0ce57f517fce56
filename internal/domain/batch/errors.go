package batch

import "errors"

var (
	ErrBatchNotFound      = errors.New("payroll batch not found")
	ErrDuplicateBatch     = errors.New("payroll batch already exists for this salary month")
	ErrBatchLocked        = errors.New("payroll batch is confirmed or paid, recalculation is not allowed")
	ErrNotCalculated      = errors.New("payroll batch has not been calculated")
	ErrInvalidTransition  = errors.New("invalid payroll batch status transition")
	ErrHasFailedEmployees = errors.New("payroll batch has failed employee calculations")
	ErrNothingToConfirm   = errors.New("payroll batch has no payroll records to confirm")
	ErrNothingToPay       = errors.New("payroll batch has no payroll records to pay")
	ErrNoTargets          = errors.New("no target employees resolved for calculation")
)
