package payroll

import "errors"

var (
	ErrPayrollNotFound = errors.New("payroll record not found")
	ErrPayrollLocked   = errors.New("payroll record is confirmed, cannot modify")
)
