package policy

import "errors"

var (
	ErrPolicyNotFound            = errors.New("payroll policy not found")
	ErrItemPolicyNotFound        = errors.New("item policy not found")
	ErrPolicyNotEditable         = errors.New("policy is not in draft status, cannot modify")
	ErrPolicyNotDraft            = errors.New("policy is not in draft status")
	ErrPolicyExpired             = errors.New("policy is already expired")
	ErrActivePolicyOverlap       = errors.New("another active policy overlaps this salary month window")
	ErrNoActivePolicy            = errors.New("no active policy covers this salary month")
	ErrSnapshotNotFound          = errors.New("batch policy snapshot not found")
	ErrUnsupportedBaseAmountType = errors.New("unsupported base amount type")
	ErrInvalidRoundingUnit       = errors.New("rounding unit must be at least 1")
	ErrInvalidRoundingMode       = errors.New("unsupported rounding mode")
	ErrInvalidItemPolicy         = errors.New("item policy configuration is invalid")
)
