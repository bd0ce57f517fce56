package paymenthist

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentHistory - immutable ledger row written when a batch reaches PAID.
// At most one row exists per payroll; re-running pay skips existing rows.
type PaymentHistory struct {
	ID         string
	PayrollID  string
	BatchID    string
	EmployeeID string
	Amount     decimal.Decimal
	PaidBy     string
	PaidAt     time.Time
}
