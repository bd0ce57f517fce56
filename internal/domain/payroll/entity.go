package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enum
type Status string

const (
	StatusReady      Status = "READY"
	StatusCalculated Status = "CALCULATED"
	StatusFailed     Status = "FAILED"
	StatusConfirmed  Status = "CONFIRMED"
)

// ItemType enum
type ItemType string

const (
	ItemTypeAllowance ItemType = "ALLOWANCE"
	ItemTypeDeduction ItemType = "DEDUCTION"
	ItemTypeTax       ItemType = "TAX"
)

// Payroll - one employee's computed pay record for one salary month.
// A CONFIRMED payroll is locked: no field may be mutated afterwards.
type Payroll struct {
	ID             string
	BatchID        string
	EmployeeID     string
	SalaryMonth    string
	BaseSalary     decimal.Decimal
	OvertimePay    decimal.Decimal
	AllowanceTotal decimal.Decimal
	DeductionTotal decimal.Decimal
	TotalPay       decimal.Decimal // base + overtime + allowance - deduction
	Status         Status
	ErrorMessage   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Locked reports whether the payroll forbids mutation.
func (p Payroll) Locked() bool {
	return p.Status == StatusConfirmed
}

// Item - one resolved allowance/deduction line under a payroll.
// Recalculation deletes and reinserts the lines, never accumulates them.
type Item struct {
	ID        string
	PayrollID string
	ItemType  ItemType
	ItemCode  string
	ItemName  string
	Amount    decimal.Decimal
	Taxable   bool
	CreatedAt time.Time
}
