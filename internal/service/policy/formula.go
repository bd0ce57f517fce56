package policy

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/hr"
)

// FormulaInput is the evaluation context handed to a registered formula.
type FormulaInput struct {
	Employee    hr.EmployeeProfile
	SalaryMonth string
	BaseSalary  decimal.Decimal
	OvertimePay decimal.Decimal
}

type FormulaFunc func(in FormulaInput) (decimal.Decimal, error)

// FormulaRegistry maps item codes to registered calculation functions.
// FORMULA item policies are an extension point: a row whose code has no
// registered function is skipped with a warning, never counted as zero.
type FormulaRegistry struct {
	mu    sync.RWMutex
	funcs map[string]FormulaFunc
}

func NewFormulaRegistry() *FormulaRegistry {
	return &FormulaRegistry{funcs: make(map[string]FormulaFunc)}
}

func (r *FormulaRegistry) Register(itemCode string, fn FormulaFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[itemCode] = fn
}

func (r *FormulaRegistry) Lookup(itemCode string) (FormulaFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[itemCode]
	return fn, ok
}
