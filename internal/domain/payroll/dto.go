package payroll

import "github.com/shopspring/decimal"

type RecordResponse struct {
	ID             string          `json:"id"`
	BatchID        string          `json:"batch_id"`
	EmployeeID     string          `json:"employee_id"`
	SalaryMonth    string          `json:"salary_month"`
	BaseSalary     decimal.Decimal `json:"base_salary"`
	OvertimePay    decimal.Decimal `json:"overtime_pay"`
	AllowanceTotal decimal.Decimal `json:"allowance_total"`
	DeductionTotal decimal.Decimal `json:"deduction_total"`
	TotalPay       decimal.Decimal `json:"total_pay"`
	Status         string          `json:"status"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
	Items          []ItemResponse  `json:"items"`
}

type ItemResponse struct {
	ID       string          `json:"id"`
	ItemType string          `json:"item_type"`
	ItemCode string          `json:"item_code"`
	ItemName string          `json:"item_name"`
	Amount   decimal.Decimal `json:"amount"`
	Taxable  bool            `json:"taxable"`
}
