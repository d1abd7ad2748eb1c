package employee

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Employee is a payroll employee, identified by check number
type Employee struct {
	ID                     int64           `json:"id"`
	CheckNumber            string          `json:"check_number"`
	FirstName              string          `json:"first_name"`
	MiddleName             string          `json:"middle_name"`
	LastName               string          `json:"last_name"`
	Sex                    string          `json:"sex"`
	NIN                    string          `json:"nin"`
	MobileNumber           string          `json:"mobile_number"`
	EmailAddress           string          `json:"email_address"`
	BankAccountNumber      string          `json:"bank_account_number"`
	VoteCode               string          `json:"vote_code"`
	VoteName               string          `json:"vote_name"`
	DesignationCode        string          `json:"designation_code"`
	DesignationName        string          `json:"designation_name"`
	EmploymentDate         *time.Time      `json:"employment_date,omitempty"`
	RetirementDate         *time.Time      `json:"retirement_date,omitempty"`
	BasicSalary            decimal.Decimal `json:"basic_salary"`
	NetSalary              decimal.Decimal `json:"net_salary"`
	OneThirdAmount         decimal.Decimal `json:"one_third_amount"`
	TotalEmployeeDeduction decimal.Decimal `json:"total_employee_deduction"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// FullName joins the non-empty name parts
func (e *Employee) FullName() string {
	name := e.FirstName
	for _, part := range []string{e.MiddleName, e.LastName} {
		if part == "" {
			continue
		}
		if name != "" {
			name += " "
		}
		name += part
	}
	return name
}

// Repository defines employee persistence operations
type Repository interface {
	GetByCheckNumber(ctx context.Context, checkNumber string) (*Employee, error)
	// Upsert inserts or refreshes the employee keyed by check number and sets emp.ID
	Upsert(ctx context.Context, emp *Employee) error
	WithTx(tx pgx.Tx) Repository
}

// ErrEmployeeNotFound indicates an unknown check number
type ErrEmployeeNotFound struct {
	CheckNumber string
}

func (e ErrEmployeeNotFound) Error() string {
	return "employee not found: " + e.CheckNumber
}
