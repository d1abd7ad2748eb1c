package loan

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ApplicationRepository defines loan application persistence operations
type ApplicationRepository interface {
	Create(ctx context.Context, app *Application) error
	GetByApplicationNumber(ctx context.Context, applicationNumber string) (*Application, error)

	// Update uses optimistic locking on Version
	Update(ctx context.Context, app *Application) error

	// Lock* acquire a row lock for the lifetime of the surrounding transaction
	LockByApplicationNumber(ctx context.Context, applicationNumber string) (*Application, error)
	LockByLoanNumber(ctx context.Context, loanNumber string) (*Application, error)
	WithTx(tx pgx.Tx) ApplicationRepository
}

// DeductionRepository manages payroll deductions
type DeductionRepository interface {
	Create(ctx context.Context, deduction *Deduction) error
	GetActiveByApplication(ctx context.Context, applicationID int64) (*Deduction, error)
	UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	DeactivateByApplication(ctx context.Context, applicationID int64, reason string) (int64, error)
	WithTx(tx pgx.Tx) DeductionRepository
}

// RepaymentRepository appends repayment events
type RepaymentRepository interface {
	Create(ctx context.Context, repayment *Repayment) error
	ListByLoanNumber(ctx context.Context, loanNumber string) ([]*Repayment, error)
	WithTx(tx pgx.Tx) RepaymentRepository
}

// ErrApplicationNotFound indicates a missing loan application
type ErrApplicationNotFound struct {
	ApplicationNumber string
	LoanNumber        string
}

func (e ErrApplicationNotFound) Error() string {
	if e.LoanNumber != "" {
		return "loan application not found for loan number: " + e.LoanNumber
	}
	return "loan application not found: " + e.ApplicationNumber
}

// ErrDuplicateApplication indicates application number uniqueness violation
type ErrDuplicateApplication struct {
	ApplicationNumber string
}

func (e ErrDuplicateApplication) Error() string {
	return "loan application already exists: " + e.ApplicationNumber
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	ApplicationNumber string
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for loan application: " + e.ApplicationNumber
}

// ErrNoActiveDeduction indicates the application has no active payroll deduction
type ErrNoActiveDeduction struct {
	ApplicationID int64
}

func (e ErrNoActiveDeduction) Error() string {
	return "no active deduction for loan application id: " + strconv.FormatInt(e.ApplicationID, 10)
}
