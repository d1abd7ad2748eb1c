// Package loan models a loan application and the records that hang off it
// once it is approved: the payroll deduction and the repayment ledger.
package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// Application is a loan application, unique by ApplicationNumber. Financial
// terms are snapshotted from the product when the offer is received.
type Application struct {
	ID                      int64           `json:"id"`
	ApplicationNumber       string          `json:"application_number"`
	EmployeeID              int64           `json:"employee_id"`
	ProductID               int64           `json:"loan_product_id"`
	FSPID                   int64           `json:"fsp_id"`
	CheckNumber             string          `json:"check_number"`
	Status                  Status          `json:"status"`
	RequestedAmount         decimal.Decimal `json:"requested_amount"`
	DesiredDeductibleAmount decimal.Decimal `json:"desired_deductible_amount"`
	Tenure                  int             `json:"tenure"`
	InterestRate            decimal.Decimal `json:"interest_rate"`
	ProcessingFee           decimal.Decimal `json:"processing_fee"`
	Insurance               decimal.Decimal `json:"insurance"`
	InterestAmount          decimal.Decimal `json:"interest_amount"`
	NetLoanAmount           decimal.Decimal `json:"net_loan_amount"`
	TotalAmountToPay        decimal.Decimal `json:"total_amount_to_pay"`
	MonthlyReturnAmount     decimal.Decimal `json:"monthly_return_amount"`
	LoanPurpose             string          `json:"loan_purpose"`
	FSPReferenceNumber      string          `json:"fsp_reference_number,omitempty"`
	LoanNumber              *string         `json:"loan_number,omitempty"`
	RejectionReason         string          `json:"rejection_reason,omitempty"`
	FSPApprovalDate         *time.Time      `json:"fsp_approval_date,omitempty"`
	EmployerApprovalDate    *time.Time      `json:"employer_approval_date,omitempty"`
	DisbursementDate        *time.Time      `json:"disbursement_date,omitempty"`
	Version                 int             `json:"version"` // For optimistic locking
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// NewApplication creates an application in INITIATED state
func NewApplication(applicationNumber string) *Application {
	now := time.Now().UTC()
	return &Application{
		ApplicationNumber: applicationNumber,
		Status:            StatusInitiated,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// TransitionTo moves the application along one edge of the lifecycle graph
func (a *Application) TransitionTo(next Status) error {
	if !a.Status.CanTransitionTo(next) {
		return ErrInvalidTransition{From: a.Status, To: next}
	}
	a.Status = next
	a.UpdatedAt = time.Now().UTC()
	a.Version++
	return nil
}

// ApproveByFSP records the provider's initial approval and its loan number
func (a *Application) ApproveByFSP(referenceNumber, loanNumber string, at time.Time) error {
	if err := a.TransitionTo(StatusLoanOfferAtEmployee); err != nil {
		return err
	}
	a.FSPReferenceNumber = referenceNumber
	if loanNumber != "" {
		a.LoanNumber = &loanNumber
	}
	a.FSPApprovalDate = &at
	return nil
}

func (a *Application) RejectByFSP(reason string) error {
	if err := a.TransitionTo(StatusFSPRejected); err != nil {
		return err
	}
	a.RejectionReason = reason
	return nil
}

func (a *Application) ApproveByEmployer(at time.Time) error {
	if err := a.TransitionTo(StatusSubmittedForDisbursement); err != nil {
		return err
	}
	a.EmployerApprovalDate = &at
	return nil
}

func (a *Application) RejectByEmployer(reason string) error {
	if err := a.TransitionTo(StatusEmployerRejected); err != nil {
		return err
	}
	a.RejectionReason = reason
	return nil
}

func (a *Application) Cancel(reason string) error {
	if err := a.TransitionTo(StatusEmployeeCanceled); err != nil {
		return err
	}
	a.RejectionReason = reason
	return nil
}

func (a *Application) MarkDisbursed(at time.Time) error {
	if err := a.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	a.DisbursementDate = &at
	return nil
}

func (a *Application) MarkDisbursementFailed(reason string) error {
	if err := a.TransitionTo(StatusDisbursementFailure); err != nil {
		return err
	}
	a.RejectionReason = reason
	return nil
}

// LoanNumberValue returns the assigned loan number or "" when none is assigned yet
func (a *Application) LoanNumberValue() string {
	if a.LoanNumber == nil {
		return ""
	}
	return *a.LoanNumber
}
