package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// RepaymentType distinguishes the payment events recorded against a loan
type RepaymentType string

const (
	RepaymentTypeFull        RepaymentType = "FULL"
	RepaymentTypePartial     RepaymentType = "PARTIAL"
	RepaymentTypeLiquidation RepaymentType = "LIQUIDATION"
)

// Repayment is an append-only payment event against a loan number
type Repayment struct {
	ID               int64           `json:"id"`
	ApplicationID    int64           `json:"loan_application_id"`
	LoanNumber       string          `json:"loan_number"`
	Type             RepaymentType   `json:"repayment_type"`
	PaymentReference string          `json:"payment_reference"`
	Amount           decimal.Decimal `json:"amount"`
	LoanBalance      decimal.Decimal `json:"loan_balance"`
	PaymentDate      time.Time       `json:"payment_date"`
	Description      string          `json:"description,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// SettlesLoan reports whether this payment closes the loan
func (r *Repayment) SettlesLoan() bool {
	return r.Type != RepaymentTypePartial || !r.LoanBalance.IsPositive()
}
