package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deduction is the recurring payroll deduction backing a disbursed loan.
// At most one active deduction exists per application.
type Deduction struct {
	ID                 int64           `json:"id"`
	ApplicationID      int64           `json:"loan_application_id"`
	CheckNumber        string          `json:"check_number"`
	DeductionCode      string          `json:"deduction_code"`
	DeductionName      string          `json:"deduction_name"`
	MonthlyAmount      decimal.Decimal `json:"monthly_amount"`
	BalanceAmount      decimal.Decimal `json:"balance_amount"`
	IsActive           bool            `json:"is_active"`
	DeactivationReason string          `json:"deactivation_reason,omitempty"`
	StartDate          time.Time       `json:"start_date"`
	DeactivatedAt      *time.Time      `json:"deactivated_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewDeduction seeds an active deduction from the snapshotted application terms
func NewDeduction(app *Application, deductionCode, deductionName string) *Deduction {
	now := time.Now().UTC()
	return &Deduction{
		ApplicationID: app.ID,
		CheckNumber:   app.CheckNumber,
		DeductionCode: deductionCode,
		DeductionName: deductionName,
		MonthlyAmount: app.MonthlyReturnAmount,
		BalanceAmount: app.TotalAmountToPay,
		IsActive:      true,
		StartDate:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
