package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a loan product offered by one FSP. (FSPID, Code) is unique.
type Product struct {
	ID             int64           `json:"id"`
	FSPID          int64           `json:"fsp_id"`
	Code           string          `json:"product_code"`
	Name           string          `json:"product_name"`
	Description    string          `json:"description"`
	ForExecutive   bool            `json:"for_executive"`
	MinTenure      int             `json:"min_tenure"`
	MaxTenure      int             `json:"max_tenure"`
	InterestRate   decimal.Decimal `json:"interest_rate"`  // annual, percent
	ProcessingFee  decimal.Decimal `json:"processing_fee"` // percent of principal
	Insurance      decimal.Decimal `json:"insurance"`      // percent of principal
	MinAmount      decimal.Decimal `json:"min_amount"`
	MaxAmount      decimal.Decimal `json:"max_amount"`
	RepaymentType  string          `json:"repayment_type"`
	Currency       string          `json:"currency"`
	DeductionCode  string          `json:"deduction_code"`
	IsActive       bool            `json:"is_active"`
	TermConditions []TermCondition `json:"term_conditions,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TermCondition is a numbered clause attached to a product.
// (ProductID, Number) is unique.
type TermCondition struct {
	ID            int64      `json:"id"`
	ProductID     int64      `json:"loan_product_id"`
	Number        string     `json:"terms_condition_number"`
	Description   string     `json:"description"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
