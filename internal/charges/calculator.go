// Package charges computes the cost breakdown of a proposed loan.
package charges

import (
	"github.com/fsp-loan-gateway/internal/domain/catalog"
	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var (
	hundred        = decimal.NewFromInt(100)
	monthsPerYear  = decimal.NewFromInt(12)
	percentPerYear = hundred.Mul(monthsPerYear)
)

// Result is the charges breakdown. Amounts are rounded to two places.
type Result struct {
	DesiredDeductibleAmount decimal.Decimal
	InterestAmount          decimal.Decimal
	ProcessingFee           decimal.Decimal
	Insurance               decimal.Decimal
	NetLoanAmount           decimal.Decimal
	TotalAmountToPay        decimal.Decimal
	MonthlyReturnAmount     decimal.Decimal
	// EligibleAmount is a provisional affordability estimate, twelve
	// months of the desired deductible amount.
	EligibleAmount decimal.Decimal
	Tenure         int
}

// Compute applies the product's rates to requestedAmount over tenure months.
// A nil tenure falls back to the product minimum; a non-positive tenure is
// rejected with InvalidTenure.
func Compute(product *catalog.Product, requestedAmount, desiredDeductibleAmount decimal.Decimal, tenure *int) (Result, error) {
	months := product.MinTenure
	if tenure != nil {
		months = *tenure
	}
	if months <= 0 {
		return Result{}, shared.InvalidTenure(months)
	}
	term := decimal.NewFromInt(int64(months))

	interest := requestedAmount.Mul(product.InterestRate).Mul(term).Div(percentPerYear).Round(moneyPlaces)

	processingFee := decimal.Zero
	if !product.ProcessingFee.IsZero() {
		processingFee = requestedAmount.Mul(product.ProcessingFee).Div(hundred).Round(moneyPlaces)
	}
	insurance := requestedAmount.Mul(product.Insurance).Div(hundred).Round(moneyPlaces)

	total := requestedAmount.Add(interest).Round(moneyPlaces)

	return Result{
		DesiredDeductibleAmount: desiredDeductibleAmount.Round(moneyPlaces),
		InterestAmount:          interest,
		ProcessingFee:           processingFee,
		Insurance:               insurance,
		NetLoanAmount:           requestedAmount.Sub(processingFee).Sub(insurance).Round(moneyPlaces),
		TotalAmountToPay:        total,
		MonthlyReturnAmount:     total.DivRound(term, moneyPlaces),
		EligibleAmount:          desiredDeductibleAmount.Mul(monthsPerYear).Round(moneyPlaces),
		Tenure:                  months,
	}, nil
}

// Format renders an amount as fixed two-place text with no separators
func Format(d decimal.Decimal) string {
	return d.StringFixed(moneyPlaces)
}

// Fields returns the response MessageDetails entries for a charges quote
func (r Result) Fields() map[string]interface{} {
	return map[string]interface{}{
		"DesiredDeductibleAmount": Format(r.DesiredDeductibleAmount),
		"TotalInsurance":          Format(r.Insurance),
		"TotalProcessingFees":     Format(r.ProcessingFee),
		"TotalInterestRateAmount": Format(r.InterestAmount),
		"NetLoanAmount":           Format(r.NetLoanAmount),
		"TotalAmountToPay":        Format(r.TotalAmountToPay),
		"Tenure":                  r.Tenure,
		"EligibleAmount":          Format(r.EligibleAmount),
		"MonthlyReturnAmount":     Format(r.MonthlyReturnAmount),
	}
}
