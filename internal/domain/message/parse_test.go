package message

import (
	"testing"

	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_LoanOfferRequest(t *testing.T) {
	t.Run("success with defaults", func(t *testing.T) {
		fields := Fields{
			"CheckNumber":       "CHK-100",
			"FirstName":         "Asha",
			"LastName":          "Mrema",
			"ApplicationNumber": "APP-1",
			"ProductCode":       "PRD-1",
			"RequestedAmount":   "1,000,000",
			"EmploymentDate":    "2015-03-01",
		}

		details, err := Parse(shared.MessageTypeLoanOfferRequest, fields)
		require.NoError(t, err)

		offer, ok := details.(LoanOfferRequest)
		require.True(t, ok)
		assert.Equal(t, "CHK-100", offer.Employee.CheckNumber)
		assert.Equal(t, "Asha Mrema", offer.Employee.FullName())
		assert.True(t, offer.RequestedAmount.Equal(decimal.NewFromInt(1000000)))
		assert.True(t, offer.DesiredDeductibleAmount.IsZero())
		assert.Nil(t, offer.Tenure)
		require.NotNil(t, offer.Employee.EmploymentDate)
		assert.Equal(t, 2015, offer.Employee.EmploymentDate.Year())
	})

	t.Run("explicit zero tenure is kept", func(t *testing.T) {
		fields := Fields{
			"CheckNumber":       "CHK-100",
			"ApplicationNumber": "APP-1",
			"ProductCode":       "PRD-1",
			"RequestedAmount":   "5000",
			"Tenure":            "0",
		}

		details, err := Parse(shared.MessageTypeLoanOfferRequest, fields)
		require.NoError(t, err)
		offer := details.(LoanOfferRequest)
		require.NotNil(t, offer.Tenure)
		assert.Equal(t, 0, *offer.Tenure)
	})

	t.Run("missing application number", func(t *testing.T) {
		fields := Fields{"CheckNumber": "CHK-100", "ProductCode": "PRD-1", "RequestedAmount": "5000"}

		_, err := Parse(shared.MessageTypeLoanOfferRequest, fields)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindMalformedPayload))
		assert.Contains(t, err.Error(), "ApplicationNumber")
	})

	t.Run("invalid amount", func(t *testing.T) {
		fields := Fields{"CheckNumber": "CHK-100", "ApplicationNumber": "APP-1", "ProductCode": "PRD-1", "RequestedAmount": "lots"}

		_, err := Parse(shared.MessageTypeLoanOfferRequest, fields)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RequestedAmount")
	})
}

func TestParse_InitialApproval(t *testing.T) {
	t.Run("approved requires references", func(t *testing.T) {
		_, err := Parse(shared.MessageTypeLoanInitialApproval, Fields{"ApplicationNumber": "APP-1", "Approval": "APPROVED"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "FSPReferenceNumber")
	})

	t.Run("rejected", func(t *testing.T) {
		details, err := Parse(shared.MessageTypeLoanInitialApproval, Fields{"ApplicationNumber": "APP-1", "Approval": "rejected", "Reason": "Low salary"})
		require.NoError(t, err)
		approval := details.(InitialApproval)
		assert.False(t, approval.Approved)
		assert.Equal(t, "Low salary", approval.Reason)
	})

	t.Run("unknown decision", func(t *testing.T) {
		_, err := Parse(shared.MessageTypeLoanInitialApproval, Fields{"ApplicationNumber": "APP-1", "Approval": "MAYBE"})
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindMalformedPayload))
	})
}

func TestParse_Repayment(t *testing.T) {
	t.Run("partial requires balance", func(t *testing.T) {
		_, err := Parse(shared.MessageTypePartialLoanRepayment, Fields{"LoanNumber": "LN-1", "PaymentReference": "PAY-1", "PaymentAmount": "100"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LoanBalance")
	})

	t.Run("full defaults balance to zero", func(t *testing.T) {
		details, err := Parse(shared.MessageTypeFullLoanRepayment, Fields{"LoanNumber": "LN-1", "PaymentReference": "PAY-1", "PaymentAmount": "100.50"})
		require.NoError(t, err)
		repayment := details.(Repayment)
		assert.True(t, repayment.IsFull())
		assert.True(t, repayment.LoanBalance.IsZero())
		assert.Equal(t, shared.MessageTypeFullLoanRepayment, repayment.MessageType())
		assert.False(t, repayment.PaymentDate.IsZero())
	})
}

func TestParse_ProductCatalog(t *testing.T) {
	t.Run("single product and single term normalise to lists", func(t *testing.T) {
		fields := Fields{
			"ProductDetail": map[string]interface{}{
				"ProductCode":   "PRD-1",
				"ProductName":   "Salary Advance",
				"MinimumTenure": "3",
				"MaximumTenure": "48",
				"InterestRate":  "12",
				"ProcessFee":    "2",
				"Insurance":     "1",
				"ForExecutive":  "false",
				"FSPName":       "Acme Finance",
				"TermsAndConditions": map[string]interface{}{
					"TermsConditionNumber": "TC-1",
					"Description":          "Early settlement allowed",
					"TCEffectiveDate":      "2024-01-01",
				},
			},
		}

		details, err := Parse(shared.MessageTypeProductDetail, fields)
		require.NoError(t, err)
		catalogMsg := details.(ProductCatalog)
		require.Len(t, catalogMsg.Products, 1)
		p := catalogMsg.Products[0].Product
		assert.Equal(t, "PRD-1", p.Code)
		assert.Equal(t, 3, p.MinTenure)
		assert.True(t, p.InterestRate.Equal(decimal.NewFromInt(12)))
		require.Len(t, p.TermConditions, 1)
		assert.Equal(t, "TC-1", p.TermConditions[0].Number)
		assert.Equal(t, "Acme Finance", catalogMsg.FSPName())
	})

	t.Run("repeated products", func(t *testing.T) {
		fields := Fields{
			"ProductDetail": []interface{}{
				map[string]interface{}{"ProductCode": "PRD-1", "InterestRate": "12"},
				map[string]interface{}{"ProductCode": "PRD-2", "InterestRate": "15"},
			},
		}

		details, err := Parse(shared.MessageTypeProductDetail, fields)
		require.NoError(t, err)
		assert.Len(t, details.(ProductCatalog).Products, 2)
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := Parse(shared.MessageTypeProductDetail, Fields{})
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindMalformedPayload))
	})
}

func TestParse_Decommission(t *testing.T) {
	details, err := Parse(shared.MessageTypeProductDecommission, Fields{"ProductCode": []interface{}{"PRD-1", "PRD-2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"PRD-1", "PRD-2"}, details.(Decommission).ProductCodes)

	details, err = Parse(shared.MessageTypeProductDecommission, Fields{"ProductCode": "PRD-3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PRD-3"}, details.(Decommission).ProductCodes)
}

func TestParse_UnknownType(t *testing.T) {
	_, err := Parse(shared.MessageType("SOMETHING_ELSE"), Fields{})
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindUnexpectedMessageType))
}
