package shared

import "strings"

// MessageType is the declared Header.MessageType of an envelope
type MessageType string

const (
	MessageTypeLoanOfferRequest        MessageType = "LOAN_OFFER_REQUEST"
	MessageTypeLoanChargesRequest      MessageType = "LOAN_CHARGES_REQUEST"
	MessageTypeLoanInitialApproval     MessageType = "LOAN_INITIAL_APPROVAL_NOTIFICATION"
	MessageTypeLoanFinalApproval       MessageType = "LOAN_FINAL_APPROVAL_NOTIFICATION"
	MessageTypeLoanDisbursement        MessageType = "LOAN_DISBURSEMENT_NOTIFICATION"
	MessageTypeLoanDisbursementFailure MessageType = "LOAN_DISBURSEMENT_FAILURE_NOTIFICATION"
	MessageTypeLoanCancellation        MessageType = "LOAN_CANCELLATION_NOTIFICATION"
	MessageTypeFullLoanRepayment       MessageType = "FULL_LOAN_REPAYMENT_NOTIFICATION"
	MessageTypePartialLoanRepayment    MessageType = "PARTIAL_LOAN_REPAYMENT_NOTIFICATION"
	MessageTypeLoanLiquidation         MessageType = "LOAN_LIQUIDATION_NOTIFICATION"
	MessageTypeLoanStatusRequest       MessageType = "LOAN_STATUS_REQUEST"
	MessageTypeProductDetail           MessageType = "PRODUCT_DETAIL"
	MessageTypeProductDecommission     MessageType = "PRODUCT_DECOMMISSION"
	MessageTypeResponse                MessageType = "RESPONSE"
)

// ResponseType returns the message type used on the acknowledgement of m:
// X_REQUEST pairs with X_RESPONSE, everything else is acknowledged with RESPONSE.
func (m MessageType) ResponseType() MessageType {
	if s := string(m); strings.HasSuffix(s, "_REQUEST") {
		return MessageType(strings.TrimSuffix(s, "_REQUEST") + "_RESPONSE")
	}
	return MessageTypeResponse
}

// Result codes embedded in every response envelope
const (
	ResultCodeSuccess             = 8000
	ResultCodeProcessingFailure   = 8005
	ResultCodeApplicationNotFound = 8019
)
