package message

import (
	"time"

	"github.com/fsp-loan-gateway/internal/domain/catalog"
	"github.com/fsp-loan-gateway/internal/domain/employee"
	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LoanOfferRequest opens a new application for an employee
type LoanOfferRequest struct {
	Employee                employee.Employee
	ApplicationNumber       string
	ProductCode             string
	LoanPurpose             string
	RequestedAmount         decimal.Decimal
	DesiredDeductibleAmount decimal.Decimal // defaults to zero
	Tenure                  *int            // nil means the product minimum
}

func (LoanOfferRequest) MessageType() shared.MessageType {
	return shared.MessageTypeLoanOfferRequest
}

// LoanChargesRequest asks for a charges quote without creating anything
type LoanChargesRequest struct {
	CheckNumber             string
	ProductCode             string
	RequestedAmount         decimal.Decimal
	DesiredDeductibleAmount decimal.Decimal
	Tenure                  *int
}

func (LoanChargesRequest) MessageType() shared.MessageType {
	return shared.MessageTypeLoanChargesRequest
}

// InitialApproval is the FSP decision on an offer
type InitialApproval struct {
	ApplicationNumber  string
	Approved           bool
	Reason             string
	FSPReferenceNumber string
	LoanNumber         string
}

func (InitialApproval) MessageType() shared.MessageType {
	return shared.MessageTypeLoanInitialApproval
}

// FinalApproval is the employer decision on an offer
type FinalApproval struct {
	ApplicationNumber string
	Approved          bool
	Reason            string
}

func (FinalApproval) MessageType() shared.MessageType {
	return shared.MessageTypeLoanFinalApproval
}

type Cancellation struct {
	ApplicationNumber string
	Reason            string
}

func (Cancellation) MessageType() shared.MessageType {
	return shared.MessageTypeLoanCancellation
}

type Disbursement struct {
	ApplicationNumber string
	DisbursementDate  time.Time // defaults to receipt time
}

func (Disbursement) MessageType() shared.MessageType {
	return shared.MessageTypeLoanDisbursement
}

type DisbursementFailure struct {
	ApplicationNumber string
	Reason            string
}

func (DisbursementFailure) MessageType() shared.MessageType {
	return shared.MessageTypeLoanDisbursementFailure
}

// Repayment covers both full and partial repayment notifications
type Repayment struct {
	Type             shared.MessageType
	LoanNumber       string
	PaymentReference string
	PaymentAmount    decimal.Decimal
	LoanBalance      decimal.Decimal // zero on a full repayment unless stated
	PaymentDate      time.Time
	Description      string
}

func (r Repayment) MessageType() shared.MessageType {
	return r.Type
}

// IsFull reports whether this is a full repayment notification
func (r Repayment) IsFull() bool {
	return r.Type == shared.MessageTypeFullLoanRepayment
}

type Liquidation struct {
	LoanNumber        string
	PaymentReference  string
	LiquidationAmount decimal.Decimal
	LiquidationDate   time.Time
	Reason            string
}

func (Liquidation) MessageType() shared.MessageType {
	return shared.MessageTypeLoanLiquidation
}

type StatusRequest struct {
	ApplicationNumber string
}

func (StatusRequest) MessageType() shared.MessageType {
	return shared.MessageTypeLoanStatusRequest
}

// ProductDetail is one catalog entry of a PRODUCT_DETAIL message
type ProductDetail struct {
	Product catalog.Product
	FSPName string
}

type ProductCatalog struct {
	Products []ProductDetail
}

func (ProductCatalog) MessageType() shared.MessageType {
	return shared.MessageTypeProductDetail
}

// FSPName is the first provider name announced in the catalog
func (c ProductCatalog) FSPName() string {
	for _, p := range c.Products {
		if p.FSPName != "" {
			return p.FSPName
		}
	}
	return ""
}

type Decommission struct {
	ProductCodes []string
}

func (Decommission) MessageType() shared.MessageType {
	return shared.MessageTypeProductDecommission
}
