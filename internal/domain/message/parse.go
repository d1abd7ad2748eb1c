package message

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fsp-loan-gateway/internal/domain/catalog"
	"github.com/fsp-loan-gateway/internal/domain/employee"
	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse decodes the MessageDetails of a message of type mt into its typed
// variant. Missing or unparsable mandatory fields yield MalformedPayload.
func Parse(mt shared.MessageType, f Fields) (Details, error) {
	if f == nil {
		f = Fields{}
	}
	r := &reader{mt: mt, f: f}

	var details Details
	switch mt {
	case shared.MessageTypeLoanOfferRequest:
		details = r.loanOffer()
	case shared.MessageTypeLoanChargesRequest:
		details = LoanChargesRequest{
			CheckNumber:             r.optional("CheckNumber"),
			ProductCode:             r.required("ProductCode"),
			RequestedAmount:         r.requiredDecimal("RequestedAmount"),
			DesiredDeductibleAmount: r.optionalDecimal("DesiredDeductibleAmount"),
			Tenure:                  r.optionalInt("Tenure"),
		}
	case shared.MessageTypeLoanInitialApproval:
		d := InitialApproval{
			ApplicationNumber: r.required("ApplicationNumber"),
			Approved:          r.approval("Approval"),
			Reason:            r.optional("Reason"),
		}
		if d.Approved {
			d.FSPReferenceNumber = r.required("FSPReferenceNumber")
			d.LoanNumber = r.required("LoanNumber")
		}
		details = d
	case shared.MessageTypeLoanFinalApproval:
		details = FinalApproval{
			ApplicationNumber: r.required("ApplicationNumber"),
			Approved:          r.approval("Approval"),
			Reason:            r.optional("Reason"),
		}
	case shared.MessageTypeLoanCancellation:
		details = Cancellation{
			ApplicationNumber: r.required("ApplicationNumber"),
			Reason:            r.optional("Reason"),
		}
	case shared.MessageTypeLoanDisbursement:
		details = Disbursement{
			ApplicationNumber: r.required("ApplicationNumber"),
			DisbursementDate:  r.date("DisbursementDate"),
		}
	case shared.MessageTypeLoanDisbursementFailure:
		details = DisbursementFailure{
			ApplicationNumber: r.required("ApplicationNumber"),
			Reason:            r.optional("Reason"),
		}
	case shared.MessageTypeFullLoanRepayment, shared.MessageTypePartialLoanRepayment:
		d := Repayment{
			Type:             mt,
			LoanNumber:       r.required("LoanNumber"),
			PaymentReference: r.required("PaymentReference"),
			PaymentAmount:    r.requiredDecimal("PaymentAmount"),
			PaymentDate:      r.date("PaymentDate"),
			Description:      r.optional("PaymentDescription"),
		}
		if mt == shared.MessageTypePartialLoanRepayment {
			d.LoanBalance = r.requiredDecimal("LoanBalance")
		} else {
			d.LoanBalance = r.optionalDecimal("LoanBalance")
		}
		details = d
	case shared.MessageTypeLoanLiquidation:
		details = Liquidation{
			LoanNumber:        r.required("LoanNumber"),
			PaymentReference:  r.optional("PaymentReference"),
			LiquidationAmount: r.optionalDecimal("LiquidationAmount"),
			LiquidationDate:   r.date("LiquidationDate"),
			Reason:            r.optional("Reason"),
		}
	case shared.MessageTypeLoanStatusRequest:
		details = StatusRequest{ApplicationNumber: r.required("ApplicationNumber")}
	case shared.MessageTypeProductDetail:
		details = r.productCatalog()
	case shared.MessageTypeProductDecommission:
		codes := f.Strings("ProductCode")
		if len(codes) == 0 {
			return nil, shared.MissingDetailField(mt, "ProductCode")
		}
		details = Decommission{ProductCodes: codes}
	default:
		return nil, shared.UnexpectedMessageType(mt)
	}

	if r.err != nil {
		return nil, r.err
	}
	return details, nil
}

func (r *reader) loanOffer() LoanOfferRequest {
	emp := employee.Employee{
		CheckNumber:            r.required("CheckNumber"),
		FirstName:              r.optional("FirstName"),
		MiddleName:             r.optional("MiddleName"),
		LastName:               r.optional("LastName"),
		Sex:                    r.optional("Sex"),
		NIN:                    r.optional("NIN"),
		MobileNumber:           r.optional("MobileNumber"),
		EmailAddress:           r.optional("EmailAddress"),
		BankAccountNumber:      r.optional("BankAccountNumber"),
		VoteCode:               r.optional("VoteCode"),
		VoteName:               r.optional("VoteName"),
		DesignationCode:        r.optional("DesignationCode"),
		DesignationName:        r.optional("DesignationName"),
		EmploymentDate:         r.optionalDate("EmploymentDate"),
		RetirementDate:         r.optionalDate("RetirementDate"),
		BasicSalary:            r.optionalDecimal("BasicSalary"),
		NetSalary:              r.optionalDecimal("NetSalary"),
		OneThirdAmount:         r.optionalDecimal("OneThirdAmount"),
		TotalEmployeeDeduction: r.optionalDecimal("TotalEmployeeDeduction"),
	}
	return LoanOfferRequest{
		Employee:                emp,
		ApplicationNumber:       r.required("ApplicationNumber"),
		ProductCode:             r.required("ProductCode"),
		LoanPurpose:             r.optional("LoanPurpose"),
		RequestedAmount:         r.requiredDecimal("RequestedAmount"),
		DesiredDeductibleAmount: r.optionalDecimal("DesiredDeductibleAmount"),
		Tenure:                  r.optionalInt("Tenure"),
	}
}

func (r *reader) productCatalog() ProductCatalog {
	items := r.f.List("ProductDetail")
	if len(items) == 0 {
		r.fail(shared.MissingDetailField(r.mt, "ProductDetail"))
		return ProductCatalog{}
	}

	var out ProductCatalog
	for _, item := range items {
		pr := &reader{mt: r.mt, f: item}
		p := catalog.Product{
			Code:          pr.required("ProductCode"),
			Name:          pr.optional("ProductName"),
			Description:   pr.optional("ProductDescription"),
			ForExecutive:  pr.boolean("ForExecutive"),
			MinTenure:     pr.intOr("MinimumTenure", 0),
			MaxTenure:     pr.intOr("MaximumTenure", 0),
			InterestRate:  pr.requiredDecimal("InterestRate"),
			ProcessingFee: pr.optionalDecimal("ProcessFee"),
			Insurance:     pr.optionalDecimal("Insurance"),
			MinAmount:     pr.optionalDecimal("MinAmount"),
			MaxAmount:     pr.optionalDecimal("MaxAmount"),
			RepaymentType: pr.optional("RepaymentType"),
			Currency:      pr.optional("Currency"),
			DeductionCode: pr.optional("DeductionCode"),
			IsActive:      true,
		}
		for _, tc := range item.List("TermsAndConditions") {
			tr := &reader{mt: r.mt, f: tc}
			p.TermConditions = append(p.TermConditions, catalog.TermCondition{
				Number:        tr.required("TermsConditionNumber"),
				Description:   tr.optional("Description"),
				EffectiveDate: tr.optionalDate("TCEffectiveDate"),
			})
			pr.fail(tr.err)
		}
		r.fail(pr.err)
		out.Products = append(out.Products, ProductDetail{Product: p, FSPName: pr.optional("FSPName")})
	}
	return out
}

// reader extracts typed values from Fields, keeping the first error
type reader struct {
	mt  shared.MessageType
	f   Fields
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

func (r *reader) optional(key string) string {
	return r.f.String(key)
}

func (r *reader) required(key string) string {
	v := r.f.String(key)
	if v == "" {
		r.fail(shared.MissingDetailField(r.mt, key))
	}
	return v
}

func (r *reader) requiredDecimal(key string) decimal.Decimal {
	if !r.f.Has(key) {
		r.fail(shared.MissingDetailField(r.mt, key))
		return decimal.Zero
	}
	return r.optionalDecimal(key)
}

func (r *reader) optionalDecimal(key string) decimal.Decimal {
	raw := strings.ReplaceAll(r.f.String(key), ",", "")
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		r.fail(shared.InvalidDetailField(r.mt, key, err))
		return decimal.Zero
	}
	return d
}

func (r *reader) optionalInt(key string) *int {
	raw := r.f.String(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(shared.InvalidDetailField(r.mt, key, err))
		return nil
	}
	return &n
}

func (r *reader) intOr(key string, def int) int {
	if n := r.optionalInt(key); n != nil {
		return *n
	}
	return def
}

func (r *reader) boolean(key string) bool {
	switch strings.ToLower(r.f.String(key)) {
	case "", "false", "0", "no", "n":
		return false
	case "true", "1", "yes", "y":
		return true
	default:
		r.fail(shared.InvalidDetailField(r.mt, key, fmt.Errorf("not a boolean: %q", r.f.String(key))))
		return false
	}
}

// approval accepts APPROVED or REJECTED
func (r *reader) approval(key string) bool {
	switch strings.ToUpper(r.f.String(key)) {
	case "APPROVED":
		return true
	case "REJECTED":
		return false
	case "":
		r.fail(shared.MissingDetailField(r.mt, key))
	default:
		r.fail(shared.InvalidDetailField(r.mt, key, fmt.Errorf("expected APPROVED or REJECTED, got %q", r.f.String(key))))
	}
	return false
}

func (r *reader) optionalDate(key string) *time.Time {
	raw := r.f.String(key)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	r.fail(shared.InvalidDetailField(r.mt, key, fmt.Errorf("unrecognised date %q", raw)))
	return nil
}

// date returns the parsed value of key, or the current time when absent
func (r *reader) date(key string) time.Time {
	if t := r.optionalDate(key); t != nil {
		return *t
	}
	return time.Now().UTC()
}
