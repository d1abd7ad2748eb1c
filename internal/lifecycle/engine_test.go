package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/fsp-loan-gateway/internal/domain/catalog"
	"github.com/fsp-loan-gateway/internal/domain/loan"
	"github.com/fsp-loan-gateway/internal/domain/message"
	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/fsp-loan-gateway/internal/testutil/storemock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFSPCode  = "FSP01"
	fspSender    = "FSP01-SYSTEM"
	employerName = "ESS_EMPLOYER"
)

type recordingRecorder struct {
	mu          sync.Mutex
	transitions [][2]loan.Status
}

func (r *recordingRecorder) RecordTransition(from, to loan.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, [2]loan.Status{from, to})
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type fixture struct {
	engine   *Engine
	store    *storemock.Store
	recorder *recordingRecorder
	fsp      *catalog.FSP
	product  *catalog.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storemock.New()
	fsp := store.AddFSP(catalog.FSP{Code: testFSPCode, Name: "Acme Finance", IsActive: true})
	product := store.AddProduct(catalog.Product{
		FSPID:         fsp.ID,
		Code:          "PRD-1",
		MinTenure:     6,
		MaxTenure:     48,
		InterestRate:  decimal.NewFromInt(12),
		ProcessingFee: decimal.NewFromInt(2),
		Insurance:     decimal.NewFromInt(1),
		DeductionCode: "DED-01",
		IsActive:      true,
	})
	recorder := &recordingRecorder{}
	return &fixture{
		engine:   NewEngine(newTestLogger(), store, employerName, recorder),
		store:    store,
		recorder: recorder,
		fsp:      fsp,
		product:  product,
	}
}

func newMessage(mt shared.MessageType, sender string, fields message.Fields) *message.Message {
	return &message.Message{
		Header: message.Header{
			Sender:      sender,
			Receiver:    "GATEWAY",
			FSPCode:     testFSPCode,
			MsgID:       "MSG-" + string(mt),
			MessageType: mt,
		},
		Fields: fields,
	}
}

func (f *fixture) process(t *testing.T, mt shared.MessageType, sender string, fields message.Fields) (*Outcome, error) {
	t.Helper()
	return f.engine.Process(context.Background(), mt, newMessage(mt, sender, fields), Caller{CorrelationID: "corr-1"})
}

func (f *fixture) mustProcess(t *testing.T, mt shared.MessageType, sender string, fields message.Fields) *Outcome {
	t.Helper()
	outcome, err := f.process(t, mt, sender, fields)
	require.NoError(t, err)
	require.Equal(t, shared.ResultCodeSuccess, outcome.ResultCode)
	return outcome
}

func offerFields(applicationNumber string) message.Fields {
	return message.Fields{
		"CheckNumber":       "CHK-100",
		"FirstName":         "Asha",
		"LastName":          "Mrema",
		"ApplicationNumber": applicationNumber,
		"ProductCode":       "PRD-1",
		"RequestedAmount":   "1000000",
		"Tenure":            "12",
		"LoanPurpose":       "School fees",
	}
}

// disbursedLoan walks an application to COMPLETED with an active deduction
func (f *fixture) disbursedLoan(t *testing.T, applicationNumber, loanNumber string) {
	t.Helper()
	f.mustProcess(t, shared.MessageTypeLoanOfferRequest, fspSender, offerFields(applicationNumber))
	f.mustProcess(t, shared.MessageTypeLoanInitialApproval, fspSender, message.Fields{
		"ApplicationNumber":  applicationNumber,
		"Approval":           "APPROVED",
		"FSPReferenceNumber": "REF-" + applicationNumber,
		"LoanNumber":         loanNumber,
	})
	f.mustProcess(t, shared.MessageTypeLoanFinalApproval, employerName, message.Fields{
		"ApplicationNumber": applicationNumber,
		"Approval":          "APPROVED",
	})
	f.mustProcess(t, shared.MessageTypeLoanDisbursement, fspSender, message.Fields{
		"ApplicationNumber": applicationNumber,
		"DisbursementDate":  "2024-06-01",
	})
}

func activeDeductions(store *storemock.Store, applicationID int64) int {
	n := 0
	for _, d := range store.Deductions() {
		if d.ApplicationID == applicationID && d.IsActive {
			n++
		}
	}
	return n
}

func TestEngine_LoanOffer(t *testing.T) {
	t.Run("success snapshots terms", func(t *testing.T) {
		f := newFixture(t)

		outcome := f.mustProcess(t, shared.MessageTypeLoanOfferRequest, fspSender, offerFields("APP-1"))
		assert.Equal(t, "93333.33", outcome.Details["MonthlyReturnAmount"])
		assert.Equal(t, "APP-1", outcome.Details["ApplicationNumber"])

		app, ok := f.store.Application("APP-1")
		require.True(t, ok)
		assert.Equal(t, loan.StatusLoanOfferAtFSP, app.Status)
		assert.Equal(t, f.fsp.ID, app.FSPID)
		assert.Equal(t, f.product.ID, app.ProductID)
		assert.Equal(t, 12, app.Tenure)
		assert.Equal(t, "1120000.00", app.TotalAmountToPay.StringFixed(2))
		assert.Equal(t, "970000.00", app.NetLoanAmount.StringFixed(2))
		assert.True(t, app.InterestRate.Equal(decimal.NewFromInt(12)))

		emp, ok := f.store.Employee("CHK-100")
		require.True(t, ok)
		assert.Equal(t, emp.ID, app.EmployeeID)

		events := f.store.OutboxMessages()
		require.Len(t, events, 1)
		event, err := events[0].Event()
		require.NoError(t, err)
		assert.Equal(t, loan.StatusInitiated, event.FromStatus)
		assert.Equal(t, loan.StatusLoanOfferAtFSP, event.ToStatus)
		assert.Equal(t, "corr-1", event.CorrelationID)

		assert.Equal(t, [][2]loan.Status{{loan.StatusInitiated, loan.StatusLoanOfferAtFSP}}, f.recorder.transitions)
	})

	t.Run("employee upsert is idempotent by check number", func(t *testing.T) {
		f := newFixture(t)
		f.mustProcess(t, shared.MessageTypeLoanOfferRequest, fspSender, offerFields("APP-1"))
		f.mustProcess(t, shared.MessageTypeLoanOfferRequest, fspSender, offerFields("APP-2"))

		first, _ := f.store.Application("APP-1")
		second, _ := f.store.Application("APP-2")
		assert.Equal(t, first.EmployeeID, second.EmployeeID)
	})

	t.Run("duplicate application", func(t *testing.T) {
		f := newFixture(t)
		f.mustProcess(t, shared.MessageTypeLoanOfferRequest, fspSender, offerFields("APP-1"))

		_, err := f.process(t, shared.MessageTypeLoanOfferRequest, fspSender, offerFields("APP-1"))
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindDuplicateApplication))
		assert.Len(t, f.store.OutboxMessages(), 1)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newFixture(t)
		fields := offerFields("APP-1")
		fields["ProductCode"] = "NOPE"

		_, err := f.process(t, shared.MessageTypeLoanOfferRequest, fspSender, fields)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindNotFound))
		assert.Equal(t, 404, shared.HTTPStatus(err))
		_, ok := f.store.Employee("CHK-100")
		assert.False(t, ok)
	})

	t.Run("unknown fsp", func(t *testing.T) {
		f := newFixture(t)
		msg := newMessage(shared.MessageTypeLoanOfferRequest, fspSender, offerFields("APP-1"))
		msg.Header.FSPCode = "OTHER"

		_, err := f.engine.Process(context.Background(), shared.MessageTypeLoanOfferRequest, msg, Caller{})
		assert.True(t, shared.IsKind(err, shared.KindNotFound))
	})

	t.Run("zero tenure", func(t *testing.T) {
		f := newFixture(t)
		fields := offerFields("APP-1")
		fields["Tenure"] = "0"

		_, err := f.process(t, shared.MessageTypeLoanOfferRequest, fspSender, fields)
		assert.True(t, shared.IsKind(err, shared.KindInvalidTenure))
		_, ok := f.store.Application("APP-1")
		assert.False(t, ok)
	})

	t.Run("malformed details", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.process(t, shared.MessageTypeLoanOfferRequest, fspSender, message.Fields{"CheckNumber": "CHK-1"})
		assert.True(t, shared.IsKind(err, shared.KindMalformedPayload))
		assert.Equal(t, 0, f.store.TxCount)
	})
}

func TestEngine_UnexpectedMessageType(t *testing.T) {
	f := newFixture(t)
	msg := newMessage(shared.MessageTypeLoanDisbursement, fspSender, message.Fields{"ApplicationNumber": "APP-1"})

	_, err := f.engine.Process(context.Background(), shared.MessageTypeLoanFinalApproval, msg, Caller{})
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindUnexpectedMessageType))
	assert.Equal(t, 0, f.store.TxCount)
}

func TestEngine_LoanCharges(t *testing.T) {
	f := newFixture(t)

	outcome := f.mustProcess(t, shared.MessageTypeLoanChargesRequest, fspSender, message.Fields{
		"ProductCode":             "PRD-1",
		"RequestedAmount":         "1000000",
		"DesiredDeductibleAmount": "100000",
	})
	assert.Equal(t, 6, outcome.Details["Tenure"])
	assert.Equal(t, "1200000.00", outcome.Details["EligibleAmount"])
	assert.Equal(t, "60000.00", outcome.Details["TotalInterestRateAmount"])
	assert.Empty(t, f.store.OutboxMessages())
}

func TestEngine_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	f.disbursedLoan(t, "APP-1", "LN-1")

	app, _ := f.store.Application("APP-1")
	assert.Equal(t, loan.StatusCompleted, app.Status)
	assert.Equal(t, "LN-1", app.LoanNumberValue())
	assert.Equal(t, "REF-APP-1", app.FSPReferenceNumber)
	require.NotNil(t, app.DisbursementDate)
	assert.Equal(t, 2024, app.DisbursementDate.Year())
	assert.NotNil(t, app.EmployerApprovalDate)

	deductions := f.store.Deductions()
	require.Len(t, deductions, 1)
	assert.True(t, deductions[0].IsActive)
	assert.Equal(t, "DED-01", deductions[0].DeductionCode)
	assert.Equal(t, "Acme Finance", deductions[0].DeductionName)
	assert.Equal(t, "93333.33", deductions[0].MonthlyAmount.StringFixed(2))

	t.Run("partial repayment keeps deduction active", func(t *testing.T) {
		f.mustProcess(t, shared.MessageTypePartialLoanRepayment, fspSender, message.Fields{
			"LoanNumber":       "LN-1",
			"PaymentReference": "PAY-1",
			"PaymentAmount":    "100000",
			"LoanBalance":      "1020000",
		})

		app, _ := f.store.Application("APP-1")
		assert.Equal(t, loan.StatusCompleted, app.Status)
		assert.Equal(t, 1, activeDeductions(f.store, app.ID))
		assert.Equal(t, "1020000.00", f.store.Deductions()[0].BalanceAmount.StringFixed(2))
		assert.Len(t, f.store.Repayments(), 1)
	})

	t.Run("full repayment deactivates deduction", func(t *testing.T) {
		f.mustProcess(t, shared.MessageTypeFullLoanRepayment, fspSender, message.Fields{
			"LoanNumber":       "LN-1",
			"PaymentReference": "PAY-2",
			"PaymentAmount":    "1020000",
		})

		app, _ := f.store.Application("APP-1")
		assert.Equal(t, loan.StatusCompleted, app.Status)
		assert.Equal(t, 0, activeDeductions(f.store, app.ID))
		assert.Len(t, f.store.Repayments(), 2)
	})

	t.Run("repayment after settlement is rejected", func(t *testing.T) {
		_, err := f.process(t, shared.MessageTypePartialLoanRepayment, fspSender, message.Fields{
			"LoanNumber":       "LN-1",
			"PaymentReference": "PAY-3",
			"PaymentAmount":    "1",
			"LoanBalance":      "0",
		})
		assert.True(t, shared.IsKind(err, shared.KindNotFound))
		assert.Len(t, f.store.Repayments(), 2)
	})

	assert.Equal(t, [][2]loan.Status{
		{loan.StatusInitiated, loan.StatusLoanOfferAtFSP},
		{loan.StatusLoanOfferAtFSP, loan.StatusLoanOfferAtEmployee},
		{loan.StatusLoanOfferAtEmployee, loan.StatusSubmittedForDisbursement},
		{loan.StatusSubmittedForDisbursement, loan.StatusCompleted},
	}, f.recorder.transitions)
}

func TestEngine_PartialRepaymentSettlingBalance(t *testing.T) {
	f := newFixture(t)
	f.disbursedLoan(t, "APP-1", "LN-1")

	outcome := f.mustProcess(t, shared.MessageTypePartialLoanRepayment, fspSender, message.Fields{
		"LoanNumber":       "LN-1",
		"PaymentReference": "PAY-1",
		"PaymentAmount":    "1120000",
		"LoanBalance":      "0",
	})
	assert.Contains(t, outcome.Description, "settled")

	app, _ := f.store.Application("APP-1")
	assert.Equal(t, 0, activeDeductions(f.store, app.ID))
}

func TestEngine_Liquidation(t *testing.T) {
	f := newFixture(t)
	f.disbursedLoan(t, "APP-1", "LN-1")

	f.mustProcess(t, shared.MessageTypeLoanLiquidation, fspSender, message.Fields{
		"LoanNumber":        "LN-1",
		"LiquidationAmount": "500000",
	})

	app, _ := f.store.Application("APP-1")
	assert.Equal(t, loan.StatusCompleted, app.Status)
	assert.Equal(t, 0, activeDeductions(f.store, app.ID))
	repayments := f.store.Repayments()
	require.Len(t, repayments, 1)
	assert.Equal(t, loan.RepaymentTypeLiquidation, repayments[0].Type)
	assert.Equal(t, "MSG-"+string(shared.MessageTypeLoanLiquidation), repayments[0].PaymentReference)

	_, err := f.process(t, shared.MessageTypeLoanLiquidation, fspSender, message.Fields{"LoanNumber": "LN-1"})
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestEngine_InitialApprovalRejected(t *testing.T) {
	f := newFixture(t)
	f.mustProcess(t, shared.MessageTypeLoanOfferRequest, fspSender, offerFields("APP-1"))

	f.mustProcess(t, shared.MessageTypeLoanInitialApproval, fspSender, message.Fields{
		"ApplicationNumber": "APP-1",
		"Approval":          "REJECTED",
	})

	app, _ := f.store.Application("APP-1")
	assert.Equal(t, loan.StatusFSPRejected, app.Status)
	assert.Equal(t, defaultFSPRejection, app.RejectionReason)
	assert.Nil(t, app.LoanNumber)
}

func TestEngine_FinalApproval(t *testing.T) {
	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.mustProcess(t, shared.MessageTypeLoanOfferRequest, fspSender, offerFields("APP-1"))
		f.mustProcess(t, shared.MessageTypeLoanInitialApproval, fspSender, message.Fields{
			"ApplicationNumber": "APP-1", "Approval": "APPROVED", "FSPReferenceNumber": "REF-1", "LoanNumber": "LN-1",
		})
		return f
	}

	t.Run("unauthorized sender touches nothing", func(t *testing.T) {
		f := setup(t)
		txBefore := f.store.TxCount

		_, err := f.process(t, shared.MessageTypeLoanFinalApproval, fspSender, message.Fields{"ApplicationNumber": "APP-1", "Approval": "APPROVED"})
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindUnauthorizedSender))
		assert.Equal(t, txBefore, f.store.TxCount)

		app, _ := f.store.Application("APP-1")
		assert.Equal(t, loan.StatusLoanOfferAtEmployee, app.Status)
		assert.Empty(t, f.store.Deductions())
	})

	t.Run("employer rejection", func(t *testing.T) {
		f := setup(t)
		f.mustProcess(t, shared.MessageTypeLoanFinalApproval, employerName, message.Fields{
			"ApplicationNumber": "APP-1", "Approval": "REJECTED", "Reason": "Exceeds one third",
		})

		app, _ := f.store.Application("APP-1")
		assert.Equal(t, loan.StatusEmployerRejected, app.Status)
		assert.Equal(t, "Exceeds one third", app.RejectionReason)
		assert.Empty(t, f.store.Deductions())
	})

	t.Run("cancellation", func(t *testing.T) {
		f := setup(t)
		f.mustProcess(t, shared.MessageTypeLoanCancellation, employerName, message.Fields{"ApplicationNumber": "APP-1"})

		app, _ := f.store.Application("APP-1")
		assert.Equal(t, loan.StatusEmployeeCanceled, app.Status)
		assert.Equal(t, defaultCancellation, app.RejectionReason)
	})

	t.Run("cancellation requires employer sender", func(t *testing.T) {
		f := setup(t)
		_, err := f.process(t, shared.MessageTypeLoanCancellation, fspSender, message.Fields{"ApplicationNumber": "APP-1"})
		assert.True(t, shared.IsKind(err, shared.KindUnauthorizedSender))
	})
}

func TestEngine_DisbursementFailure(t *testing.T) {
	f := newFixture(t)
	f.mustProcess(t, shared.MessageTypeLoanOfferRequest, fspSender, offerFields("APP-1"))
	f.mustProcess(t, shared.MessageTypeLoanInitialApproval, fspSender, message.Fields{
		"ApplicationNumber": "APP-1", "Approval": "APPROVED", "FSPReferenceNumber": "REF-1", "LoanNumber": "LN-1",
	})
	f.mustProcess(t, shared.MessageTypeLoanFinalApproval, employerName, message.Fields{"ApplicationNumber": "APP-1", "Approval": "APPROVED"})

	f.mustProcess(t, shared.MessageTypeLoanDisbursementFailure, fspSender, message.Fields{
		"ApplicationNumber": "APP-1", "Reason": "Bank account closed",
	})

	app, _ := f.store.Application("APP-1")
	assert.Equal(t, loan.StatusDisbursementFailure, app.Status)
	assert.Equal(t, "Bank account closed", app.RejectionReason)
	assert.Equal(t, 0, activeDeductions(f.store, app.ID))
	require.Len(t, f.store.Deductions(), 1)
	assert.Equal(t, "Bank account closed", f.store.Deductions()[0].DeactivationReason)
}

func TestEngine_IllegalTransitionsDoNotMutate(t *testing.T) {
	f := newFixture(t)
	f.mustProcess(t, shared.MessageTypeLoanOfferRequest, fspSender, offerFields("APP-1"))
	before, _ := f.store.Application("APP-1")
	eventsBefore := len(f.store.OutboxMessages())

	cases := []struct {
		mt     shared.MessageType
		sender string
		fields message.Fields
	}{
		{shared.MessageTypeLoanDisbursement, fspSender, message.Fields{"ApplicationNumber": "APP-1"}},
		{shared.MessageTypeLoanDisbursementFailure, fspSender, message.Fields{"ApplicationNumber": "APP-1"}},
		{shared.MessageTypeLoanFinalApproval, employerName, message.Fields{"ApplicationNumber": "APP-1", "Approval": "APPROVED"}},
		{shared.MessageTypeLoanCancellation, employerName, message.Fields{"ApplicationNumber": "APP-1"}},
		{shared.MessageTypeLoanInitialApproval, fspSender, message.Fields{"ApplicationNumber": "APP-404", "Approval": "REJECTED"}},
	}

	for _, tc := range cases {
		t.Run(string(tc.mt), func(t *testing.T) {
			_, err := f.process(t, tc.mt, tc.sender, tc.fields)
			require.Error(t, err)
			assert.True(t, shared.IsKind(err, shared.KindNotFound), err.Error())

			after, _ := f.store.Application("APP-1")
			assert.Equal(t, before, after)
			assert.Len(t, f.store.OutboxMessages(), eventsBefore)
		})
	}
}

func TestEngine_ApplicationOfAnotherFSP(t *testing.T) {
	f := newFixture(t)
	f.mustProcess(t, shared.MessageTypeLoanOfferRequest, fspSender, offerFields("APP-1"))
	f.store.AddFSP(catalog.FSP{Code: "FSP02", Name: "Other", IsActive: true})

	msg := newMessage(shared.MessageTypeLoanInitialApproval, fspSender, message.Fields{"ApplicationNumber": "APP-1", "Approval": "REJECTED"})
	msg.Header.FSPCode = "FSP02"
	_, err := f.engine.Process(context.Background(), shared.MessageTypeLoanInitialApproval, msg, Caller{})
	assert.True(t, shared.IsKind(err, shared.KindNotFound))

	app, _ := f.store.Application("APP-1")
	assert.Equal(t, loan.StatusLoanOfferAtFSP, app.Status)
}

func TestEngine_StatusRequest(t *testing.T) {
	f := newFixture(t)

	t.Run("unknown application is a successful envelope", func(t *testing.T) {
		outcome, err := f.process(t, shared.MessageTypeLoanStatusRequest, fspSender, message.Fields{"ApplicationNumber": "APP-404"})
		require.NoError(t, err)
		assert.Equal(t, shared.ResultCodeApplicationNotFound, outcome.ResultCode)
		assert.Contains(t, outcome.Description, "APP-404")
	})

	t.Run("known application", func(t *testing.T) {
		f.mustProcess(t, shared.MessageTypeLoanOfferRequest, fspSender, offerFields("APP-1"))

		outcome := f.mustProcess(t, shared.MessageTypeLoanStatusRequest, fspSender, message.Fields{"ApplicationNumber": "APP-1"})
		assert.Equal(t, loan.StatusLoanOfferAtFSP.Description(), outcome.Description)
		assert.Equal(t, string(loan.StatusLoanOfferAtFSP), outcome.Details["LoanStatus"])
	})
}

func TestEngine_ProductCatalog(t *testing.T) {
	catalogFields := func() message.Fields {
		return message.Fields{
			"ProductDetail": []interface{}{
				map[string]interface{}{
					"ProductCode":   "PRD-9",
					"ProductName":   "Salary Advance",
					"MinimumTenure": "3",
					"MaximumTenure": "24",
					"InterestRate":  "15",
					"DeductionCode": "DED-9",
					"FSPName":       "New Finance",
					"TermsAndConditions": []interface{}{
						map[string]interface{}{"TermsConditionNumber": "TC-1", "Description": "First"},
						map[string]interface{}{"TermsConditionNumber": "TC-2", "Description": "Second"},
					},
				},
			},
		}
	}

	t.Run("upsert is idempotent and creates the fsp", func(t *testing.T) {
		f := newFixture(t)
		msg := newMessage(shared.MessageTypeProductDetail, "NEWFSP-SYS", catalogFields())
		msg.Header.FSPCode = "FSP09"

		_, err := f.engine.Process(context.Background(), shared.MessageTypeProductDetail, msg, Caller{})
		require.NoError(t, err)
		msg.Fields = catalogFields()
		_, err = f.engine.Process(context.Background(), shared.MessageTypeProductDetail, msg, Caller{})
		require.NoError(t, err)

		fsp, ok := f.store.FSP("FSP09")
		require.True(t, ok)
		assert.Equal(t, "New Finance", fsp.Name)

		var matches []catalog.Product
		for _, p := range f.store.Products() {
			if p.Code == "PRD-9" {
				matches = append(matches, p)
			}
		}
		require.Len(t, matches, 1)
		assert.Equal(t, fsp.ID, matches[0].FSPID)
		assert.True(t, matches[0].IsActive)
		assert.Len(t, f.store.TermConditions(matches[0].ID), 2)
	})

	t.Run("catalog without a provider name keeps the stored name", func(t *testing.T) {
		f := newFixture(t)
		msg := newMessage(shared.MessageTypeProductDetail, "NEWFSP-SYS", catalogFields())
		msg.Header.FSPCode = "FSP09"
		_, err := f.engine.Process(context.Background(), shared.MessageTypeProductDetail, msg, Caller{})
		require.NoError(t, err)

		unnamed := catalogFields()
		delete(unnamed["ProductDetail"].([]interface{})[0].(map[string]interface{}), "FSPName")
		msg.Fields = unnamed
		_, err = f.engine.Process(context.Background(), shared.MessageTypeProductDetail, msg, Caller{})
		require.NoError(t, err)

		fsp, ok := f.store.FSP("FSP09")
		require.True(t, ok)
		assert.Equal(t, "New Finance", fsp.Name)
	})

	t.Run("decommission", func(t *testing.T) {
		f := newFixture(t)

		outcome := f.mustProcess(t, shared.MessageTypeProductDecommission, fspSender, message.Fields{"ProductCode": []interface{}{"PRD-1"}})
		assert.Contains(t, outcome.Description, "1 product")

		for _, p := range f.store.Products() {
			if p.Code == "PRD-1" {
				assert.False(t, p.IsActive)
			}
		}

		_, err := f.process(t, shared.MessageTypeLoanOfferRequest, fspSender, offerFields("APP-1"))
		assert.True(t, shared.IsKind(err, shared.KindNotFound))
	})

	t.Run("decommission of unknown product", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.process(t, shared.MessageTypeProductDecommission, fspSender, message.Fields{"ProductCode": "NOPE"})
		assert.True(t, shared.IsKind(err, shared.KindNotFound))
	})
}

func TestEngine_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailWith = errors.New("connection reset")

	_, err := f.process(t, shared.MessageTypeLoanStatusRequest, fspSender, message.Fields{"ApplicationNumber": "APP-1"})
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindStoreFailure))
	assert.Equal(t, 500, shared.HTTPStatus(err))
}
