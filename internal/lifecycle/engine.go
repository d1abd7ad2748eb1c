// Package lifecycle drives loan applications through their multi-party
// lifecycle. Each inbound message runs as one transaction against the store.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fsp-loan-gateway/internal/domain/catalog"
	"github.com/fsp-loan-gateway/internal/domain/employee"
	"github.com/fsp-loan-gateway/internal/domain/loan"
	"github.com/fsp-loan-gateway/internal/domain/message"
	"github.com/fsp-loan-gateway/internal/domain/outbox"
	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/fsp-loan-gateway/internal/domain/uow"
)

type handlerFunc func(ctx context.Context, tc *txContext) (*Outcome, error)

// Engine implements Processor
type Engine struct {
	store            uow.UnitOfWork
	employerIdentity string
	recorder         TransitionRecorder
	logger           *slog.Logger
	handlers         map[shared.MessageType]handlerFunc
}

// NewEngine creates the lifecycle engine. employerIdentity is the only
// sender allowed to approve or cancel at the employer stage.
func NewEngine(logger *slog.Logger, store uow.UnitOfWork, employerIdentity string, recorder TransitionRecorder) *Engine {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	e := &Engine{
		store:            store,
		employerIdentity: employerIdentity,
		recorder:         recorder,
		logger:           logger,
	}
	e.handlers = map[shared.MessageType]handlerFunc{
		shared.MessageTypeLoanOfferRequest:        e.handleLoanOffer,
		shared.MessageTypeLoanChargesRequest:      e.handleLoanCharges,
		shared.MessageTypeLoanInitialApproval:     e.handleInitialApproval,
		shared.MessageTypeLoanFinalApproval:       e.handleFinalApproval,
		shared.MessageTypeLoanCancellation:        e.handleCancellation,
		shared.MessageTypeLoanDisbursement:        e.handleDisbursement,
		shared.MessageTypeLoanDisbursementFailure: e.handleDisbursementFailure,
		shared.MessageTypeFullLoanRepayment:       e.handleRepayment,
		shared.MessageTypePartialLoanRepayment:    e.handleRepayment,
		shared.MessageTypeLoanLiquidation:         e.handleLiquidation,
		shared.MessageTypeLoanStatusRequest:       e.handleStatusRequest,
		shared.MessageTypeProductDetail:           e.handleProductDetail,
		shared.MessageTypeProductDecommission:     e.handleProductDecommission,
	}
	return e
}

// restrictedToEmployer lists message types only the employer system may send
var restrictedToEmployer = map[shared.MessageType]bool{
	shared.MessageTypeLoanFinalApproval: true,
	shared.MessageTypeLoanCancellation:  true,
}

// txContext is the per-message state shared by a handler and the engine
type txContext struct {
	msg         *message.Message
	details     message.Details
	caller      Caller
	repos       uow.Repos
	transitions [][2]loan.Status
	logger      *slog.Logger
}

// Process checks msg against the endpoint's expected type, decodes its
// details and applies the matching transition atomically.
func (e *Engine) Process(ctx context.Context, expected shared.MessageType, msg *message.Message, caller Caller) (*Outcome, error) {
	header := msg.Header
	if header.MessageType != expected {
		return nil, shared.UnexpectedMessageType(header.MessageType, expected)
	}

	handler, ok := e.handlers[expected]
	if !ok {
		return nil, shared.UnexpectedMessageType(header.MessageType)
	}

	details, err := message.Parse(header.MessageType, msg.Fields)
	if err != nil {
		return nil, err
	}

	if restrictedToEmployer[header.MessageType] && header.Sender != e.employerIdentity {
		return nil, shared.UnauthorizedSender(header.Sender, header.MessageType)
	}

	logger := e.logger.With(
		"msg_id", header.MsgID,
		"fsp_code", header.FSPCode,
		"message_type", string(header.MessageType),
	)
	if caller.CorrelationID != "" {
		logger = logger.With("correlation_id", caller.CorrelationID)
	}

	tc := &txContext{msg: msg, details: details, caller: caller, logger: logger}
	var outcome *Outcome
	err = e.store.WithinTx(ctx, func(r uow.Repos) error {
		tc.repos = r
		tc.transitions = nil
		var herr error
		outcome, herr = handler(ctx, tc)
		return herr
	})
	if err != nil {
		err = translate(err)
		logger.Warn("Message processing failed", "error", err)
		return nil, err
	}

	for _, t := range tc.transitions {
		e.recorder.RecordTransition(t[0], t[1])
	}
	logger.Info("Message processed", "result_code", outcome.ResultCode)
	return outcome, nil
}

// resolveFSP loads the FSP named in the header
func (tc *txContext) resolveFSP(ctx context.Context) (*catalog.FSP, error) {
	fsp, err := tc.repos.FSPs.GetByCode(ctx, tc.msg.Header.FSPCode)
	if err != nil {
		return nil, err
	}
	if !fsp.IsActive {
		return nil, catalog.ErrFSPNotFound{Code: fsp.Code}
	}
	return fsp, nil
}

// lockApplication locks the application owned by fsp in the required status
func (tc *txContext) lockApplication(ctx context.Context, fsp *catalog.FSP, applicationNumber string, required loan.Status) (*loan.Application, error) {
	app, err := tc.repos.Applications.LockByApplicationNumber(ctx, applicationNumber)
	if err != nil {
		return nil, err
	}
	return tc.checkApplication(app, fsp, required)
}

func (tc *txContext) lockLoan(ctx context.Context, fsp *catalog.FSP, loanNumber string, required loan.Status) (*loan.Application, error) {
	app, err := tc.repos.Applications.LockByLoanNumber(ctx, loanNumber)
	if err != nil {
		return nil, err
	}
	return tc.checkApplication(app, fsp, required)
}

func (tc *txContext) checkApplication(app *loan.Application, fsp *catalog.FSP, required loan.Status) (*loan.Application, error) {
	if app.FSPID != fsp.ID {
		return nil, loan.ErrApplicationNotFound{ApplicationNumber: app.ApplicationNumber}
	}
	if app.Status != required {
		return nil, shared.NotFound("loan application %s is %s; %s requires %s",
			app.ApplicationNumber, app.Status, tc.msg.Header.MessageType, required)
	}
	return app, nil
}

// commit persists app after a transition from prior and queues its event
func (tc *txContext) commit(ctx context.Context, app *loan.Application, prior loan.Status) error {
	if err := tc.repos.Applications.Update(ctx, app); err != nil {
		return err
	}
	return tc.emit(ctx, app, prior)
}

func (tc *txContext) emit(ctx context.Context, app *loan.Application, prior loan.Status) error {
	h := tc.msg.Header
	event := outbox.NewLifecycleEvent(app, prior, h.FSPCode, h.MsgID, h.MessageType)
	event.CorrelationID = tc.caller.CorrelationID

	msg, err := outbox.NewMessage(event)
	if err != nil {
		return err
	}
	if err := tc.repos.Outbox.Create(ctx, msg); err != nil {
		return err
	}
	if prior != app.Status {
		tc.transitions = append(tc.transitions, [2]loan.Status{prior, app.Status})
	}
	tc.logger.Info("Loan application updated",
		"application_number", app.ApplicationNumber,
		"from_status", string(prior),
		"to_status", string(app.Status),
	)
	return nil
}

// translate maps store and domain errors onto gateway error kinds
func translate(err error) error {
	var gwErr *shared.Error
	if errors.As(err, &gwErr) {
		return err
	}

	var (
		fspNotFound      catalog.ErrFSPNotFound
		productNotFound  catalog.ErrProductNotFound
		employeeNotFound employee.ErrEmployeeNotFound
		appNotFound      loan.ErrApplicationNotFound
		noDeduction      loan.ErrNoActiveDeduction
		badTransition    loan.ErrInvalidTransition
		duplicate        loan.ErrDuplicateApplication
	)
	switch {
	case errors.As(err, &fspNotFound), errors.As(err, &productNotFound), errors.As(err, &employeeNotFound),
		errors.As(err, &appNotFound), errors.As(err, &noDeduction), errors.As(err, &badTransition):
		return shared.Wrap(shared.KindNotFound, err)
	case errors.As(err, &duplicate):
		return shared.DuplicateApplication(duplicate.ApplicationNumber)
	default:
		return shared.StoreFailure("processing message", err)
	}
}
