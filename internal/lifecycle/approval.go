package lifecycle

import (
	"context"
	"time"

	"github.com/fsp-loan-gateway/internal/domain/loan"
	"github.com/fsp-loan-gateway/internal/domain/message"
)

const (
	defaultFSPRejection      = "Rejected by financial service provider"
	defaultEmployerRejection = "Rejected by employer"
	defaultCancellation      = "Canceled by employee"
	defaultDisbursementFail  = "Disbursement failed"
)

func orDefault(reason, fallback string) string {
	if reason == "" {
		return fallback
	}
	return reason
}

func (e *Engine) handleInitialApproval(ctx context.Context, tc *txContext) (*Outcome, error) {
	req := tc.details.(message.InitialApproval)

	fsp, err := tc.resolveFSP(ctx)
	if err != nil {
		return nil, err
	}
	app, err := tc.lockApplication(ctx, fsp, req.ApplicationNumber, loan.StatusLoanOfferAtFSP)
	if err != nil {
		return nil, err
	}

	prior := app.Status
	if req.Approved {
		err = app.ApproveByFSP(req.FSPReferenceNumber, req.LoanNumber, time.Now().UTC())
	} else {
		err = app.RejectByFSP(orDefault(req.Reason, defaultFSPRejection))
	}
	if err != nil {
		return nil, err
	}
	if err := tc.commit(ctx, app, prior); err != nil {
		return nil, err
	}
	return success("Loan initial approval processed", nil), nil
}

func (e *Engine) handleFinalApproval(ctx context.Context, tc *txContext) (*Outcome, error) {
	req := tc.details.(message.FinalApproval)

	fsp, err := tc.resolveFSP(ctx)
	if err != nil {
		return nil, err
	}
	app, err := tc.lockApplication(ctx, fsp, req.ApplicationNumber, loan.StatusLoanOfferAtEmployee)
	if err != nil {
		return nil, err
	}

	prior := app.Status
	if !req.Approved {
		if err := app.RejectByEmployer(orDefault(req.Reason, defaultEmployerRejection)); err != nil {
			return nil, err
		}
		if err := tc.commit(ctx, app, prior); err != nil {
			return nil, err
		}
		return success("Loan final approval processed", nil), nil
	}

	product, err := tc.repos.Products.GetByID(ctx, app.ProductID)
	if err != nil {
		return nil, err
	}
	if err := app.ApproveByEmployer(time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := tc.repos.Deductions.Create(ctx, loan.NewDeduction(app, product.DeductionCode, fsp.Name)); err != nil {
		return nil, err
	}
	if err := tc.commit(ctx, app, prior); err != nil {
		return nil, err
	}
	return success("Loan final approval processed", nil), nil
}

func (e *Engine) handleCancellation(ctx context.Context, tc *txContext) (*Outcome, error) {
	req := tc.details.(message.Cancellation)

	fsp, err := tc.resolveFSP(ctx)
	if err != nil {
		return nil, err
	}
	app, err := tc.lockApplication(ctx, fsp, req.ApplicationNumber, loan.StatusLoanOfferAtEmployee)
	if err != nil {
		return nil, err
	}

	prior := app.Status
	if err := app.Cancel(orDefault(req.Reason, defaultCancellation)); err != nil {
		return nil, err
	}
	if err := tc.commit(ctx, app, prior); err != nil {
		return nil, err
	}
	return success("Loan cancellation processed", nil), nil
}

func (e *Engine) handleDisbursement(ctx context.Context, tc *txContext) (*Outcome, error) {
	req := tc.details.(message.Disbursement)

	fsp, err := tc.resolveFSP(ctx)
	if err != nil {
		return nil, err
	}
	app, err := tc.lockApplication(ctx, fsp, req.ApplicationNumber, loan.StatusSubmittedForDisbursement)
	if err != nil {
		return nil, err
	}

	prior := app.Status
	if err := app.MarkDisbursed(req.DisbursementDate); err != nil {
		return nil, err
	}
	if err := tc.commit(ctx, app, prior); err != nil {
		return nil, err
	}
	return success("Loan disbursement processed", nil), nil
}

func (e *Engine) handleDisbursementFailure(ctx context.Context, tc *txContext) (*Outcome, error) {
	req := tc.details.(message.DisbursementFailure)

	fsp, err := tc.resolveFSP(ctx)
	if err != nil {
		return nil, err
	}
	app, err := tc.lockApplication(ctx, fsp, req.ApplicationNumber, loan.StatusSubmittedForDisbursement)
	if err != nil {
		return nil, err
	}

	prior := app.Status
	reason := orDefault(req.Reason, defaultDisbursementFail)
	if err := app.MarkDisbursementFailed(reason); err != nil {
		return nil, err
	}
	if _, err := tc.repos.Deductions.DeactivateByApplication(ctx, app.ID, reason); err != nil {
		return nil, err
	}
	if err := tc.commit(ctx, app, prior); err != nil {
		return nil, err
	}
	return success("Loan disbursement failure processed", nil), nil
}
