package lifecycle

import (
	"context"
	"time"

	"github.com/fsp-loan-gateway/internal/domain/loan"
	"github.com/fsp-loan-gateway/internal/domain/message"
	"github.com/shopspring/decimal"
)

// activeLoan locks a disbursed loan by loan number together with its active deduction
func (tc *txContext) activeLoan(ctx context.Context, loanNumber string) (*loan.Application, *loan.Deduction, error) {
	fsp, err := tc.resolveFSP(ctx)
	if err != nil {
		return nil, nil, err
	}
	app, err := tc.lockLoan(ctx, fsp, loanNumber, loan.StatusCompleted)
	if err != nil {
		return nil, nil, err
	}
	deduction, err := tc.repos.Deductions.GetActiveByApplication(ctx, app.ID)
	if err != nil {
		return nil, nil, err
	}
	return app, deduction, nil
}

func (e *Engine) handleRepayment(ctx context.Context, tc *txContext) (*Outcome, error) {
	req := tc.details.(message.Repayment)

	app, deduction, err := tc.activeLoan(ctx, req.LoanNumber)
	if err != nil {
		return nil, err
	}

	repaymentType := loan.RepaymentTypePartial
	if req.IsFull() {
		repaymentType = loan.RepaymentTypeFull
	}
	repayment := &loan.Repayment{
		ApplicationID:    app.ID,
		LoanNumber:       req.LoanNumber,
		Type:             repaymentType,
		PaymentReference: req.PaymentReference,
		Amount:           req.PaymentAmount,
		LoanBalance:      req.LoanBalance,
		PaymentDate:      req.PaymentDate,
		Description:      req.Description,
		CreatedAt:        time.Now().UTC(),
	}
	if err := tc.repos.Repayments.Create(ctx, repayment); err != nil {
		return nil, err
	}

	description := "Partial loan repayment recorded"
	if repayment.SettlesLoan() {
		if _, err := tc.repos.Deductions.DeactivateByApplication(ctx, app.ID, "Loan repaid"); err != nil {
			return nil, err
		}
		description = "Loan repayment recorded, loan settled"
	} else if err := tc.repos.Deductions.UpdateBalance(ctx, deduction.ID, req.LoanBalance); err != nil {
		return nil, err
	}

	if err := tc.emit(ctx, app, app.Status); err != nil {
		return nil, err
	}
	return success(description, map[string]interface{}{"LoanNumber": req.LoanNumber}), nil
}

func (e *Engine) handleLiquidation(ctx context.Context, tc *txContext) (*Outcome, error) {
	req := tc.details.(message.Liquidation)

	app, _, err := tc.activeLoan(ctx, req.LoanNumber)
	if err != nil {
		return nil, err
	}

	reference := req.PaymentReference
	if reference == "" {
		reference = tc.msg.Header.MsgID
	}
	repayment := &loan.Repayment{
		ApplicationID:    app.ID,
		LoanNumber:       req.LoanNumber,
		Type:             loan.RepaymentTypeLiquidation,
		PaymentReference: reference,
		Amount:           req.LiquidationAmount,
		LoanBalance:      decimal.Zero,
		PaymentDate:      req.LiquidationDate,
		Description:      req.Reason,
		CreatedAt:        time.Now().UTC(),
	}
	if err := tc.repos.Repayments.Create(ctx, repayment); err != nil {
		return nil, err
	}
	if _, err := tc.repos.Deductions.DeactivateByApplication(ctx, app.ID, orDefault(req.Reason, "Loan liquidated")); err != nil {
		return nil, err
	}
	if err := tc.emit(ctx, app, app.Status); err != nil {
		return nil, err
	}
	return success("Loan liquidation processed", map[string]interface{}{"LoanNumber": req.LoanNumber}), nil
}
