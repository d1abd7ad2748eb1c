package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsp-loan-gateway/internal/charges"
	"github.com/fsp-loan-gateway/internal/domain/catalog"
	"github.com/fsp-loan-gateway/internal/domain/loan"
	"github.com/fsp-loan-gateway/internal/domain/message"
	"github.com/fsp-loan-gateway/internal/domain/shared"
)

// activeProduct loads an active product published by fsp
func (tc *txContext) activeProduct(ctx context.Context, fsp *catalog.FSP, code string) (*catalog.Product, error) {
	product, err := tc.repos.Products.GetByCode(ctx, fsp.ID, code)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, catalog.ErrProductNotFound{FSPCode: fsp.Code, ProductCode: code}
	}
	return product, nil
}

func (e *Engine) handleLoanOffer(ctx context.Context, tc *txContext) (*Outcome, error) {
	req := tc.details.(message.LoanOfferRequest)

	fsp, err := tc.resolveFSP(ctx)
	if err != nil {
		return nil, err
	}
	product, err := tc.activeProduct(ctx, fsp, req.ProductCode)
	if err != nil {
		return nil, err
	}

	quote, err := charges.Compute(product, req.RequestedAmount, req.DesiredDeductibleAmount, req.Tenure)
	if err != nil {
		return nil, err
	}

	_, err = tc.repos.Applications.GetByApplicationNumber(ctx, req.ApplicationNumber)
	if err == nil {
		return nil, shared.DuplicateApplication(req.ApplicationNumber)
	}
	var notFound loan.ErrApplicationNotFound
	if !errors.As(err, &notFound) {
		return nil, err
	}

	emp := req.Employee
	emp.UpdatedAt = time.Now().UTC()
	if err := tc.repos.Employees.Upsert(ctx, &emp); err != nil {
		return nil, err
	}

	app := loan.NewApplication(req.ApplicationNumber)
	app.EmployeeID = emp.ID
	app.ProductID = product.ID
	app.FSPID = fsp.ID
	app.CheckNumber = emp.CheckNumber
	app.RequestedAmount = req.RequestedAmount
	app.DesiredDeductibleAmount = quote.DesiredDeductibleAmount
	app.Tenure = quote.Tenure
	app.InterestRate = product.InterestRate
	app.ProcessingFee = product.ProcessingFee
	app.Insurance = product.Insurance
	app.InterestAmount = quote.InterestAmount
	app.NetLoanAmount = quote.NetLoanAmount
	app.TotalAmountToPay = quote.TotalAmountToPay
	app.MonthlyReturnAmount = quote.MonthlyReturnAmount
	app.LoanPurpose = req.LoanPurpose

	prior := app.Status
	if err := app.TransitionTo(loan.StatusLoanOfferAtFSP); err != nil {
		return nil, err
	}
	if err := tc.repos.Applications.Create(ctx, app); err != nil {
		return nil, err
	}
	if err := tc.emit(ctx, app, prior); err != nil {
		return nil, err
	}

	details := quote.Fields()
	details["ApplicationNumber"] = app.ApplicationNumber
	return success("Loan offer request received", details), nil
}

func (e *Engine) handleLoanCharges(ctx context.Context, tc *txContext) (*Outcome, error) {
	req := tc.details.(message.LoanChargesRequest)

	fsp, err := tc.resolveFSP(ctx)
	if err != nil {
		return nil, err
	}
	product, err := tc.activeProduct(ctx, fsp, req.ProductCode)
	if err != nil {
		return nil, err
	}

	quote, err := charges.Compute(product, req.RequestedAmount, req.DesiredDeductibleAmount, req.Tenure)
	if err != nil {
		return nil, err
	}
	return success("Success", quote.Fields()), nil
}

func (e *Engine) handleStatusRequest(ctx context.Context, tc *txContext) (*Outcome, error) {
	req := tc.details.(message.StatusRequest)

	fsp, err := tc.resolveFSP(ctx)
	if err != nil {
		return nil, err
	}

	app, err := tc.repos.Applications.GetByApplicationNumber(ctx, req.ApplicationNumber)
	var notFound loan.ErrApplicationNotFound
	if errors.As(err, &notFound) || (err == nil && app.FSPID != fsp.ID) {
		return &Outcome{
			ResultCode:  shared.ResultCodeApplicationNotFound,
			Description: fmt.Sprintf("Loan application %s not found", req.ApplicationNumber),
			Details:     map[string]interface{}{"ApplicationNumber": req.ApplicationNumber},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	details := map[string]interface{}{
		"ApplicationNumber": app.ApplicationNumber,
		"LoanStatus":        string(app.Status),
	}
	if app.LoanNumber != nil {
		details["LoanNumber"] = *app.LoanNumber
	}
	if app.FSPReferenceNumber != "" {
		details["FSPReferenceNumber"] = app.FSPReferenceNumber
	}
	return success(app.Status.Description(), details), nil
}
