// Package postgres provides PostgreSQL implementations of the domain
// repositories and the unit of work that binds them to one transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fsp-loan-gateway/internal/domain/loan"
	"github.com/fsp-loan-gateway/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const applicationColumns = `id, application_number, employee_id, loan_product_id, fsp_id, check_number, status,
		requested_amount, desired_deductible_amount, tenure, interest_rate, processing_fee, insurance,
		interest_amount, net_loan_amount, total_amount_to_pay, monthly_return_amount, loan_purpose,
		fsp_reference_number, loan_number, rejection_reason, fsp_approval_date, employer_approval_date,
		disbursement_date, version, created_at, updated_at`

// ApplicationRepository implements loan.ApplicationRepository for PostgreSQL
type ApplicationRepository struct {
	querier persistence.Querier // Can be the pool or a pgx.Tx
	logger  *slog.Logger
}

func NewApplicationRepository(logger *slog.Logger, db *persistence.PostgresDB) loan.ApplicationRepository {
	return &ApplicationRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *ApplicationRepository) WithTx(tx pgx.Tx) loan.ApplicationRepository {
	return &ApplicationRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts a new application and sets app.ID. A second application
// with the same number yields loan.ErrDuplicateApplication.
func (r *ApplicationRepository) Create(ctx context.Context, app *loan.Application) error {
	query := `
		INSERT INTO loan_applications (application_number, employee_id, loan_product_id, fsp_id, check_number, status,
			requested_amount, desired_deductible_amount, tenure, interest_rate, processing_fee, insurance,
			interest_amount, net_loan_amount, total_amount_to_pay, monthly_return_amount, loan_purpose,
			version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		app.ApplicationNumber,
		app.EmployeeID,
		app.ProductID,
		app.FSPID,
		app.CheckNumber,
		app.Status,
		app.RequestedAmount,
		app.DesiredDeductibleAmount,
		app.Tenure,
		app.InterestRate,
		app.ProcessingFee,
		app.Insurance,
		app.InterestAmount,
		app.NetLoanAmount,
		app.TotalAmountToPay,
		app.MonthlyReturnAmount,
		app.LoanPurpose,
		app.Version,
		app.CreatedAt,
		app.UpdatedAt,
	).Scan(&app.ID)
	if err != nil {
		if isUniqueViolation(err, "loan_applications_application_number_key") {
			return loan.ErrDuplicateApplication{ApplicationNumber: app.ApplicationNumber}
		}
		r.logger.Error("Failed to create loan application", "application_number", app.ApplicationNumber, "error", err)
		return fmt.Errorf("failed to create loan application: %w", err)
	}

	return nil
}

// GetByApplicationNumber reads an application without locking it
func (r *ApplicationRepository) GetByApplicationNumber(ctx context.Context, applicationNumber string) (*loan.Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM loan_applications
		WHERE application_number = $1
	`

	app, err := scanApplication(r.querier.QueryRow(ctx, query, applicationNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrApplicationNotFound{ApplicationNumber: applicationNumber}
		}
		r.logger.Error("Failed to get loan application", "application_number", applicationNumber, "error", err)
		return nil, fmt.Errorf("failed to get loan application: %w", err)
	}

	return app, nil
}

// LockByApplicationNumber reads the application under a row lock held until
// the surrounding transaction ends
func (r *ApplicationRepository) LockByApplicationNumber(ctx context.Context, applicationNumber string) (*loan.Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM loan_applications
		WHERE application_number = $1
		FOR UPDATE
	`

	app, err := scanApplication(r.querier.QueryRow(ctx, query, applicationNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrApplicationNotFound{ApplicationNumber: applicationNumber}
		}
		r.logger.Error("Failed to lock loan application", "application_number", applicationNumber, "error", err)
		return nil, fmt.Errorf("failed to lock loan application: %w", err)
	}

	return app, nil
}

func (r *ApplicationRepository) LockByLoanNumber(ctx context.Context, loanNumber string) (*loan.Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM loan_applications
		WHERE loan_number = $1
		FOR UPDATE
	`

	app, err := scanApplication(r.querier.QueryRow(ctx, query, loanNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrApplicationNotFound{LoanNumber: loanNumber}
		}
		r.logger.Error("Failed to lock loan", "loan_number", loanNumber, "error", err)
		return nil, fmt.Errorf("failed to lock loan: %w", err)
	}

	return app, nil
}

// Update writes the mutable lifecycle columns. app.Version must already be
// incremented; the row is only updated if it still carries Version-1.
func (r *ApplicationRepository) Update(ctx context.Context, app *loan.Application) error {
	query := `
		UPDATE loan_applications
		SET status = $1, fsp_reference_number = $2, loan_number = $3, rejection_reason = $4,
			fsp_approval_date = $5, employer_approval_date = $6, disbursement_date = $7,
			version = $8, updated_at = $9
		WHERE id = $10 AND version = $11
	`

	result, err := r.querier.Exec(ctx, query,
		app.Status,
		app.FSPReferenceNumber,
		app.LoanNumber,
		app.RejectionReason,
		app.FSPApprovalDate,
		app.EmployerApprovalDate,
		app.DisbursementDate,
		app.Version,
		app.UpdatedAt,
		app.ID,
		app.Version-1,
	)
	if err != nil {
		if isUniqueViolation(err, "loan_applications_loan_number_key") {
			return fmt.Errorf("loan number %s is already assigned: %w", app.LoanNumberValue(), err)
		}
		r.logger.Error("Failed to update loan application", "application_number", app.ApplicationNumber, "error", err)
		return fmt.Errorf("failed to update loan application: %w", err)
	}

	if result.RowsAffected() == 0 {
		return loan.ErrConcurrentModification{ApplicationNumber: app.ApplicationNumber}
	}

	return nil
}

func scanApplication(row pgx.Row) (*loan.Application, error) {
	var app loan.Application
	err := row.Scan(
		&app.ID,
		&app.ApplicationNumber,
		&app.EmployeeID,
		&app.ProductID,
		&app.FSPID,
		&app.CheckNumber,
		&app.Status,
		&app.RequestedAmount,
		&app.DesiredDeductibleAmount,
		&app.Tenure,
		&app.InterestRate,
		&app.ProcessingFee,
		&app.Insurance,
		&app.InterestAmount,
		&app.NetLoanAmount,
		&app.TotalAmountToPay,
		&app.MonthlyReturnAmount,
		&app.LoanPurpose,
		&app.FSPReferenceNumber,
		&app.LoanNumber,
		&app.RejectionReason,
		&app.FSPApprovalDate,
		&app.EmployerApprovalDate,
		&app.DisbursementDate,
		&app.Version,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}
