package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fsp-loan-gateway/internal/domain/loan"
	"github.com/fsp-loan-gateway/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DeductionRepository implements loan.DeductionRepository for PostgreSQL
type DeductionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewDeductionRepository(logger *slog.Logger, db *persistence.PostgresDB) loan.DeductionRepository {
	return &DeductionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *DeductionRepository) WithTx(tx pgx.Tx) loan.DeductionRepository {
	return &DeductionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *DeductionRepository) Create(ctx context.Context, d *loan.Deduction) error {
	query := `
		INSERT INTO deductions (loan_application_id, check_number, deduction_code, deduction_name, monthly_amount,
			balance_amount, is_active, start_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		d.ApplicationID,
		d.CheckNumber,
		d.DeductionCode,
		d.DeductionName,
		d.MonthlyAmount,
		d.BalanceAmount,
		d.IsActive,
		d.StartDate,
		d.CreatedAt,
		d.UpdatedAt,
	).Scan(&d.ID)
	if err != nil {
		r.logger.Error("Failed to create deduction", "loan_application_id", d.ApplicationID, "error", err)
		return fmt.Errorf("failed to create deduction: %w", err)
	}

	return nil
}

func (r *DeductionRepository) GetActiveByApplication(ctx context.Context, applicationID int64) (*loan.Deduction, error) {
	query := `
		SELECT id, loan_application_id, check_number, deduction_code, deduction_name, monthly_amount,
			balance_amount, is_active, deactivation_reason, start_date, deactivated_at, created_at, updated_at
		FROM deductions
		WHERE loan_application_id = $1 AND is_active
		ORDER BY id DESC
		LIMIT 1
	`

	var d loan.Deduction
	err := r.querier.QueryRow(ctx, query, applicationID).Scan(
		&d.ID,
		&d.ApplicationID,
		&d.CheckNumber,
		&d.DeductionCode,
		&d.DeductionName,
		&d.MonthlyAmount,
		&d.BalanceAmount,
		&d.IsActive,
		&d.DeactivationReason,
		&d.StartDate,
		&d.DeactivatedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrNoActiveDeduction{ApplicationID: applicationID}
		}
		r.logger.Error("Failed to get active deduction", "loan_application_id", applicationID, "error", err)
		return nil, fmt.Errorf("failed to get active deduction: %w", err)
	}

	return &d, nil
}

func (r *DeductionRepository) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	query := `
		UPDATE deductions
		SET balance_amount = $1, updated_at = NOW()
		WHERE id = $2 AND is_active
	`

	result, err := r.querier.Exec(ctx, query, balance, id)
	if err != nil {
		r.logger.Error("Failed to update deduction balance", "id", id, "error", err)
		return fmt.Errorf("failed to update deduction balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("failed to update deduction balance: deduction %d is not active", id)
	}

	return nil
}

// DeactivateByApplication closes every active deduction of the application and
// returns how many were closed
func (r *DeductionRepository) DeactivateByApplication(ctx context.Context, applicationID int64, reason string) (int64, error) {
	query := `
		UPDATE deductions
		SET is_active = FALSE, balance_amount = 0, deactivation_reason = $1, deactivated_at = NOW(), updated_at = NOW()
		WHERE loan_application_id = $2 AND is_active
	`

	result, err := r.querier.Exec(ctx, query, reason, applicationID)
	if err != nil {
		r.logger.Error("Failed to deactivate deductions", "loan_application_id", applicationID, "error", err)
		return 0, fmt.Errorf("failed to deactivate deductions: %w", err)
	}

	return result.RowsAffected(), nil
}
