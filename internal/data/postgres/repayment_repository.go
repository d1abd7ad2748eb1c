package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsp-loan-gateway/internal/domain/loan"
	"github.com/fsp-loan-gateway/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// RepaymentRepository implements loan.RepaymentRepository for PostgreSQL.
// Rows are never updated or deleted.
type RepaymentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewRepaymentRepository(logger *slog.Logger, db *persistence.PostgresDB) loan.RepaymentRepository {
	return &RepaymentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *RepaymentRepository) WithTx(tx pgx.Tx) loan.RepaymentRepository {
	return &RepaymentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *RepaymentRepository) Create(ctx context.Context, rp *loan.Repayment) error {
	query := `
		INSERT INTO loan_repayments (loan_application_id, loan_number, repayment_type, payment_reference, amount,
			loan_balance, payment_date, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		rp.ApplicationID,
		rp.LoanNumber,
		rp.Type,
		rp.PaymentReference,
		rp.Amount,
		rp.LoanBalance,
		rp.PaymentDate,
		rp.Description,
		rp.CreatedAt,
	).Scan(&rp.ID)
	if err != nil {
		r.logger.Error("Failed to create repayment",
			"loan_number", rp.LoanNumber,
			"payment_reference", rp.PaymentReference,
			"error", err,
		)
		return fmt.Errorf("failed to create repayment: %w", err)
	}

	return nil
}

// ListByLoanNumber returns the repayments of a loan oldest first
func (r *RepaymentRepository) ListByLoanNumber(ctx context.Context, loanNumber string) ([]*loan.Repayment, error) {
	query := `
		SELECT id, loan_application_id, loan_number, repayment_type, payment_reference, amount, loan_balance,
			payment_date, description, created_at
		FROM loan_repayments
		WHERE loan_number = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query, loanNumber)
	if err != nil {
		r.logger.Error("Failed to list repayments", "loan_number", loanNumber, "error", err)
		return nil, fmt.Errorf("failed to list repayments: %w", err)
	}
	defer rows.Close()

	var repayments []*loan.Repayment
	for rows.Next() {
		var rp loan.Repayment
		err := rows.Scan(
			&rp.ID,
			&rp.ApplicationID,
			&rp.LoanNumber,
			&rp.Type,
			&rp.PaymentReference,
			&rp.Amount,
			&rp.LoanBalance,
			&rp.PaymentDate,
			&rp.Description,
			&rp.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan repayment", "error", err)
			return nil, fmt.Errorf("failed to scan repayment: %w", err)
		}
		repayments = append(repayments, &rp)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over repayments", "error", err)
		return nil, fmt.Errorf("error iterating over repayments: %w", err)
	}

	return repayments, nil
}
