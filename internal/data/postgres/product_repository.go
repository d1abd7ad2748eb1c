package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fsp-loan-gateway/internal/domain/catalog"
	"github.com/fsp-loan-gateway/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const productColumns = `id, fsp_id, product_code, product_name, description, for_executive, min_tenure, max_tenure,
		interest_rate, processing_fee, insurance, min_amount, max_amount, repayment_type, currency,
		deduction_code, is_active, created_at, updated_at`

// ProductRepository implements catalog.ProductRepository for PostgreSQL
type ProductRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewProductRepository(logger *slog.Logger, db *persistence.PostgresDB) catalog.ProductRepository {
	return &ProductRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *ProductRepository) WithTx(tx pgx.Tx) catalog.ProductRepository {
	return &ProductRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *ProductRepository) GetByCode(ctx context.Context, fspID int64, code string) (*catalog.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM loan_products
		WHERE fsp_id = $1 AND product_code = $2
	`

	product, err := scanProduct(r.querier.QueryRow(ctx, query, fspID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound{ProductCode: code}
		}
		r.logger.Error("Failed to get loan product", "fsp_id", fspID, "product_code", code, "error", err)
		return nil, fmt.Errorf("failed to get loan product: %w", err)
	}

	return product, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*catalog.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM loan_products
		WHERE id = $1
	`

	product, err := scanProduct(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound{ID: id}
		}
		r.logger.Error("Failed to get loan product", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get loan product: %w", err)
	}

	return product, nil
}

// Upsert inserts or replaces the product published under (fsp_id, product_code).
// Republishing a decommissioned product reactivates it.
func (r *ProductRepository) Upsert(ctx context.Context, product *catalog.Product) error {
	query := `
		INSERT INTO loan_products (fsp_id, product_code, product_name, description, for_executive, min_tenure,
			max_tenure, interest_rate, processing_fee, insurance, min_amount, max_amount, repayment_type,
			currency, deduction_code, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		ON CONFLICT (fsp_id, product_code) DO UPDATE
		SET product_name = EXCLUDED.product_name,
			description = EXCLUDED.description,
			for_executive = EXCLUDED.for_executive,
			min_tenure = EXCLUDED.min_tenure,
			max_tenure = EXCLUDED.max_tenure,
			interest_rate = EXCLUDED.interest_rate,
			processing_fee = EXCLUDED.processing_fee,
			insurance = EXCLUDED.insurance,
			min_amount = EXCLUDED.min_amount,
			max_amount = EXCLUDED.max_amount,
			repayment_type = EXCLUDED.repayment_type,
			currency = EXCLUDED.currency,
			deduction_code = EXCLUDED.deduction_code,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.querier.QueryRow(ctx, query,
		product.FSPID,
		product.Code,
		product.Name,
		product.Description,
		product.ForExecutive,
		product.MinTenure,
		product.MaxTenure,
		product.InterestRate,
		product.ProcessingFee,
		product.Insurance,
		product.MinAmount,
		product.MaxAmount,
		product.RepaymentType,
		product.Currency,
		product.DeductionCode,
		product.IsActive,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to upsert loan product", "fsp_id", product.FSPID, "product_code", product.Code, "error", err)
		return fmt.Errorf("failed to upsert loan product: %w", err)
	}

	return nil
}

func (r *ProductRepository) UpsertTermCondition(ctx context.Context, tc *catalog.TermCondition) error {
	query := `
		INSERT INTO product_term_conditions (loan_product_id, terms_condition_number, description, effective_date,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (loan_product_id, terms_condition_number) DO UPDATE
		SET description = EXCLUDED.description,
			effective_date = EXCLUDED.effective_date,
			updated_at = NOW()
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		tc.ProductID,
		tc.Number,
		tc.Description,
		tc.EffectiveDate,
	).Scan(&tc.ID)
	if err != nil {
		r.logger.Error("Failed to upsert term condition", "loan_product_id", tc.ProductID, "number", tc.Number, "error", err)
		return fmt.Errorf("failed to upsert term condition: %w", err)
	}

	return nil
}

// Deactivate soft-disables the listed products. Already inactive products
// still count so repeating a decommission reports the same result.
func (r *ProductRepository) Deactivate(ctx context.Context, fspID int64, codes []string) (int64, error) {
	query := `
		UPDATE loan_products
		SET is_active = FALSE, updated_at = NOW()
		WHERE fsp_id = $1 AND product_code = ANY($2)
	`

	result, err := r.querier.Exec(ctx, query, fspID, codes)
	if err != nil {
		r.logger.Error("Failed to deactivate loan products", "fsp_id", fspID, "codes", codes, "error", err)
		return 0, fmt.Errorf("failed to deactivate loan products: %w", err)
	}

	return result.RowsAffected(), nil
}

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID,
		&p.FSPID,
		&p.Code,
		&p.Name,
		&p.Description,
		&p.ForExecutive,
		&p.MinTenure,
		&p.MaxTenure,
		&p.InterestRate,
		&p.ProcessingFee,
		&p.Insurance,
		&p.MinAmount,
		&p.MaxAmount,
		&p.RepaymentType,
		&p.Currency,
		&p.DeductionCode,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
