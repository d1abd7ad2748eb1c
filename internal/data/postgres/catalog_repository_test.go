package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fsp-loan-gateway/internal/domain/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSPRepository_GetByCode(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &FSPRepository{querier: mock, logger: newTestLogger()}
	now := time.Now().UTC()
	query := `SELECT id, fsp_code, name, public_key, is_active, created_at, updated_at FROM fsps WHERE fsp_code = \$1`

	t.Run("success", func(t *testing.T) {
		expected := &catalog.FSP{ID: 1, Code: "FSP01", Name: "Acme Finance", PublicKey: "PEM", IsActive: true, CreatedAt: now, UpdatedAt: now}
		rows := pgxmock.NewRows([]string{"id", "fsp_code", "name", "public_key", "is_active", "created_at", "updated_at"}).
			AddRow(expected.ID, expected.Code, expected.Name, expected.PublicKey, expected.IsActive, expected.CreatedAt, expected.UpdatedAt)
		mock.ExpectQuery(query).WithArgs("FSP01").WillReturnRows(rows)

		fsp, err := repo.GetByCode(ctx, "FSP01")
		require.NoError(t, err)
		assert.Equal(t, expected, fsp)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("FSP99").WillReturnError(pgx.ErrNoRows)

		fsp, err := repo.GetByCode(ctx, "FSP99")
		assert.Nil(t, fsp)
		var notFound catalog.ErrFSPNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "FSP99", notFound.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFSPRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &FSPRepository{querier: mock, logger: newTestLogger()}
	query := `INSERT INTO fsps (.+) ON CONFLICT \(fsp_code\) DO UPDATE (.+) RETURNING id, name, public_key, is_active`

	t.Run("keeps the stored key", func(t *testing.T) {
		fsp := catalog.NewFSP("FSP01", "Acme Finance")
		mock.ExpectQuery(query).
			WithArgs("FSP01", "Acme Finance", true, fsp.CreatedAt, fsp.UpdatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id", "name", "public_key", "is_active"}).AddRow(int64(7), "Acme Finance", "PEM", false))

		require.NoError(t, repo.Upsert(ctx, fsp))
		assert.Equal(t, int64(7), fsp.ID)
		assert.Equal(t, "PEM", fsp.PublicKey)
		assert.False(t, fsp.IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unnamed catalog keeps the stored name", func(t *testing.T) {
		fsp := catalog.NewFSP("FSP01", "")
		mock.ExpectQuery(query).
			WithArgs("FSP01", "", true, fsp.CreatedAt, fsp.UpdatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id", "name", "public_key", "is_active"}).AddRow(int64(7), "Acme Finance", "PEM", true))

		require.NoError(t, repo.Upsert(ctx, fsp))
		assert.Equal(t, "Acme Finance", fsp.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs(anyArgs(5)...).WillReturnError(dbErr)

		err := repo.Upsert(ctx, catalog.NewFSP("FSP01", ""))
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to upsert fsp")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

var productColumnNames = []string{
	"id", "fsp_id", "product_code", "product_name", "description", "for_executive", "min_tenure", "max_tenure",
	"interest_rate", "processing_fee", "insurance", "min_amount", "max_amount", "repayment_type", "currency",
	"deduction_code", "is_active", "created_at", "updated_at",
}

func testProduct() *catalog.Product {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &catalog.Product{
		ID:            5,
		FSPID:         1,
		Code:          "PRD-1",
		Name:          "Salary Advance",
		Description:   "Payroll backed loan",
		MinTenure:     6,
		MaxTenure:     48,
		InterestRate:  decimal.RequireFromString("12"),
		ProcessingFee: decimal.RequireFromString("2"),
		Insurance:     decimal.RequireFromString("1"),
		MinAmount:     decimal.RequireFromString("100000"),
		MaxAmount:     decimal.RequireFromString("5000000"),
		RepaymentType: "Flat",
		Currency:      "TZS",
		DeductionCode: "DED-01",
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func productRow(p *catalog.Product) []any {
	return []any{
		p.ID, p.FSPID, p.Code, p.Name, p.Description, p.ForExecutive, p.MinTenure, p.MaxTenure,
		p.InterestRate, p.ProcessingFee, p.Insurance, p.MinAmount, p.MaxAmount, p.RepaymentType, p.Currency,
		p.DeductionCode, p.IsActive, p.CreatedAt, p.UpdatedAt,
	}
}

func TestProductRepository_Get(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProductRepository{querier: mock, logger: newTestLogger()}

	t.Run("by code", func(t *testing.T) {
		expected := testProduct()
		mock.ExpectQuery(`FROM loan_products WHERE fsp_id = \$1 AND product_code = \$2`).
			WithArgs(int64(1), "PRD-1").
			WillReturnRows(pgxmock.NewRows(productColumnNames).AddRow(productRow(expected)...))

		product, err := repo.GetByCode(ctx, 1, "PRD-1")
		require.NoError(t, err)
		assert.Equal(t, expected, product)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("by code not found", func(t *testing.T) {
		mock.ExpectQuery(`FROM loan_products WHERE fsp_id = \$1 AND product_code = \$2`).
			WithArgs(int64(1), "PRD-X").
			WillReturnError(pgx.ErrNoRows)

		product, err := repo.GetByCode(ctx, 1, "PRD-X")
		assert.Nil(t, product)
		var notFound catalog.ErrProductNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "PRD-X", notFound.ProductCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("by id not found", func(t *testing.T) {
		mock.ExpectQuery(`FROM loan_products WHERE id = \$1`).
			WithArgs(int64(77)).
			WillReturnError(pgx.ErrNoRows)

		product, err := repo.GetByID(ctx, 77)
		assert.Nil(t, product)
		assert.EqualError(t, err, "loan product not found: id 77")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProductRepository{querier: mock, logger: newTestLogger()}
	now := time.Now().UTC()

	t.Run("product", func(t *testing.T) {
		p := testProduct()
		p.ID = 0
		mock.ExpectQuery(`INSERT INTO loan_products (.+) ON CONFLICT \(fsp_id, product_code\) DO UPDATE (.+) RETURNING id, created_at, updated_at`).
			WithArgs(p.FSPID, p.Code, p.Name, p.Description, p.ForExecutive, p.MinTenure, p.MaxTenure,
				p.InterestRate, p.ProcessingFee, p.Insurance, p.MinAmount, p.MaxAmount, p.RepaymentType,
				p.Currency, p.DeductionCode, p.IsActive).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(9), now, now))

		require.NoError(t, repo.Upsert(ctx, p))
		assert.Equal(t, int64(9), p.ID)
		assert.Equal(t, now, p.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("term condition", func(t *testing.T) {
		effective := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		tc := &catalog.TermCondition{ProductID: 9, Number: "TC-1", Description: "No early fee", EffectiveDate: &effective}
		mock.ExpectQuery(`INSERT INTO product_term_conditions (.+) ON CONFLICT \(loan_product_id, terms_condition_number\)`).
			WithArgs(int64(9), "TC-1", "No early fee", &effective).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

		require.NoError(t, repo.UpsertTermCondition(ctx, tc))
		assert.Equal(t, int64(3), tc.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(`INSERT INTO loan_products`).WithArgs(anyArgs(16)...).WillReturnError(dbErr)

		err := repo.Upsert(ctx, testProduct())
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to upsert loan product")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_Deactivate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProductRepository{querier: mock, logger: newTestLogger()}
	query := `UPDATE loan_products SET is_active = FALSE, updated_at = NOW\(\) WHERE fsp_id = \$1 AND product_code = ANY\(\$2\)`

	t.Run("returns affected rows", func(t *testing.T) {
		codes := []string{"PRD-1", "PRD-2"}
		mock.ExpectExec(query).WithArgs(int64(1), codes).WillReturnResult(pgxmock.NewResult("UPDATE", 2))

		n, err := repo.Deactivate(ctx, 1, codes)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectExec(query).WithArgs(int64(1), []string{"PRD-1"}).WillReturnError(dbErr)

		n, err := repo.Deactivate(ctx, 1, []string{"PRD-1"})
		assert.Zero(t, n)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
