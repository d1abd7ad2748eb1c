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

// FSPRepository implements catalog.FSPRepository for PostgreSQL
type FSPRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewFSPRepository(logger *slog.Logger, db *persistence.PostgresDB) catalog.FSPRepository {
	return &FSPRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *FSPRepository) WithTx(tx pgx.Tx) catalog.FSPRepository {
	return &FSPRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *FSPRepository) GetByCode(ctx context.Context, code string) (*catalog.FSP, error) {
	query := `
		SELECT id, fsp_code, name, public_key, is_active, created_at, updated_at
		FROM fsps
		WHERE fsp_code = $1
	`

	var fsp catalog.FSP
	err := r.querier.QueryRow(ctx, query, code).Scan(
		&fsp.ID,
		&fsp.Code,
		&fsp.Name,
		&fsp.PublicKey,
		&fsp.IsActive,
		&fsp.CreatedAt,
		&fsp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrFSPNotFound{Code: code}
		}
		r.logger.Error("Failed to get FSP", "fsp_code", code, "error", err)
		return nil, fmt.Errorf("failed to get fsp: %w", err)
	}

	return &fsp, nil
}

// Upsert registers the provider or refreshes its name when one is given. The
// public key and active flag are administered out of band and left untouched
// on conflict.
func (r *FSPRepository) Upsert(ctx context.Context, fsp *catalog.FSP) error {
	query := `
		INSERT INTO fsps (fsp_code, name, is_active, created_at, updated_at)
		VALUES ($1, COALESCE(NULLIF($2, ''), $1), $3, $4, $5)
		ON CONFLICT (fsp_code) DO UPDATE
		SET name = COALESCE(NULLIF($2, ''), fsps.name), updated_at = EXCLUDED.updated_at
		RETURNING id, name, public_key, is_active
	`

	err := r.querier.QueryRow(ctx, query,
		fsp.Code,
		fsp.Name,
		fsp.IsActive,
		fsp.CreatedAt,
		fsp.UpdatedAt,
	).Scan(&fsp.ID, &fsp.Name, &fsp.PublicKey, &fsp.IsActive)
	if err != nil {
		r.logger.Error("Failed to upsert FSP", "fsp_code", fsp.Code, "error", err)
		return fmt.Errorf("failed to upsert fsp: %w", err)
	}

	return nil
}
