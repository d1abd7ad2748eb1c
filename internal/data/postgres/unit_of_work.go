package postgres

import (
	"context"
	"log/slog"

	"github.com/fsp-loan-gateway/internal/domain/uow"
	"github.com/fsp-loan-gateway/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork binds every repository to one pgx transaction per call
type UnitOfWork struct {
	db    *persistence.PostgresDB
	repos uow.Repos
}

func NewUnitOfWork(logger *slog.Logger, db *persistence.PostgresDB) *UnitOfWork {
	return &UnitOfWork{
		db: db,
		repos: uow.Repos{
			FSPs:         NewFSPRepository(logger, db),
			Products:     NewProductRepository(logger, db),
			Employees:    NewEmployeeRepository(logger, db),
			Applications: NewApplicationRepository(logger, db),
			Deductions:   NewDeductionRepository(logger, db),
			Repayments:   NewRepaymentRepository(logger, db),
			Outbox:       NewOutboxRepository(logger, db),
		},
	}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return fn(uow.Repos{
			FSPs:         u.repos.FSPs.WithTx(tx),
			Products:     u.repos.Products.WithTx(tx),
			Employees:    u.repos.Employees.WithTx(tx),
			Applications: u.repos.Applications.WithTx(tx),
			Deductions:   u.repos.Deductions.WithTx(tx),
			Repayments:   u.repos.Repayments.WithTx(tx),
			Outbox:       u.repos.Outbox.WithTx(tx),
		})
	})
}

