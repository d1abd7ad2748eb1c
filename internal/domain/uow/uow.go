// Package uow defines the transactional boundary for processing one message.
package uow

import (
	"context"

	"github.com/fsp-loan-gateway/internal/domain/catalog"
	"github.com/fsp-loan-gateway/internal/domain/employee"
	"github.com/fsp-loan-gateway/internal/domain/loan"
	"github.com/fsp-loan-gateway/internal/domain/outbox"
)

// Repos are the repositories bound to one transaction
type Repos struct {
	FSPs         catalog.FSPRepository
	Products     catalog.ProductRepository
	Employees    employee.Repository
	Applications loan.ApplicationRepository
	Deductions   loan.DeductionRepository
	Repayments   loan.RepaymentRepository
	Outbox       outbox.Repository
}

// UnitOfWork runs fn in a single transaction. A non-nil error from fn rolls
// back every write made through r.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
