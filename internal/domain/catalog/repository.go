package catalog

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// FSPRepository defines provider persistence operations
type FSPRepository interface {
	GetByCode(ctx context.Context, code string) (*FSP, error)
	// Upsert inserts the provider or refreshes its name, keyed by code, and sets fsp.ID
	Upsert(ctx context.Context, fsp *FSP) error
	WithTx(tx pgx.Tx) FSPRepository
}

// ProductRepository defines loan product persistence operations
type ProductRepository interface {
	GetByCode(ctx context.Context, fspID int64, code string) (*Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	// Upsert inserts or updates the product keyed by (FSPID, Code) and sets product.ID
	Upsert(ctx context.Context, product *Product) error
	UpsertTermCondition(ctx context.Context, tc *TermCondition) error
	// Deactivate soft-disables the given product codes of one provider and
	// returns how many rows changed
	Deactivate(ctx context.Context, fspID int64, codes []string) (int64, error)
	WithTx(tx pgx.Tx) ProductRepository
}

// ErrFSPNotFound indicates an unknown provider code
type ErrFSPNotFound struct {
	Code string
}

func (e ErrFSPNotFound) Error() string {
	return "financial service provider not found: " + e.Code
}

// ErrProductNotFound indicates an unknown product code for a provider
type ErrProductNotFound struct {
	FSPCode     string
	ProductCode string
	ID          int64
}

func (e ErrProductNotFound) Error() string {
	if e.ProductCode == "" {
		return "loan product not found: id " + strconv.FormatInt(e.ID, 10)
	}
	if e.FSPCode == "" {
		return "loan product not found: " + e.ProductCode
	}
	return "loan product " + e.ProductCode + " not found for FSP " + e.FSPCode
}
