package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsp-loan-gateway/internal/domain/catalog"
	"github.com/fsp-loan-gateway/internal/domain/message"
	"github.com/fsp-loan-gateway/internal/domain/shared"
)

func (e *Engine) handleProductDetail(ctx context.Context, tc *txContext) (*Outcome, error) {
	req := tc.details.(message.ProductCatalog)

	fsp := catalog.NewFSP(tc.msg.Header.FSPCode, req.FSPName())
	if err := tc.repos.FSPs.Upsert(ctx, fsp); err != nil {
		return nil, err
	}

	for _, detail := range req.Products {
		product := detail.Product
		product.FSPID = fsp.ID
		if err := tc.repos.Products.Upsert(ctx, &product); err != nil {
			return nil, err
		}
		for _, term := range product.TermConditions {
			term.ProductID = product.ID
			if err := tc.repos.Products.UpsertTermCondition(ctx, &term); err != nil {
				return nil, err
			}
		}
	}

	tc.logger.Info("Product catalog updated", "products", len(req.Products))
	return success(fmt.Sprintf("%d product(s) processed", len(req.Products)), nil), nil
}

func (e *Engine) handleProductDecommission(ctx context.Context, tc *txContext) (*Outcome, error) {
	req := tc.details.(message.Decommission)

	fsp, err := tc.resolveFSP(ctx)
	if err != nil {
		return nil, err
	}

	n, err := tc.repos.Products.Deactivate(ctx, fsp.ID, req.ProductCodes)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, shared.NotFound("no products %s found for FSP %s", strings.Join(req.ProductCodes, ", "), fsp.Code)
	}
	return success(fmt.Sprintf("%d product(s) decommissioned", n), nil), nil
}
