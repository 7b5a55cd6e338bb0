package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// CatalogService is the outbound port to catalog lookup.
type CatalogService interface {
	// ProductPrice returns the catalog price of a product. The result is
	// invalid when the catalog carries no price. Unknown products fail with
	// a NotFound error and an unreachable catalog with DependencyFailure.
	ProductPrice(ctx context.Context, productID string) (decimal.NullDecimal, error)
}
