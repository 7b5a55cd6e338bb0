package adapter

import (
	"context"

	"github.com/shopspring/decimal"

	catalogapp "globalbooks/internal/service/catalog/application"
	catalogdomain "globalbooks/internal/service/catalog/domain"
)

// CatalogLocalAdapter serves port.CatalogService from a catalog embedded in
// the order process.
type CatalogLocalAdapter struct {
	catalog *catalogapp.Service
}

func NewCatalogLocalAdapter(catalog *catalogapp.Service) *CatalogLocalAdapter {
	return &CatalogLocalAdapter{catalog: catalog}
}

func (a *CatalogLocalAdapter) ProductPrice(ctx context.Context, productID string) (decimal.NullDecimal, error) {
	p, err := a.catalog.FindByID(ctx, productID)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return p.Price, nil
}

// InventoryLocalAdapter serves port.InventoryLedger from an embedded ledger.
type InventoryLocalAdapter struct {
	ledger catalogapp.InventoryLedger
}

func NewInventoryLocalAdapter(ledger catalogapp.InventoryLedger) *InventoryLocalAdapter {
	return &InventoryLocalAdapter{ledger: ledger}
}

func (a *InventoryLocalAdapter) apply(ctx context.Context, op catalogdomain.Operation, productID string, qty int) error {
	_, err := a.ledger.Apply(ctx, op, productID, qty)
	return err
}

func (a *InventoryLocalAdapter) Reserve(ctx context.Context, productID string, qty int) error {
	return a.apply(ctx, catalogdomain.OperationReserve, productID, qty)
}

func (a *InventoryLocalAdapter) Release(ctx context.Context, productID string, qty int) error {
	return a.apply(ctx, catalogdomain.OperationRelease, productID, qty)
}

func (a *InventoryLocalAdapter) Deduct(ctx context.Context, productID string, qty int) error {
	return a.apply(ctx, catalogdomain.OperationDeduct, productID, qty)
}

func (a *InventoryLocalAdapter) Restore(ctx context.Context, productID string, qty int) error {
	return a.apply(ctx, catalogdomain.OperationRestore, productID, qty)
}
