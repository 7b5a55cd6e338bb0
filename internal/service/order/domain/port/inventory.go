package port

import "context"

// InventoryLedger is the outbound port to the inventory ledger. Every call
// is atomic for one product.
type InventoryLedger interface {
	Reserve(ctx context.Context, productID string, qty int) error
	// Release never fails because more is released than was reserved.
	Release(ctx context.Context, productID string, qty int) error
	Deduct(ctx context.Context, productID string, qty int) error
	// Restore undoes a Deduct.
	Restore(ctx context.Context, productID string, qty int) error
}
