package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"globalbooks/internal/pkg/apperr"
)

// Product is a catalog entry together with its stock counters.
// AvailableQuantity counts every unit on hand, reserved units included.
type Product struct {
	ID       string
	Title    string
	Author   string
	Category string
	// Price is invalid when the catalog carries no price for the product.
	Price             decimal.NullDecimal
	AvailableQuantity int
	ReservedQuantity  int
	UpdatedAt         time.Time
}

// Free is the number of units that can still be reserved.
func (p Product) Free() int {
	return p.AvailableQuantity - p.ReservedQuantity
}

func (p Product) Inventory() InventoryStatus {
	return InventoryStatus{
		ProductID:         p.ID,
		AvailableQuantity: p.AvailableQuantity,
		ReservedQuantity:  p.ReservedQuantity,
		UpdatedAt:         p.UpdatedAt,
	}
}

// InventoryStatus is a snapshot of a product's stock counters.
type InventoryStatus struct {
	ProductID         string    `json:"productId"`
	AvailableQuantity int       `json:"availableQuantity"`
	ReservedQuantity  int       `json:"reservedQuantity"`
	UpdatedAt         time.Time `json:"lastUpdated"`
}

func (s InventoryStatus) Free() int {
	return s.AvailableQuantity - s.ReservedQuantity
}

// PriceQuote is the price of qty units of one product.
type PriceQuote struct {
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
	Total     decimal.Decimal
}

// Quote prices qty units. A product without a price cannot be quoted.
func (p Product) Quote(qty int) (PriceQuote, error) {
	if qty <= 0 {
		return PriceQuote{}, apperr.InvalidInput("quantity must be positive, got %d", qty)
	}
	if !p.Price.Valid {
		return PriceQuote{}, apperr.New(apperr.KindDependencyFailure, apperr.CodeCalculationError,
			"product %s has no price", p.ID)
	}
	return PriceQuote{
		ProductID: p.ID,
		UnitPrice: p.Price.Decimal,
		Quantity:  qty,
		Total:     p.Price.Decimal.Mul(decimal.NewFromInt(int64(qty))),
	}, nil
}

// Validate checks a record before it is seeded into a store.
func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return apperr.InvalidInput("product id is required")
	}
	if p.AvailableQuantity < 0 || p.ReservedQuantity < 0 || p.ReservedQuantity > p.AvailableQuantity {
		return apperr.InvalidInput("product %s has inconsistent stock: available %d, reserved %d",
			p.ID, p.AvailableQuantity, p.ReservedQuantity)
	}
	if p.Price.Valid && p.Price.Decimal.IsNegative() {
		return apperr.InvalidInput("product %s has a negative price", p.ID)
	}
	return nil
}
