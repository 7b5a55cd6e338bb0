package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductModel maps to the product table. Stock counters live on the same
// row so one row lock covers a ledger mutation.
type ProductModel struct {
	ID                string              `gorm:"primaryKey;size:64"`
	Title             string              `gorm:"size:255;index"`
	Author            string              `gorm:"size:255"`
	Category          string              `gorm:"size:64;index"`
	Price             decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	AvailableQuantity int                 `gorm:"not null;default:0"`
	ReservedQuantity  int                 `gorm:"not null;default:0"`
	UpdatedAt         time.Time
}

func (ProductModel) TableName() string {
	return "product"
}
