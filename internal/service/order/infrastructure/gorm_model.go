package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderModel struct {
	ID              string          `gorm:"primaryKey;type:varchar(16)"`
	CustomerID      string          `gorm:"type:varchar(64);index;not null"`
	Status          string          `gorm:"type:varchar(16);not null"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PaymentMethod   string          `gorm:"type:varchar(64);not null"`
	ShippingAddress string          `gorm:"type:text"`
	CreatedAt       time.Time       `gorm:"index"`
	UpdatedAt       time.Time
	Items           []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (OrderModel) TableName() string {
	return "orders"
}

type OrderItemModel struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	OrderID   string          `gorm:"type:varchar(16);index;not null"`
	Position  int             `gorm:"not null"`
	ProductID string          `gorm:"type:varchar(64);not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
}

func (OrderItemModel) TableName() string {
	return "order_item"
}
