package application

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/service/order/application/saga"
	"globalbooks/internal/service/order/domain"
)

// ItemRequest is one requested line. Price is optional and only used when
// the catalog has no price for the product and the fallback is enabled.
type ItemRequest struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

// CreateOrderRequest is the input of the create-order use case.
type CreateOrderRequest struct {
	CustomerID      string                 `json:"customerId"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	Items           []ItemRequest          `json:"items"`
	// IdempotencyKey comes from the Idempotency-Key header.
	IdempotencyKey string `json:"-"`
}

// toDraft validates the request without touching any collaborator.
func (req *CreateOrderRequest) toDraft() (saga.Draft, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return saga.Draft{}, apperr.InvalidInput("customerId is required")
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return saga.Draft{}, apperr.InvalidInput("paymentMethod is required")
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return saga.Draft{}, err
	}
	if len(req.Items) == 0 {
		return saga.Draft{}, apperr.InvalidInput("order must contain at least one item")
	}

	lines := make([]saga.LineItem, 0, len(req.Items))
	for i, it := range req.Items {
		productID := strings.TrimSpace(it.ProductID)
		if productID == "" {
			return saga.Draft{}, apperr.InvalidInput("items[%d]: productId is required", i)
		}
		if it.Quantity <= 0 {
			return saga.Draft{}, apperr.InvalidInput("items[%d]: quantity must be positive, got %d", i, it.Quantity)
		}
		line := saga.LineItem{ProductID: productID, Quantity: it.Quantity}
		if it.Price != nil {
			if it.Price.IsNegative() {
				return saga.Draft{}, apperr.InvalidInput("items[%d]: price must not be negative", i)
			}
			line.Price = decimal.NewNullDecimal(*it.Price)
		}
		lines = append(lines, line)
	}

	return saga.Draft{
		CustomerID:      strings.TrimSpace(req.CustomerID),
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		ShippingAddress: req.ShippingAddress.Normalize(),
		Lines:           lines,
	}, nil
}

type OrderItemResponse struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderResponse is the wire view of an order.
type OrderResponse struct {
	ID              string                 `json:"id"`
	CustomerID      string                 `json:"customerId"`
	Status          domain.Status          `json:"status"`
	Items           []OrderItemResponse    `json:"items"`
	TotalAmount     decimal.Decimal        `json:"totalAmount"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

func ToOrderResponse(o *domain.Order) *OrderResponse {
	items := o.Items()
	out := make([]OrderItemResponse, len(items))
	for i, it := range items {
		out[i] = OrderItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		}
	}
	return &OrderResponse{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		Status:          o.Status,
		Items:           out,
		TotalAmount:     o.TotalAmount(),
		PaymentMethod:   o.PaymentMethod,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// UpdateStatusRequest is the body of a status change.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}
