package infrastructure

import (
	"encoding/json"
	"sort"

	"globalbooks/internal/pkg/logger"
	"globalbooks/internal/service/order/domain"
)

// FromDomainOrder converts an order to its row and item rows.
func FromDomainOrder(o *domain.Order) (*OrderModel, error) {
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, err
	}
	items := o.Items()
	models := make([]OrderItemModel, len(items))
	for i, it := range items {
		models[i] = OrderItemModel{
			OrderID:   o.ID,
			Position:  i,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		}
	}
	return &OrderModel{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount(),
		PaymentMethod:   o.PaymentMethod,
		ShippingAddress: string(addr),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           models,
	}, nil
}

// ToDomainOrder rebuilds an order from its rows. An unreadable address is
// replaced by an empty one and logged; the order itself stays readable.
func ToDomainOrder(m *OrderModel, log logger.Logger) *domain.Order {
	var addr domain.ShippingAddress
	if m.ShippingAddress != "" {
		if err := json.Unmarshal([]byte(m.ShippingAddress), &addr); err != nil {
			log.Warn().Err(err).Str("order_id", m.ID).Msg("stored shipping address is not valid JSON")
			addr = domain.ShippingAddress{}
		}
	}

	rows := make([]OrderItemModel, len(m.Items))
	copy(rows, m.Items)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })

	items := make([]domain.OrderItem, len(rows))
	for i, r := range rows {
		items[i] = domain.OrderItem{
			ProductID: r.ProductID,
			Quantity:  r.Quantity,
			UnitPrice: r.UnitPrice,
			Subtotal:  r.Subtotal,
		}
	}
	return domain.Rehydrate(m.ID, m.CustomerID, domain.Status(m.Status), m.PaymentMethod, addr,
		items, m.CreatedAt.UTC(), m.UpdatedAt.UTC())
}
