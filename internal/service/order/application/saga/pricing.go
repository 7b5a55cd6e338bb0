package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/service/order/domain"
)

// PricingHandler resolves the unit price of every line concurrently. The
// catalog price wins; the caller's price is used only when the catalog has
// none and AllowCallerPrice is set.
type PricingHandler struct {
	NextHandler
	AllowCallerPrice bool
}

func NewPricingHandler(allowCallerPrice bool) *PricingHandler {
	return &PricingHandler{AllowCallerPrice: allowCallerPrice}
}

func (h *PricingHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Pricing")
	defer span.End()

	lines := orderCtx.Draft.Lines
	items := make([]domain.OrderItem, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	for i, line := range lines {
		g.Go(func() error {
			price, err := orderCtx.Catalog.ProductPrice(gctx, line.ProductID)
			if err != nil {
				return err
			}
			if !price.Valid {
				if !h.AllowCallerPrice || !line.Price.Valid {
					return apperr.InvalidInput("no price available for product %s", line.ProductID)
				}
				orderCtx.Metrics.PriceFallback()
				orderCtx.Log.Warn().
					Str("product_id", line.ProductID).
					Str("caller_price", line.Price.Decimal.String()).
					Msg("catalog has no price, using caller-supplied price")
				price = line.Price
			}
			item, err := domain.NewOrderItem(line.ProductID, line.Quantity, price.Decimal)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pricing failed")
		return err
	}

	orderCtx.Items = items
	span.SetAttributes(attribute.Int("items", len(items)))
	span.AddEvent("all items priced")
	return h.executeNext(orderCtx)
}
