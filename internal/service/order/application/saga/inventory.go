package saga

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const stepRelease = "release_reservation"

// InventoryHandler reserves stock for each item in order. Reservations are
// independent per product, so every success registers a release that undoes
// it if a later item or step fails.
type InventoryHandler struct {
	NextHandler
}

func (h *InventoryHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.InventoryReserve")
	defer span.End()

	for _, item := range orderCtx.Items {
		if err := orderCtx.Inventory.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "inventory reservation failed")
			span.SetAttributes(attribute.String("failed.product", item.ProductID))
			return err
		}

		productID, qty := item.ProductID, item.Quantity
		orderCtx.AddCompensation(stepRelease, func(compCtx context.Context) error {
			compCtx, compSpan := orderCtx.Tracer.Start(compCtx, "saga.compensation.ReleaseStock")
			defer compSpan.End()
			compSpan.SetAttributes(attribute.String("product.id", productID), attribute.Int("quantity", qty))

			err := orderCtx.Inventory.Release(compCtx, productID, qty)
			if err != nil {
				compSpan.RecordError(err)
			}
			return err
		})
	}

	span.AddEvent("all items reserved")
	return h.executeNext(orderCtx)
}
