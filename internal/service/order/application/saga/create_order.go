package saga

import (
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/service/order/domain"
)

// CreateOrderHandler persists the order in PENDING. A generated id that
// collides with an existing order is replaced, up to attempts times.
type CreateOrderHandler struct {
	NextHandler
	repo     domain.OrderRepository
	newID    func() string
	now      func() time.Time
	attempts int
}

func NewCreateOrderHandler(repo domain.OrderRepository, newID func() string, now func() time.Time, attempts int) *CreateOrderHandler {
	if attempts < 1 {
		attempts = 1
	}
	return &CreateOrderHandler{repo: repo, newID: newID, now: now, attempts: attempts}
}

func (h *CreateOrderHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.CreateOrder")
	defer span.End()

	d := orderCtx.Draft
	for attempt := 1; attempt <= h.attempts; attempt++ {
		order, err := domain.NewOrder(h.newID(), d.CustomerID, d.PaymentMethod, d.ShippingAddress, orderCtx.Items, h.now().UTC())
		if err != nil {
			span.RecordError(err)
			return err
		}

		err = h.repo.Create(ctx, order)
		if errors.Is(err, domain.ErrDuplicateID) {
			span.AddEvent("order id collision", trace.WithAttributes(attribute.String("order.id", order.ID)))
			orderCtx.Log.Warn().Str("order_id", order.ID).Int("attempt", attempt).Msg("generated order id already exists")
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to persist order")
			return err
		}

		orderCtx.Order = order
		span.SetAttributes(attribute.String("order.id", order.ID))
		span.AddEvent("order saved in PENDING")
		return h.executeNext(orderCtx)
	}

	err := apperr.New(apperr.KindDependencyFailure, apperr.CodeInternal,
		"could not generate a unique order id after %d attempts", h.attempts)
	span.RecordError(err)
	span.SetStatus(codes.Error, "order id exhausted")
	return err
}
