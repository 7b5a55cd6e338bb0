package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/service/order/domain"
)

type stockOp func(ctx context.Context, productID string, qty int) error

// stockEffect is an inventory side effect of a status change together with
// the operation that undoes it.
type stockEffect struct {
	name     string
	apply    stockOp
	undo     stockOp
	undoStep string
}

// releaseEffect is undone by reserving the full quantity again, even when the
// release was clamped: the order is back in its earlier status and holds its
// whole reservation, or the undo fails and is logged for reconciliation.
func (s *Service) releaseEffect() *stockEffect {
	return &stockEffect{name: "release", apply: s.inventory.Release, undo: s.inventory.Reserve, undoStep: "re_reserve"}
}

func (s *Service) deductEffect() *stockEffect {
	return &stockEffect{name: "deduct", apply: s.inventory.Deduct, undo: s.inventory.Restore, undoStep: "restore_stock"}
}

// effectOf returns the inventory side effect of moving from -> to, or nil.
func (s *Service) effectOf(from, to domain.Status) *stockEffect {
	switch {
	case to == domain.StatusCancelled:
		return s.releaseEffect()
	case from == domain.StatusConfirmed && to == domain.StatusShipped:
		return s.deductEffect()
	}
	return nil
}

// applyAll runs e.apply for every item. When one fails, the items already
// done are undone in reverse order and the error is returned.
func (s *Service) applyAll(ctx context.Context, orderID string, items []domain.OrderItem, e *stockEffect) error {
	for i, it := range items {
		if err := e.apply(ctx, it.ProductID, it.Quantity); err != nil {
			s.log.Warn().Err(err).Str("order_id", orderID).Str("product_id", it.ProductID).
				Msgf("%s failed, undoing %d item(s)", e.name, i)
			s.undoAll(ctx, orderID, items[:i], e)
			return err
		}
	}
	return nil
}

func (s *Service) undoAll(ctx context.Context, orderID string, items []domain.OrderItem, e *stockEffect) {
	ctx = context.WithoutCancel(ctx)
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		s.metrics.Compensation(e.undoStep)
		if err := e.undo(ctx, it.ProductID, it.Quantity); err != nil {
			s.log.Error().Err(err).Bool("critical", true).
				Str("order_id", orderID).Str("product_id", it.ProductID).Int("quantity", it.Quantity).
				Msgf("%s compensation failed, inventory needs manual reconciliation", e.undoStep)
		}
	}
}

func (s *Service) lockOrder(ctx context.Context, id string) (func(), error) {
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return nil, apperr.Unavailable(err, "lock order %s", id)
	}
	return unlock, nil
}

// UpdateStatus moves an order to status. Changes of one order are serialised;
// the inventory side effect and the stored status are applied as a unit.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id), attribute.String("order.next_status", status))

	next, err := domain.ParseStatus(status)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	unlock, err := s.lockOrder(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer unlock()

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	prev := order.Status
	if err := order.TransitionTo(next, s.now().UTC()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition not allowed")
		return nil, err
	}

	items := order.Items()
	effect := s.effectOf(prev, next)
	if effect != nil {
		if err := s.applyAll(ctx, id, items, effect); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "inventory side effect failed")
			return nil, err
		}
		span.AddEvent("inventory " + effect.name + " applied")
	}

	if err := s.orders.UpdateStatus(ctx, id, next, order.UpdatedAt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist status")
		if effect != nil {
			s.undoAll(ctx, id, items, effect)
		}
		return nil, err
	}

	s.metrics.Transition(string(prev), string(next))
	s.log.Info().Str("order_id", id).Str("from", string(prev)).Str("to", string(next)).Msg("order status changed")
	return order, nil
}

// DeleteOrder removes a PENDING or CANCELLED order. A PENDING order still
// holds reservations, which are released first.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "app.DeleteOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	unlock, err := s.lockOrder(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer unlock()

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := order.CheckDeletable(); err != nil {
		span.RecordError(err)
		return err
	}

	items := order.Items()
	var effect *stockEffect
	if order.Status == domain.StatusPending {
		effect = s.releaseEffect()
		if err := s.applyAll(ctx, id, items, effect); err != nil {
			span.RecordError(err)
			return err
		}
	}

	if err := s.orders.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete order")
		if effect != nil {
			s.undoAll(ctx, id, items, effect)
		}
		return err
	}

	s.log.Info().Str("order_id", id).Str("status", string(order.Status)).Msg("order deleted")
	return nil
}
