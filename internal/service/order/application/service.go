package application

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/pkg/keylock"
	"globalbooks/internal/pkg/logger"
	"globalbooks/internal/pkg/metrics"
	"globalbooks/internal/service/order/application/saga"
	"globalbooks/internal/service/order/domain"
	"globalbooks/internal/service/order/domain/port"
)

// Options tunes the order service. Zero values pick the defaults.
type Options struct {
	AllowCallerPriceFallback bool
	IDAttempts               int
	// Idempotency is optional; without it Idempotency-Key is ignored.
	Idempotency port.IdempotencyStore
	NewID       func() string
	Now         func() time.Time
}

// Service orchestrates the order use cases.
type Service struct {
	orders    domain.OrderRepository
	catalog   port.CatalogService
	inventory port.InventoryLedger
	locks     keylock.Locker
	tracer    trace.Tracer
	log       logger.Logger
	metrics   *metrics.Metrics

	idempotency   port.IdempotencyStore
	allowFallback bool
	idAttempts    int
	newID         func() string
	now           func() time.Time
}

func NewService(orders domain.OrderRepository, catalog port.CatalogService, inventory port.InventoryLedger,
	locks keylock.Locker, tracer trace.Tracer, log logger.Logger, m *metrics.Metrics, opts Options) *Service {
	s := &Service{
		orders:        orders,
		catalog:       catalog,
		inventory:     inventory,
		locks:         locks,
		tracer:        tracer,
		log:           log,
		metrics:       m,
		idempotency:   opts.Idempotency,
		allowFallback: opts.AllowCallerPriceFallback,
		idAttempts:    opts.IDAttempts,
		newID:         opts.NewID,
		now:           opts.Now,
	}
	if s.idAttempts < 1 {
		s.idAttempts = 5
	}
	if s.newID == nil {
		s.newID = domain.NewID
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateOrderResult reports the created order. Replayed is set when the
// Idempotency-Key had already produced it.
type CreateOrderResult struct {
	Order    *domain.Order
	Replayed bool
}

// CreateOrder prices, reserves and persists a new order. Invalid requests fail
// before any side effect; any later failure releases the reservations made so
// far and surfaces as OrderRejected wrapping the cause.
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()

	draft, err := req.toDraft()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid order request")
		s.metrics.OrderRejected(string(apperr.KindInvalidInput))
		return nil, err
	}
	span.SetAttributes(attribute.String("customer.id", draft.CustomerID), attribute.Int("items", len(draft.Lines)))

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" && s.idempotency != nil {
		orderID, claimed, err := s.idempotency.Claim(ctx, key)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !claimed {
			span.AddEvent("idempotent replay", trace.WithAttributes(attribute.String("order.id", orderID)))
			s.metrics.IdempotentReplay()
			order, err := s.orders.FindByID(ctx, orderID)
			if err != nil {
				return nil, err
			}
			return &CreateOrderResult{Order: order, Replayed: true}, nil
		}
	} else {
		key = ""
	}

	order, err := s.runChain(ctx, draft)
	if key != "" {
		s.settleIdempotency(ctx, key, order, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order rejected")
		return nil, err
	}

	s.metrics.OrderCreated()
	span.SetAttributes(attribute.String("order.id", order.ID))
	s.log.Info().Str("order_id", order.ID).Str("customer_id", order.CustomerID).
		Str("total", order.TotalAmount().StringFixed(2)).Msg("order created")
	return &CreateOrderResult{Order: order}, nil
}

func (s *Service) runChain(ctx context.Context, draft saga.Draft) (*domain.Order, error) {
	orderCtx := &saga.OrderContext{
		Ctx:       ctx,
		Draft:     draft,
		Tracer:    s.tracer,
		Log:       s.log,
		Metrics:   s.metrics,
		Catalog:   s.catalog,
		Inventory: s.inventory,
	}

	if err := s.buildChain().Handle(orderCtx); err != nil {
		orderCtx.TriggerCompensation(ctx)
		reason := apperr.RootKind(err)
		s.metrics.OrderRejected(string(reason))
		s.log.Warn().Err(err).Str("customer_id", draft.CustomerID).Str("reason", string(reason)).Msg("order rejected")
		return nil, apperr.Wrap(err, apperr.KindOrderRejected, apperr.CodeOrderRejected, "order rejected")
	}
	return orderCtx.Order, nil
}

func (s *Service) settleIdempotency(ctx context.Context, key string, order *domain.Order, chainErr error) {
	ctx = context.WithoutCancel(ctx)
	if chainErr != nil {
		if err := s.idempotency.Abandon(ctx, key); err != nil {
			s.log.Error().Err(err).Str("idempotency_key", key).Msg("failed to abandon idempotency key")
		}
		return
	}
	if err := s.idempotency.Complete(ctx, key, order.ID); err != nil {
		s.log.Error().Err(err).Str("idempotency_key", key).Str("order_id", order.ID).
			Msg("failed to record idempotency key, a retry would create a second order")
	}
}

func (s *Service) buildChain() saga.Handler {
	chain := saga.NewPricingHandler(s.allowFallback)
	chain.
		SetNext(new(saga.InventoryHandler)).
		SetNext(saga.NewCreateOrderHandler(s.orders, s.newID, s.now, s.idAttempts))
	return chain
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return order, nil
}

// ListOrders returns the orders of customerID, or every order when it is empty.
func (s *Service) ListOrders(ctx context.Context, customerID string) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListOrders")
	defer span.End()

	orders, err := s.orders.ListByCustomer(ctx, strings.TrimSpace(customerID))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("orders", len(orders)))
	return orders, nil
}
