// Package saga builds an order through a chain of steps. Steps with side
// effects register compensations that undo them if a later step fails.
package saga

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"globalbooks/internal/pkg/logger"
	"globalbooks/internal/pkg/metrics"
	"globalbooks/internal/service/order/domain"
	"globalbooks/internal/service/order/domain/port"
)

// LineItem is a requested order line. Price is the caller's price, used only
// as a fallback.
type LineItem struct {
	ProductID string
	Quantity  int
	Price     decimal.NullDecimal
}

// Draft is a validated create-order request.
type Draft struct {
	CustomerID      string
	PaymentMethod   string
	ShippingAddress domain.ShippingAddress
	Lines           []LineItem
}

type compensation struct {
	step string
	fn   func(ctx context.Context) error
}

// OrderContext carries the state shared by the steps of one order creation.
type OrderContext struct {
	Ctx     context.Context
	Draft   Draft
	Tracer  trace.Tracer
	Log     logger.Logger
	Metrics *metrics.Metrics

	Catalog   port.CatalogService
	Inventory port.InventoryLedger

	// Items is filled by the pricing step.
	Items []domain.OrderItem
	// Order is filled by the create step.
	Order *domain.Order

	compensations []compensation
	compLock      sync.Mutex
}

// AddCompensation registers fn to undo a completed step. Compensations run
// in reverse order of registration.
func (c *OrderContext) AddCompensation(step string, fn func(ctx context.Context) error) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]compensation{{step: step, fn: fn}}, c.compensations...)
}

// TriggerCompensation runs every registered compensation once. It detaches
// from ctx cancellation so a timed-out request still rolls back. Failures are
// logged and do not stop the remaining compensations.
func (c *OrderContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	comps := c.compensations
	c.compensations = nil
	c.compLock.Unlock()
	if len(comps) == 0 {
		return
	}

	ctx, span := c.Tracer.Start(context.WithoutCancel(ctx), "saga.Compensate")
	defer span.End()
	span.SetAttributes(attribute.Int("compensations", len(comps)))
	c.Log.Info().Int("count", len(comps)).Str("customer_id", c.Draft.CustomerID).Msg("executing compensations")

	for _, comp := range comps {
		c.Metrics.Compensation(comp.step)
		if err := comp.fn(ctx); err != nil {
			span.RecordError(err, trace.WithAttributes(attribute.Bool("critical.error", true)))
			c.Log.Error().Err(err).Str("step", comp.step).Bool("critical", true).
				Msg("compensation failed, inventory needs manual reconciliation")
		}
	}
}

type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}
