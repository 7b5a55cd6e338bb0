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
	"globalbooks/internal/service/catalog/domain"
)

// InventoryLedger mutates and reads stock counters.
type InventoryLedger interface {
	Apply(ctx context.Context, op domain.Operation, productID string, qty int) (domain.InventoryStatus, error)
	Status(ctx context.Context, productID string) (domain.InventoryStatus, error)
}

// Ledger keeps stock counters in the product store. Mutations of one product
// are serialised through the locker; different products proceed in parallel.
type Ledger struct {
	products domain.ProductRepository
	locker   keylock.Locker
	tracer   trace.Tracer
	log      logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewLedger(products domain.ProductRepository, locker keylock.Locker, tracer trace.Tracer, log logger.Logger, m *metrics.Metrics) *Ledger {
	return &Ledger{
		products: products,
		locker:   locker,
		tracer:   tracer,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) (domain.InventoryStatus, error) {
	return l.Apply(ctx, domain.OperationReserve, productID, qty)
}

func (l *Ledger) Release(ctx context.Context, productID string, qty int) (domain.InventoryStatus, error) {
	return l.Apply(ctx, domain.OperationRelease, productID, qty)
}

func (l *Ledger) Deduct(ctx context.Context, productID string, qty int) (domain.InventoryStatus, error) {
	return l.Apply(ctx, domain.OperationDeduct, productID, qty)
}

func (l *Ledger) Restore(ctx context.Context, productID string, qty int) (domain.InventoryStatus, error) {
	return l.Apply(ctx, domain.OperationRestore, productID, qty)
}

func (l *Ledger) Apply(ctx context.Context, op domain.Operation, productID string, qty int) (status domain.InventoryStatus, err error) {
	ctx, span := l.tracer.Start(ctx, "ledger."+strings.ToLower(string(op)))
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID), attribute.Int("quantity", qty))
	defer func() {
		l.metrics.InventoryOp(string(op), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(op)+" failed")
		}
	}()

	if strings.TrimSpace(productID) == "" {
		return domain.InventoryStatus{}, apperr.InvalidInput("product id is required")
	}
	if qty <= 0 {
		return domain.InventoryStatus{}, apperr.InvalidInput("quantity must be positive, got %d", qty)
	}

	unlock, err := l.locker.Lock(ctx, productID)
	if err != nil {
		return domain.InventoryStatus{}, apperr.Unavailable(err, "lock product %s", productID)
	}
	defer unlock()

	var clamped bool
	p, err := l.products.Mutate(ctx, productID, func(p *domain.Product) error {
		c, err := p.Apply(op, qty)
		if err != nil {
			return err
		}
		clamped = c
		p.UpdatedAt = l.now().UTC()
		return nil
	})
	if err != nil {
		return domain.InventoryStatus{}, err
	}

	if clamped {
		l.metrics.ReleaseClamped()
		l.log.Warn().
			Str("product_id", productID).
			Int("requested", qty).
			Msg("release exceeded reserved quantity, reservation clamped to zero")
		span.AddEvent("release clamped")
	}
	return p.Inventory(), nil
}

func (l *Ledger) Status(ctx context.Context, productID string) (domain.InventoryStatus, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.status")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID))

	if strings.TrimSpace(productID) == "" {
		return domain.InventoryStatus{}, apperr.InvalidInput("product id is required")
	}
	p, err := l.products.FindByID(ctx, productID)
	if err != nil {
		span.RecordError(err)
		return domain.InventoryStatus{}, err
	}
	return p.Inventory(), nil
}
