package application

import (
	"context"
	"iter"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/pkg/logger"
	"globalbooks/internal/service/catalog/domain"
)

// StockSeeder is implemented by ledgers that keep counters outside the
// product store and need them loaded at startup.
type StockSeeder interface {
	Seed(ctx context.Context, status domain.InventoryStatus) error
}

// Service is the catalog lookup and inventory surface.
type Service struct {
	products domain.ProductRepository
	ledger   InventoryLedger
	filters  domain.FilterCompiler
	tracer   trace.Tracer
	log      logger.Logger
	// external is set when the ledger does not read the product store, so
	// stock counters must be overlaid from the ledger.
	external bool
}

// NewService builds the catalog service. filters may be nil, in which case
// filter expressions are rejected.
func NewService(products domain.ProductRepository, ledger InventoryLedger, filters domain.FilterCompiler, tracer trace.Tracer, log logger.Logger) *Service {
	_, storeLedger := ledger.(*Ledger)
	return &Service{
		products: products,
		ledger:   ledger,
		filters:  filters,
		tracer:   tracer,
		log:      log,
		external: !storeLedger,
	}
}

func (s *Service) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "app.FindProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID))

	if strings.TrimSpace(productID) == "" {
		return domain.Product{}, apperr.InvalidInput("product id is required")
	}
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "find product failed")
		return domain.Product{}, err
	}
	return s.overlay(ctx, p)
}

// Search validates c and returns the matching products as a lazy sequence.
// Every range over the sequence queries the store again.
func (s *Service) Search(ctx context.Context, c domain.Criteria) (iter.Seq2[domain.Product, error], error) {
	if c.MinPrice.Valid && c.MaxPrice.Valid && c.MinPrice.Decimal.GreaterThan(c.MaxPrice.Decimal) {
		return nil, apperr.InvalidInput("minPrice %s is greater than maxPrice %s", c.MinPrice.Decimal, c.MaxPrice.Decimal)
	}
	if (c.MinPrice.Valid && c.MinPrice.Decimal.IsNegative()) || (c.MaxPrice.Valid && c.MaxPrice.Decimal.IsNegative()) {
		return nil, apperr.InvalidInput("price bounds must not be negative")
	}

	var pred domain.Predicate
	if strings.TrimSpace(c.Filter) != "" {
		if s.filters == nil {
			return nil, apperr.InvalidInput("filter expressions are not supported")
		}
		var err error
		if pred, err = s.filters.Compile(c.Filter); err != nil {
			return nil, err
		}
	}

	return func(yield func(domain.Product, error) bool) {
		ctx, span := s.tracer.Start(ctx, "app.SearchProducts")
		defer span.End()

		matched := 0
		for p, err := range s.products.Search(ctx, c) {
			if err != nil {
				span.RecordError(err)
				yield(domain.Product{}, err)
				return
			}
			if p, err = s.overlay(ctx, p); err != nil {
				yield(domain.Product{}, err)
				return
			}
			if c.InStockOnly && p.Free() <= 0 {
				continue
			}
			if pred != nil {
				ok, err := pred.Match(p)
				if err != nil {
					yield(domain.Product{}, err)
					return
				}
				if !ok {
					continue
				}
			}
			matched++
			if !yield(p, nil) {
				break
			}
		}
		span.SetAttributes(attribute.Int("search.matched", matched))
	}, nil
}

// PriceQuote prices qty units of a product.
func (s *Service) PriceQuote(ctx context.Context, productID string, qty int) (domain.PriceQuote, error) {
	ctx, span := s.tracer.Start(ctx, "app.PriceQuote")
	defer span.End()

	if qty <= 0 {
		return domain.PriceQuote{}, apperr.InvalidInput("quantity must be positive, got %d", qty)
	}
	p, err := s.FindByID(ctx, productID)
	if err != nil {
		return domain.PriceQuote{}, err
	}
	q, err := p.Quote(qty)
	if err != nil {
		span.RecordError(err)
		return domain.PriceQuote{}, err
	}
	return q, nil
}

func (s *Service) CheckInventory(ctx context.Context, productID string) (domain.InventoryStatus, error) {
	return s.ledger.Status(ctx, productID)
}

// UpdateInventory applies the named operation to a product's stock.
func (s *Service) UpdateInventory(ctx context.Context, productID string, qty int, operation string) (domain.InventoryStatus, error) {
	op, err := domain.ParseOperation(operation)
	if err != nil {
		return domain.InventoryStatus{}, err
	}
	return s.ledger.Apply(ctx, op, productID, qty)
}

// Seed stores products and loads their stock into an external ledger.
func (s *Service) Seed(ctx context.Context, products []domain.Product) error {
	seeder, _ := s.ledger.(StockSeeder)
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return err
		}
		if err := s.products.Upsert(ctx, p); err != nil {
			return err
		}
		if seeder != nil {
			if err := seeder.Seed(ctx, p.Inventory()); err != nil {
				return err
			}
		}
	}
	s.log.Info().Int("products", len(products)).Msg("catalog seeded")
	return nil
}

func (s *Service) overlay(ctx context.Context, p domain.Product) (domain.Product, error) {
	if !s.external {
		return p, nil
	}
	st, err := s.ledger.Status(ctx, p.ID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			p.AvailableQuantity, p.ReservedQuantity = 0, 0
			return p, nil
		}
		return domain.Product{}, err
	}
	p.AvailableQuantity = st.AvailableQuantity
	p.ReservedQuantity = st.ReservedQuantity
	if st.UpdatedAt.After(p.UpdatedAt) {
		p.UpdatedAt = st.UpdatedAt
	}
	return p, nil
}
