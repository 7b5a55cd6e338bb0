package infrastructure

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/pkg/keylock"
	"globalbooks/internal/service/catalog/domain"
)

// MemoryProductStore keeps products in a map. Writes to one product are
// serialised by a per-product lock; mu only guards the map itself. Mutate
// works on a copy and swaps it in only when the mutation succeeds.
type MemoryProductStore struct {
	rows     *keylock.KeyMutex
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{rows: keylock.New(), products: make(map[string]domain.Product)}
}

func (s *MemoryProductStore) FindByID(_ context.Context, id string) (domain.Product, error) {
	p, ok := s.get(id)
	if !ok {
		return domain.Product{}, apperr.ProductNotFound(id)
	}
	return p, nil
}

// Search takes a snapshot of the matching products when ranged over.
func (s *MemoryProductStore) Search(ctx context.Context, c domain.Criteria) iter.Seq2[domain.Product, error] {
	return func(yield func(domain.Product, error) bool) {
		s.mu.RLock()
		matched := make([]domain.Product, 0, len(s.products))
		for _, p := range s.products {
			if c.MatchesText(p) {
				matched = append(matched, p)
			}
		}
		s.mu.RUnlock()
		slices.SortFunc(matched, func(a, b domain.Product) int { return strings.Compare(a.ID, b.ID) })

		for _, p := range matched {
			if err := ctx.Err(); err != nil {
				yield(domain.Product{}, err)
				return
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

func (s *MemoryProductStore) Mutate(ctx context.Context, id string, fn func(p *domain.Product) error) (domain.Product, error) {
	unlock, err := s.rows.Lock(ctx, id)
	if err != nil {
		return domain.Product{}, apperr.Unavailable(err, "lock product %s", id)
	}
	defer unlock()

	current, ok := s.get(id)
	if !ok {
		return domain.Product{}, apperr.ProductNotFound(id)
	}
	next := current
	if err := fn(&next); err != nil {
		return domain.Product{}, err
	}
	s.put(next)
	return next, nil
}

// Upsert keeps the stock counters of a product that already exists.
func (s *MemoryProductStore) Upsert(ctx context.Context, p domain.Product) error {
	unlock, err := s.rows.Lock(ctx, p.ID)
	if err != nil {
		return apperr.Unavailable(err, "lock product %s", p.ID)
	}
	defer unlock()

	if current, ok := s.get(p.ID); ok {
		p.AvailableQuantity = current.AvailableQuantity
		p.ReservedQuantity = current.ReservedQuantity
	}
	s.put(p)
	return nil
}

func (s *MemoryProductStore) get(id string) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *MemoryProductStore) put(p domain.Product) {
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
}
