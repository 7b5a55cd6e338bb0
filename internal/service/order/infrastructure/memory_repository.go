package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/service/order/domain"
)

// MemoryRepository keeps orders in process. Stored and returned orders are
// clones, so callers never share state with the store.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]*domain.Order)}
}

func (r *MemoryRepository) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return domain.ErrDuplicateID
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.OrderNotFound(id)
	}
	return o.Clone(), nil
}

func (r *MemoryRepository) ListByCustomer(_ context.Context, customerID string) ([]*domain.Order, error) {
	r.mu.RLock()
	out := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if customerID == "" || o.CustomerID == customerID {
			out = append(out, o.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, status domain.Status, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return apperr.OrderNotFound(id)
	}
	c := o.Clone()
	c.Status = status
	c.UpdatedAt = updatedAt
	r.orders[id] = c
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return apperr.OrderNotFound(id)
	}
	delete(r.orders, id)
	return nil
}
