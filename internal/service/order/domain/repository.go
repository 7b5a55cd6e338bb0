package domain

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateID is returned by Create when the order id is already taken.
var ErrDuplicateID = errors.New("order id already exists")

// OrderRepository persists order aggregates. Lookups of unknown ids return
// an apperr NotFound error.
type OrderRepository interface {
	// Create inserts a new order, failing with ErrDuplicateID on an id clash.
	Create(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	// ListByCustomer returns the orders of customerID, or all orders when it
	// is empty, oldest first.
	ListByCustomer(ctx context.Context, customerID string) ([]*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}
