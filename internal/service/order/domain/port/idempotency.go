package port

import "context"

// IdempotencyStore remembers which order an Idempotency-Key produced.
type IdempotencyStore interface {
	// Claim takes ownership of key. When key already produced an order its
	// id is returned with claimed false. When another request holds the key
	// and has not finished, Claim fails with an InvalidState error.
	Claim(ctx context.Context, key string) (orderID string, claimed bool, err error)
	// Complete records the order created under a claimed key.
	Complete(ctx context.Context, key, orderID string) error
	// Abandon drops a claim whose request failed, so the key can be retried.
	Abandon(ctx context.Context, key string) error
}
