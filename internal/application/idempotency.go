package application

import "context"

// IdempotencyStore deduplicates run requests carrying the same Idempotency-Key.
type IdempotencyStore interface {
	// TryReserve returns true if key was absent and is now reserved.
	// Returns false if the key already exists (duplicate).
	TryReserve(ctx context.Context, key string) (bool, error)
	// Release drops a reservation whose request was never persisted.
	Release(ctx context.Context, key string) error
}

// NoopIdempotency accepts every key; used when IDEMPOTENCY_BACKEND=none.
type NoopIdempotency struct{}

func (NoopIdempotency) TryReserve(context.Context, string) (bool, error) { return true, nil }
func (NoopIdempotency) Release(context.Context, string) error            { return nil }
