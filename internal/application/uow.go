package application

import "context"

// UnitOfWork groups the deviation write and the run completion in one transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopUoW executes the function without starting a transaction.
type NoopUoW struct{}

func (NoopUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
