package application

import "context"

// Worker processes queued runs until the context is canceled.
type Worker interface {
	Start(ctx context.Context)
}
