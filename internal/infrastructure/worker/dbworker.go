package worker

import (
	"context"
	"time"

	"cip-service/internal/application"

	"go.uber.org/zap"
)

var _ application.Worker = (*DbWorker)(nil)

// DbWorker polls the run table for queued runs and executes them.
type DbWorker struct {
	Runs    application.RunRepo
	Service *application.CIPService

	PollEvery  time.Duration
	BatchLimit int
	// RunTimeout bounds one pipeline pass; zero means no limit.
	RunTimeout time.Duration
	Log        *zap.Logger
}

func (w *DbWorker) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.PollEvery <= 0 {
		w.PollEvery = 250 * time.Millisecond
	}
	if w.BatchLimit <= 0 {
		w.BatchLimit = 1
	}

	t := time.NewTicker(w.PollEvery)
	defer t.Stop()

	log.Info("db_worker_started", zap.Duration("poll_every", w.PollEvery), zap.Int("batch_limit", w.BatchLimit))
	for {
		select {
		case <-ctx.Done():
			log.Info("db_worker_stopped")
			return
		case <-t.C:
			w.Tick(ctx, log)
		}
	}
}

// Tick claims one batch of queued runs and processes them in order. It returns the
// number of runs claimed.
func (w *DbWorker) Tick(ctx context.Context, log *zap.Logger) int {
	if log == nil {
		log = zap.NewNop()
	}
	runs, err := w.Runs.ClaimQueued(ctx, max(w.BatchLimit, 1))
	if err != nil {
		log.Warn("claim_failed", zap.Error(err))
		return 0
	}
	for _, run := range runs {
		w.processOne(ctx, log, run.ID, func(c context.Context) error {
			return w.Service.ProcessRun(c, run)
		})
	}
	return len(runs)
}

func (w *DbWorker) processOne(ctx context.Context, log *zap.Logger, id string, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("run_panicked", zap.String("id", id), zap.Any("panic", r))
		}
	}()
	c := ctx
	if w.RunTimeout > 0 {
		var cancel context.CancelFunc
		c, cancel = context.WithTimeout(ctx, w.RunTimeout)
		defer cancel()
	}
	if err := fn(c); err != nil {
		log.Warn("run_failed", zap.String("id", id), zap.Error(err))
		return
	}
	log.Info("run_done", zap.String("id", id))
}
