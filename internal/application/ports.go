package application

import (
	"context"
	"time"

	"cip-service/internal/cip"
	"cip-service/internal/domain"
)

// QuoteSource produces a normalized QuoteTable for a date range. Spreadsheet and
// terminal sources implement it identically.
type QuoteSource interface {
	Fetch(ctx context.Context, r domain.DateRange) (*domain.Table, error)
}

// HistoryClient issues bulk historical queries against a market data terminal.
type HistoryClient interface {
	BulkHistory(ctx context.Context, tickers, fields []string, r domain.DateRange) ([]domain.Observation, error)
}

type RunRepo interface {
	CreateQueued(ctx context.Context, src domain.SourceKind, r domain.DateRange, idem *string) (string, error)
	GetByID(ctx context.Context, id string) (domain.Run, error)
	UpdateStatus(ctx context.Context, id string, status domain.RunStatus, errMsg *string) error
	Complete(ctx context.Context, id string, rows, flagged int) error
	ClaimQueued(ctx context.Context, limit int) ([]domain.Run, error)
}

type DeviationRepo interface {
	// Replace stores the deviation table of a run, overwriting existing points on the same dates.
	Replace(ctx context.Context, runID string, dev *domain.Table) error
	Range(ctx context.Context, r domain.DateRange) (*domain.Table, error)
}

// StatsCache keeps aggregated statistics per date range.
type StatsCache interface {
	Get(ctx context.Context, key string) (*cip.Statistics, bool, error)
	Set(ctx context.Context, key string, s *cip.Statistics) error
	Purge(ctx context.Context) error
}

// Observer receives pipeline outcomes; the metrics package implements it.
type Observer interface {
	RunFinished(status domain.RunStatus, elapsed time.Duration)
	Filtered(report cip.FilterReport)
}

type noopObserver struct{}

func (noopObserver) RunFinished(domain.RunStatus, time.Duration) {}
func (noopObserver) Filtered(cip.FilterReport)                   {}

type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }
