package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"cip-service/internal/cip"
	"cip-service/internal/domain"

	"github.com/stretchr/testify/require"
)

var (
	ErrRepo = errors.New("repo error")
)

type fakeRunRepo struct {
	runs map[string]domain.Run
	seq  int
	err  error
}

func (f *fakeRunRepo) CreateQueued(_ context.Context, src domain.SourceKind, r domain.DateRange, _ *string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.runs == nil {
		f.runs = map[string]domain.Run{}
	}
	f.seq++
	id := fmt.Sprintf("run-%d", f.seq)
	f.runs[id] = domain.Run{ID: id, Source: src, Range: r, Status: domain.RunStatusQueued}
	return id, nil
}

func (f *fakeRunRepo) GetByID(_ context.Context, id string) (domain.Run, error) {
	if f.err != nil {
		return domain.Run{}, f.err
	}
	r, ok := f.runs[id]
	if !ok {
		return domain.Run{}, ErrNotFound
	}
	return r, nil
}

func (f *fakeRunRepo) UpdateStatus(_ context.Context, id string, st domain.RunStatus, errMsg *string) error {
	if f.err != nil {
		return f.err
	}
	r, ok := f.runs[id]
	if !ok {
		return ErrNotFound
	}
	r.Status, r.Error = st, errMsg
	f.runs[id] = r
	return nil
}

func (f *fakeRunRepo) Complete(_ context.Context, id string, rows, flagged int) error {
	r, ok := f.runs[id]
	if !ok {
		return ErrNotFound
	}
	r.Status, r.Rows, r.Flagged = domain.RunStatusDone, rows, flagged
	f.runs[id] = r
	return nil
}

func (f *fakeRunRepo) ClaimQueued(_ context.Context, limit int) ([]domain.Run, error) {
	var out []domain.Run
	for id, r := range f.runs {
		if len(out) == limit {
			break
		}
		if r.Status == domain.RunStatusQueued {
			r.Status = domain.RunStatusProcessing
			f.runs[id] = r
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeDeviationRepo struct {
	stored *domain.Table
	runID  string
	reads  int
	err    error
}

func (f *fakeDeviationRepo) Replace(_ context.Context, runID string, dev *domain.Table) error {
	if f.err != nil {
		return f.err
	}
	f.runID, f.stored = runID, dev.Clone()
	return nil
}

func (f *fakeDeviationRepo) Range(_ context.Context, r domain.DateRange) (*domain.Table, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	if f.stored == nil {
		return domain.NewTable(nil)
	}
	return f.stored.Clip(r), nil
}

type fakeSource struct {
	table *domain.Table
	err   error
	calls int
}

func (f *fakeSource) Fetch(_ context.Context, r domain.DateRange) (*domain.Table, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.table.Clip(r), nil
}

// ctxRunRepo rejects writes on an ended context the way the pg driver does.
type ctxRunRepo struct{ *fakeRunRepo }

func (c ctxRunRepo) UpdateStatus(ctx context.Context, id string, st domain.RunStatus, errMsg *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.fakeRunRepo.UpdateStatus(ctx, id, st, errMsg)
}

// blockingSource returns only when the fetch context ends.
type blockingSource struct{}

func (blockingSource) Fetch(ctx context.Context, _ domain.DateRange) (*domain.Table, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeIdem struct{ seen map[string]bool }

func (f *fakeIdem) TryReserve(_ context.Context, k string) (bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	return true, nil
}

func (f *fakeIdem) Release(_ context.Context, k string) error {
	delete(f.seen, k)
	return nil
}

type fakeCache struct {
	items  map[string]*cip.Statistics
	purged int
}

func (f *fakeCache) Get(_ context.Context, key string) (*cip.Statistics, bool, error) {
	s, ok := f.items[key]
	return s, ok, nil
}

func (f *fakeCache) Set(_ context.Context, key string, s *cip.Statistics) error {
	if f.items == nil {
		f.items = map[string]*cip.Statistics{}
	}
	f.items[key] = s
	return nil
}

func (f *fakeCache) Purge(context.Context) error {
	f.purged++
	f.items = nil
	return nil
}

type fakeObserver struct {
	statuses []domain.RunStatus
	flagged  int
}

func (f *fakeObserver) RunFinished(st domain.RunStatus, _ time.Duration) {
	f.statuses = append(f.statuses, st)
}

func (f *fakeObserver) Filtered(r cip.FilterReport) { f.flagged += r.Total() }

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

// quoteTable builds n business days of quotes with zero deviation for every currency.
// A spike is placed in the AUD spot at index spike when spike >= 0.
func quoteTable(t *testing.T, n, spike int) *domain.Table {
	t.Helper()
	dates := make([]time.Time, 0, n)
	d := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for len(dates) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	tbl, err := domain.NewTable(dates)
	require.NoError(t, err)
	fill := func(v float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = v
		}
		return out
	}
	for _, c := range domain.Currencies {
		spot := fill(1)
		if c == domain.AUD && spike >= 0 {
			spot[spike] = math.Exp(0.25)
		}
		require.NoError(t, tbl.Set(c.SpotColumn(), spot))
		require.NoError(t, tbl.Set(c.ForwardColumn(), fill(1)))
		require.NoError(t, tbl.Set(c.RateColumn(), fill(1)))
	}
	require.NoError(t, tbl.Set(domain.USDRateColumn, fill(1)))
	return tbl
}

func strPtr(s string) *string { return &s }
