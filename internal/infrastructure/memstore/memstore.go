// Package memstore keeps runs and deviations in process memory. It backs
// STORAGE=memory and the router and worker tests.
package memstore

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"cip-service/internal/application"
	"cip-service/internal/domain"

	"github.com/google/uuid"
)

var _ application.RunRepo = (*RunRepo)(nil)
var _ application.DeviationRepo = (*DeviationRepo)(nil)

type RunRepo struct {
	mu   sync.RWMutex
	runs map[string]domain.Run
	idem map[string]string
	now  func() time.Time
}

func NewRunRepo() *RunRepo {
	return &RunRepo{
		runs: map[string]domain.Run{},
		idem: map[string]string{},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *RunRepo) CreateQueued(_ context.Context, src domain.SourceKind, rng domain.DateRange, idem *string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idem != nil {
		if _, dup := r.idem[*idem]; dup {
			return "", application.ErrConflict
		}
	}
	id := uuid.NewString()
	now := r.now()
	r.runs[id] = domain.Run{ID: id, Source: src, Range: rng, Status: domain.RunStatusQueued, RequestedAt: now, UpdatedAt: now}
	if idem != nil {
		r.idem[*idem] = id
	}
	return id, nil
}

func (r *RunRepo) GetByID(_ context.Context, id string) (domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return domain.Run{}, application.ErrNotFound
	}
	return run, nil
}

func (r *RunRepo) UpdateStatus(_ context.Context, id string, st domain.RunStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return application.ErrNotFound
	}
	run.Status, run.Error, run.UpdatedAt = st, errMsg, r.now()
	r.runs[id] = run
	return nil
}

func (r *RunRepo) Complete(_ context.Context, id string, rows, flagged int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return application.ErrNotFound
	}
	run.Status, run.Error, run.Rows, run.Flagged, run.UpdatedAt = domain.RunStatusDone, nil, rows, flagged, r.now()
	r.runs[id] = run
	return nil
}

// ClaimQueued moves up to limit queued runs to processing, oldest first.
func (r *RunRepo) ClaimQueued(_ context.Context, limit int) ([]domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var queued []domain.Run
	for _, run := range r.runs {
		if run.Status == domain.RunStatusQueued {
			queued = append(queued, run)
		}
	}
	sort.Slice(queued, func(i, j int) bool { return queued[i].RequestedAt.Before(queued[j].RequestedAt) })
	if len(queued) > limit {
		queued = queued[:limit]
	}
	for i := range queued {
		queued[i].Status = domain.RunStatusProcessing
		queued[i].UpdatedAt = r.now()
		r.runs[queued[i].ID] = queued[i]
	}
	return queued, nil
}

type DeviationRepo struct {
	mu     sync.RWMutex
	points map[time.Time]map[domain.Currency]float64
}

func NewDeviationRepo() *DeviationRepo {
	return &DeviationRepo{points: map[time.Time]map[domain.Currency]float64{}}
}

func (r *DeviationRepo) Replace(_ context.Context, _ string, dev *domain.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, d := range dev.Dates() {
		row, ok := r.points[d]
		if !ok {
			row = map[domain.Currency]float64{}
			r.points[d] = row
		}
		for _, c := range domain.Currencies {
			if vals, ok := dev.Column(c.DeviationColumn()); ok {
				row[c] = vals[i]
			}
		}
	}
	return nil
}

func (r *DeviationRepo) Range(_ context.Context, rng domain.DateRange) (*domain.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var dates []time.Time
	for d := range r.points {
		if rng.Contains(d) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	t, err := domain.NewTable(dates)
	if err != nil {
		return nil, err
	}
	for _, c := range domain.Currencies {
		vals := make([]float64, len(dates))
		for i, d := range dates {
			v, ok := r.points[d][c]
			if !ok {
				v = math.NaN()
			}
			vals[i] = v
		}
		if err := t.Set(c.DeviationColumn(), vals); err != nil {
			return nil, err
		}
	}
	return t, nil
}
