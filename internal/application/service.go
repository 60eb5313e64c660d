package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cip-service/internal/cip"
	"cip-service/internal/domain"

	"go.uber.org/zap"
)

// statusWriteTimeout bounds the final status write of a run whose own context has ended.
const statusWriteTimeout = 5 * time.Second

type CIPService struct {
	runs       RunRepo
	deviations DeviationRepo
	source     QuoteSource
	sourceKind domain.SourceKind
	idem       IdempotencyStore
	cache      StatsCache
	uow        UnitOfWork
	obs        Observer
	clock      Clock
	log        *zap.Logger
	window     int
}

type Option func(*CIPService)

func WithClock(c Clock) Option { return func(s *CIPService) { s.clock = c } }
func WithIdempotency(i IdempotencyStore) Option { return func(s *CIPService) { s.idem = i } }
func WithStatsCache(c StatsCache) Option { return func(s *CIPService) { s.cache = c } }
func WithUnitOfWork(u UnitOfWork) Option { return func(s *CIPService) { s.uow = u } }
func WithObserver(o Observer) Option { return func(s *CIPService) { s.obs = o } }
func WithLogger(l *zap.Logger) Option { return func(s *CIPService) { s.log = l } }
func WithSourceKind(k domain.SourceKind) Option { return func(s *CIPService) { s.sourceKind = k } }
func WithOutlierWindow(window int) Option { return func(s *CIPService) { s.window = window } }

func NewCIPService(runs RunRepo, deviations DeviationRepo, source QuoteSource, opts ...Option) *CIPService {
	s := &CIPService{
		runs:       runs,
		deviations: deviations,
		source:     source,
		sourceKind: domain.SourceSpreadsheet,
		window:     cip.OutlierWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.idem == nil {
		s.idem = NoopIdempotency{}
	}
	if s.uow == nil {
		s.uow = NoopUoW{}
	}
	if s.obs == nil {
		s.obs = noopObserver{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Result carries every intermediate table of one pipeline pass.
type Result struct {
	Quotes     *domain.Table
	Deviations *domain.Table
	Clean      *domain.Table
	Report     cip.FilterReport
}

// Compute runs fetch, calculation and outlier cleaning over r without touching storage.
func (s *CIPService) Compute(ctx context.Context, r domain.DateRange) (*Result, error) {
	log := s.log.With(zap.String("range", r.String()), zap.String("source", string(s.sourceKind)))
	log.Info("pipeline.fetch_start")
	quotes, err := s.source.Fetch(ctx, r)
	if err != nil {
		log.Warn("pipeline.fetch_failed", zap.Error(err))
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}
	log.Info("pipeline.fetch_done", zap.Int("rows", quotes.Len()))

	dev, err := cip.Compute(quotes)
	if err != nil {
		return nil, err
	}
	clean, report, err := cip.Clean(dev, s.window)
	if err != nil {
		return nil, err
	}
	s.obs.Filtered(report)
	log.Info("pipeline.clean_done", zap.Int("flagged", report.Total()))
	return &Result{Quotes: quotes, Deviations: dev, Clean: clean, Report: report}, nil
}

func (s *CIPService) RequestRun(ctx context.Context, r domain.DateRange, idem *string) (string, error) {
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return "", fmt.Errorf("%w: end %s before start %s", ErrBadRequest,
			r.End.Format(domain.DateLayout), r.Start.Format(domain.DateLayout))
	}
	if idem == nil || *idem == "" {
		return s.runs.CreateQueued(ctx, s.sourceKind, r, nil)
	}
	key := "idem:run:" + *idem
	ok, err := s.idem.TryReserve(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrConflict
	}
	id, err := s.runs.CreateQueued(ctx, s.sourceKind, r, idem)
	if err != nil {
		if relErr := s.idem.Release(ctx, key); relErr != nil {
			s.log.Warn("idempotency.release_failed", zap.String("key", key), zap.Error(relErr))
		}
		return "", err
	}
	return id, nil
}

func (s *CIPService) GetRun(ctx context.Context, id string) (domain.Run, error) {
	return s.runs.GetByID(ctx, id)
}

// ProcessRun executes a claimed run and records its outcome. The run is expected to be
// in processing state already when claimed by a worker; queued runs are moved there first.
func (s *CIPService) ProcessRun(ctx context.Context, run domain.Run) error {
	started := s.clock.Now()
	log := s.log.With(zap.String("run_id", run.ID))
	if run.Status == domain.RunStatusQueued {
		if err := s.runs.UpdateStatus(ctx, run.ID, domain.RunStatusProcessing, nil); err != nil {
			return err
		}
	}

	res, err := s.Compute(ctx, run.Range)
	if err == nil {
		err = s.uow.Do(ctx, func(ctx context.Context) error {
			if err := s.deviations.Replace(ctx, run.ID, res.Clean); err != nil {
				return err
			}
			return s.runs.Complete(ctx, run.ID, res.Clean.Len(), res.Report.Total())
		})
	}
	if err != nil {
		msg := err.Error()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
		uerr := s.runs.UpdateStatus(wctx, run.ID, domain.RunStatusFailed, &msg)
		cancel()
		if uerr != nil {
			log.Warn("run.status_update_failed", zap.Error(uerr))
		}
		s.obs.RunFinished(domain.RunStatusFailed, s.clock.Now().Sub(started))
		log.Warn("run.failed", zap.Error(err))
		return err
	}

	if s.cache != nil {
		if perr := s.cache.Purge(ctx); perr != nil {
			log.Warn("stats_cache.purge_failed", zap.Error(perr))
		}
	}
	s.obs.RunFinished(domain.RunStatusDone, s.clock.Now().Sub(started))
	log.Info("run.done", zap.Int("rows", res.Clean.Len()), zap.Int("flagged", res.Report.Total()))
	return nil
}

func (s *CIPService) Deviations(ctx context.Context, r domain.DateRange) (*domain.Table, error) {
	return s.deviations.Range(ctx, r)
}

// Statistics aggregates stored deviations over r, served from cache when possible.
func (s *CIPService) Statistics(ctx context.Context, r domain.DateRange) (*cip.Statistics, error) {
	key := "stats:" + r.String()
	if s.cache != nil {
		st, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn("stats_cache.get_failed", zap.Error(err))
		} else if ok {
			return st, nil
		}
	}
	dev, err := s.deviations.Range(ctx, r)
	if err != nil {
		return nil, err
	}
	if dev.Len() == 0 {
		return nil, ErrNotFound
	}
	st, err := cip.Aggregate(dev)
	if errors.Is(err, domain.ErrMissingColumns) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, st); err != nil {
			s.log.Warn("stats_cache.set_failed", zap.Error(err))
		}
	}
	return st, nil
}
