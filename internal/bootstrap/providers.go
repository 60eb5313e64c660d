package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cip-service/internal/application"
	"cip-service/internal/config"
	"cip-service/internal/domain"
	infraconfig "cip-service/internal/infrastructure/config"
	"cip-service/internal/infrastructure/httpx"
	"cip-service/internal/infrastructure/logx"
	"cip-service/internal/infrastructure/memstore"
	"cip-service/internal/infrastructure/metrics"
	"cip-service/internal/infrastructure/pg"
	"cip-service/internal/infrastructure/provider"
	redisstore "cip-service/internal/infrastructure/redis"
	"cip-service/internal/infrastructure/source"
	"cip-service/internal/infrastructure/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required for STORAGE=pg")

// Storage bundles the persistence ports of one storage backend.
type Storage struct {
	Runs       application.RunRepo
	Deviations application.DeviationRepo
	UoW        application.UnitOfWork
	Ping       func(ctx context.Context) error
}

func ProvideLogger() *zap.Logger { return logx.L() }

func ProvideConfig() config.Config { return config.Load() }

func ProvideDB(ctx context.Context, log *zap.Logger, cfg config.Config) (*pg.DB, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, func() {}, ErrMissingDBURL
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return db, cleanup, nil
}

// ProvideStorage selects the backend named by STORAGE: pg or memory.
func ProvideStorage(ctx context.Context, log *zap.Logger, cfg config.Config) (Storage, func(), error) {
	switch cfg.Storage {
	case "pg":
		db, cleanup, err := ProvideDB(ctx, log, cfg)
		if err != nil {
			return Storage{}, cleanup, err
		}
		return Storage{
			Runs:       pg.NewRunRepo(db),
			Deviations: pg.NewDeviationRepo(db),
			UoW:        &pg.UnitOfWork{Pool: db.Pool},
			Ping:       db.Ping,
		}, cleanup, nil
	case "memory":
		return Storage{
			Runs:       memstore.NewRunRepo(),
			Deviations: memstore.NewDeviationRepo(),
			UoW:        application.NoopUoW{},
		}, func() {}, nil
	default:
		return Storage{}, func() {}, fmt.Errorf("unsupported STORAGE=%q", cfg.Storage)
	}
}

// ProvideRedisClient returns nil when IDEMPOTENCY_BACKEND is not redis.
func ProvideRedisClient(cfg config.Config) (*redis.Client, func()) {
	if cfg.IdempotencyBackend != "redis" {
		return nil, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return client, func() { _ = client.Close() }
}

func ProvideIdempotency(client *redis.Client, cfg config.Config) application.IdempotencyStore {
	if client == nil {
		return application.NoopIdempotency{}
	}
	return redisstore.New(client, cfg.RedisTTL)
}

func ProvideStatsCache(client *redis.Client, cfg config.Config) application.StatsCache {
	if client == nil {
		return nil
	}
	return redisstore.NewStatsCache(client, cfg.StatsCacheTTL)
}

// ProvideSource builds the quote source named by SOURCE.
func ProvideSource(cfg config.Config, log *zap.Logger) (application.QuoteSource, domain.SourceKind, error) {
	switch domain.SourceKind(cfg.Source) {
	case domain.SourceSpreadsheet:
		return &source.Spreadsheet{Path: cfg.WorkbookPath, Log: log}, domain.SourceSpreadsheet, nil
	case domain.SourceTerminal:
		client := &provider.BridgeClient{
			BaseURL: cfg.TerminalBaseURL,
			HTTP: &httpx.Client{
				HTTP:       &http.Client{Timeout: cfg.RequestTimeout},
				Token:      cfg.TerminalToken,
				MaxElapsed: cfg.RequestTimeout,
			},
			Log: log,
		}
		return &source.Terminal{Client: client, Log: log}, domain.SourceTerminal, nil
	default:
		return nil, "", fmt.Errorf("unsupported SOURCE=%q", cfg.Source)
	}
}

func ProvideCIPService(st Storage, src application.QuoteSource, kind domain.SourceKind, idem application.IdempotencyStore, cache application.StatsCache, obs application.Observer, log *zap.Logger) *application.CIPService {
	opts := []application.Option{
		application.WithSourceKind(kind),
		application.WithIdempotency(idem),
		application.WithUnitOfWork(st.UoW),
		application.WithObserver(obs),
		application.WithLogger(log),
	}
	if cache != nil {
		opts = append(opts, application.WithStatsCache(cache))
	}
	return application.NewCIPService(st.Runs, st.Deviations, src, opts...)
}

func ProvideWorker(st Storage, svc *application.CIPService, log *zap.Logger, cfg config.Config) application.Worker {
	poll, batch := cfg.WorkerPoll, cfg.WorkerBatchSize
	if poll <= 0 {
		poll = infraconfig.DefaultWorkerPoll
	}
	if batch <= 0 {
		batch = infraconfig.DefaultWorkerBatch
	}
	return &worker.DbWorker{
		Runs:       st.Runs,
		Service:    svc,
		PollEvery:  poll,
		BatchLimit: batch,
		RunTimeout: infraconfig.DefaultFetchTimeout,
		Log:        log,
	}
}

func ProvideMetrics() *metrics.Pipeline { return metrics.New() }
