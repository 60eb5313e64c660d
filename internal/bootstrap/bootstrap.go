package bootstrap

import (
	"context"
	"net/http"

	"cip-service/internal/application"
	"cip-service/internal/config"
	httpserver "cip-service/internal/infrastructure/http"
	"cip-service/internal/infrastructure/metrics"

	"go.uber.org/zap"
)

type cleanups []func()

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

type core struct {
	cfg     config.Config
	log     *zap.Logger
	storage Storage
	metrics *metrics.Pipeline
	svc     *application.CIPService
}

func initCore(ctx context.Context, cfg config.Config) (*core, func(), error) {
	var cl cleanups
	log := ProvideLogger()

	st, closeStorage, err := ProvideStorage(ctx, log, cfg)
	cl = append(cl, closeStorage)
	if err != nil {
		cl.run()
		return nil, nil, err
	}
	src, kind, err := ProvideSource(cfg, log)
	if err != nil {
		cl.run()
		return nil, nil, err
	}
	client, closeRedis := ProvideRedisClient(cfg)
	cl = append(cl, closeRedis)

	m := ProvideMetrics()
	svc := ProvideCIPService(st, src, kind, ProvideIdempotency(client, cfg), ProvideStatsCache(client, cfg), m, log)
	return &core{cfg: cfg, log: log, storage: st, metrics: m, svc: svc}, cl.run, nil
}

// InitAPI wires the HTTP server and everything behind it.
func InitAPI(ctx context.Context) (*httpserver.Server, func(), error) {
	c, cleanup, err := initCore(ctx, ProvideConfig())
	if err != nil {
		return nil, func() {}, err
	}
	srv := httpserver.NewServer(c.svc)
	if c.storage.Ping != nil {
		srv.SetReadyCheck(c.storage.Ping)
	}
	srv.SetMetrics(c.metrics.Handler())
	return srv, cleanup, nil
}

// WorkerApp is the polling worker plus the scrape handler for the runs it executes.
type WorkerApp struct {
	Worker  application.Worker
	Metrics http.Handler
}

func newWorkerApp(c *core) *WorkerApp {
	return &WorkerApp{
		Worker:  ProvideWorker(c.storage, c.svc, c.log, c.cfg),
		Metrics: c.metrics.Handler(),
	}
}

// InitWorker wires the polling worker.
func InitWorker(ctx context.Context) (*WorkerApp, func(), error) {
	c, cleanup, err := initCore(ctx, ProvideConfig())
	if err != nil {
		return nil, func() {}, err
	}
	return newWorkerApp(c), cleanup, nil
}

// InitPipeline wires a service for one-shot runs: in-memory storage and no redis.
func InitPipeline(ctx context.Context, cfg config.Config) (*application.CIPService, func(), error) {
	cfg.Storage = "memory"
	cfg.IdempotencyBackend = "none"
	c, cleanup, err := initCore(ctx, cfg)
	if err != nil {
		return nil, func() {}, err
	}
	return c.svc, cleanup, nil
}
