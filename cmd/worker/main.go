package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"cip-service/internal/bootstrap"
	"cip-service/internal/config"
	infraconfig "cip-service/internal/infrastructure/config"
	"cip-service/internal/infrastructure/logx"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	log := logx.L()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := bootstrap.InitWorker(ctx)
	if err != nil {
		log.Fatal("init worker", zap.Error(err))
	}
	defer cleanup()

	port := config.Load().MetricsPort
	if port == "" {
		port = infraconfig.DefaultMetricsPort
	}
	mux := chi.NewRouter()
	mux.Method(http.MethodGet, "/metrics", app.Metrics)
	metricsSrv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		log.Info("metrics server started", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics listen", zap.Error(err))
		}
	}()

	log.Info("worker started")
	app.Worker.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("worker stopped")
}
