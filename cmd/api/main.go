package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cip-service/internal/bootstrap"
	"cip-service/internal/config"
	infraconfig "cip-service/internal/infrastructure/config"
	httpserver "cip-service/internal/infrastructure/http"
	"cip-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := logx.L()
	cfg := config.Load()
	port := cfg.Port
	if port == "" {
		port = infraconfig.DefaultHTTPPort
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, cleanup, err := bootstrap.InitAPI(ctx)
	if err != nil {
		logger.Fatal("bootstrap api", zap.Error(err))
	}
	defer cleanup()

	server := &http.Server{
		Addr:    addr,
		Handler: httpserver.NewRouter(srv),
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", zap.Error(err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
