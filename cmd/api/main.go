package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/ai-friend/backend/internal/app"
	"github.com/zhouzirui/ai-friend/backend/internal/config"
	"github.com/zhouzirui/ai-friend/backend/internal/handler"
	logx "github.com/zhouzirui/ai-friend/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to load configuration")
	}

	logx.Init(logx.LoggerOpts{Environment: logx.ParseEnvironment(cfg.Env)})
	if envErr != nil {
		logx.Warn().Err(envErr).Msg("failed to load .env file, continuing with system environment variables only")
	}

	application, err := app.Build(ctx, cfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to build application")
	}
	defer func() {
		if err := application.Close(); err != nil {
			logx.Warn().Err(err).Msg("failed to close conversation ledger")
		}
	}()

	router := handler.NewRouter(application.Sessions)

	if err := startServer(ctx, cfg.Server, router); err != nil {
		logx.Error().Err(err).Msg("server error")
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	addr, err := serverCfg.Addr()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logx.Info().Str("addr", addr).Msg("AI friend backend listening")
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logx.Info().Msg("server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
