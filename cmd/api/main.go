package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/garden-backend/config"
	"github.com/GoSim-25-26J-441/garden-backend/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/garden-backend/internal/auth"
	"github.com/GoSim-25-26J-441/garden-backend/internal/bootstrap"
	"github.com/GoSim-25-26J-441/garden-backend/internal/logging"
	"github.com/GoSim-25-26J-441/garden-backend/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.App.LogLevel, cfg.App.Environment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	bootstrap.SetGinMode(cfg.App.Environment)

	store, err := bootstrap.OpenStore(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	var limiter *middleware.RateLimiter
	if cfg.Auth.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(middleware.DefaultRules(), log)
		if err := limiter.Start(); err != nil {
			return fmt.Errorf("start rate limiter: %w", err)
		}
		defer limiter.Stop()
	}

	if cfg.Auth.Mode == string(auth.ModeHeader) {
		log.Warn("wallet signatures disabled, trusting X-Wallet-Pubkey")
	}
	if cfg.App.AirdropEnabled {
		log.Warn("airdrop faucet enabled")
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    "garden-backend",
		Version:        cfg.App.Version,
		Backend:        cfg.Store.Backend,
		Store:          store,
		Log:            log,
		Verifier:       bootstrap.NewVerifier(cfg.Auth, store, log),
		Limiter:        limiter,
		AirdropEnabled: cfg.App.AirdropEnabled,
		CORSOrigins:    cfg.Server.CORSAllowedOrigins,
		Metrics:        metrics.Default(),
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening",
			zap.String("addr", httpServer.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("store", cfg.Store.Backend),
		)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}
