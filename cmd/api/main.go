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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/scam-honeypot/internal/api/router"
	"github.com/wolfman30/scam-honeypot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/scam-honeypot/internal/config"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

func main() {
	// Local runs read .env; deployed environments set real variables.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scam-honeypot API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"api_key_required", cfg.APIKey != "",
	)

	srv, hp, err := buildServer(context.Background(), cfg, prometheus.DefaultRegisterer, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := hp.Close(); err != nil {
		logger.Warn("failed to release honeypot resources", "error", err)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func buildServer(ctx context.Context, cfg *appconfig.Config, reg prometheus.Registerer, logger *logging.Logger) (*http.Server, *bootstrap.Honeypot, error) {
	hp, err := bootstrap.BuildHoneypot(ctx, cfg, reg, logger)
	if err != nil {
		return nil, nil, err
	}

	var metricsHandler http.Handler = promhttp.Handler()
	if gatherer, ok := reg.(prometheus.Gatherer); ok && reg != prometheus.DefaultRegisterer {
		metricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}

	r := router.New(&router.Config{
		Logger:             logger,
		HoneypotHandler:    hp.Handler,
		APIKey:             cfg.APIKey,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, hp, nil
}
