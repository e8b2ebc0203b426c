package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atendezap/atendezap/internal/api/router"
	"github.com/atendezap/atendezap/internal/app/bootstrap"
	appconfig "github.com/atendezap/atendezap/internal/config"
	"github.com/atendezap/atendezap/internal/http/handlers"
	"github.com/atendezap/atendezap/internal/observability/metrics"
	"github.com/atendezap/atendezap/pkg/logging"
)

func main() {
	// Local development convenience, a missing .env is fine.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting atendezap API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)
	if cfg.IsProduction() && cfg.UseMemoryQueue {
		logger.Warn("memory queue in production loses inbound messages on restart, set CONVERSATION_QUEUE_URL")
	}

	ctx := context.Background()

	pool, err := bootstrap.BuildDBPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	pipeline, err := bootstrap.BuildPipeline(ctx, cfg, pool, redisClient, m, logger)
	if err != nil {
		logger.Error("failed to build conversation pipeline", "error", err)
		os.Exit(1)
	}

	webhook := handlers.NewWhatsAppWebhookHandler(handlers.WhatsAppWebhookConfig{
		VerifyToken: cfg.WhatsAppVerifyToken,
		Businesses:  pipeline.Businesses,
		Queue:       pipeline.Orchestrator,
		Logger:      logger,
		Metrics:     m,
	})

	r := router.New(&router.Config{
		Logger:           logger,
		WhatsAppWebhook:  webhook,
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		WebhookRateLimit: cfg.WebhookRateLimit,
		WebhookBurst:     cfg.WebhookBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := pipeline.Orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.Error("workers did not drain in time", "error", err)
	}

	logger.Info("server stopped")
}
