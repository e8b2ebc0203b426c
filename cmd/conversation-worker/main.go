// Binary conversation-worker consumes the SQS conversation queue and
// runs the dispatch engine without exposing an HTTP surface. Deploy it
// alongside the api binary when webhook intake and message processing
// need to scale independently.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/atendezap/atendezap/internal/app/bootstrap"
	appconfig "github.com/atendezap/atendezap/internal/config"
	"github.com/atendezap/atendezap/internal/observability/metrics"
	"github.com/atendezap/atendezap/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	// A worker with an in-memory queue would drain nothing; it only
	// makes sense against SQS.
	cfg.UseMemoryQueue = false

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting atendezap conversation worker",
		"env", cfg.Env,
		"workers", cfg.WorkerCount,
	)

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

	m := metrics.New(prometheus.NewRegistry())

	pipeline, err := bootstrap.BuildPipeline(ctx, cfg, pool, redisClient, m, logger)
	if err != nil {
		logger.Error("failed to build conversation pipeline", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pipeline.Orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.Error("workers did not drain in time", "error", err)
	}

	logger.Info("worker stopped")
}
