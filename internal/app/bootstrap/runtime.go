// Package bootstrap wires shared infrastructure for the api and worker
// binaries so both run the exact same pipeline.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/atendezap/atendezap/internal/config"
	"github.com/atendezap/atendezap/internal/llm"
	"github.com/atendezap/atendezap/internal/observability/metrics"
	"github.com/atendezap/atendezap/pkg/logging"
)

// BuildRedisClient returns a configured redis client. A failed ping is only
// logged; redis may come up after the service.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if logger == nil {
		logger = logging.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable at startup", "addr", cfg.RedisAddr, "error", err)
	}
	return client
}

// BuildDBPool opens the pgx connection pool.
func BuildDBPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, errors.New("bootstrap: DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open database pool: %w", err)
	}
	return pool, nil
}

// BuildLLMClient assembles the provider chain: OpenAI primary, Gemini
// fallback, wrapped in the redis response cache unless disabled. At least
// one provider key must be configured.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, m *metrics.Metrics, logger *logging.Logger) (llm.Client, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var primary, fallback llm.Client

	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: openai client: %w", err)
		}
		primary = llm.NewInstrumentedClient(client, "openai", m)
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		fallback = llm.NewInstrumentedClient(client, "gemini", m)
	}

	var chain llm.Client
	switch {
	case primary != nil && fallback != nil:
		chain = llm.NewFallbackClient(primary, fallback, logger)
	case primary != nil:
		chain = primary
	case fallback != nil:
		chain = fallback
	default:
		return nil, errors.New("bootstrap: no LLM provider configured, set OPENAI_API_KEY or GEMINI_API_KEY")
	}

	if !cfg.LLMCacheDisabled && redisClient != nil {
		chain = llm.NewCachingClient(chain, redisClient, cfg.LLMCacheTTL, logger)
	}
	// Outermost so the cache keys on the resolved token/temperature values.
	return llm.NewDefaultsClient(chain, int32(cfg.LLMMaxTokens), float32(cfg.LLMTemperature)), nil
}
