package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 20, cfg.MaxHistory)
	assert.Equal(t, 3, cfg.ClarifyMaxRetries)
	assert.True(t, cfg.UseMemoryQueue)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9091")
	t.Setenv("ENV", "production")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("MAX_HISTORY", "5")
	t.Setenv("LLM_CACHE_DISABLED", "true")
	t.Setenv("WORKER_COUNT", "8")

	cfg := Load()

	assert.Equal(t, "9091", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.MaxHistory)
	assert.True(t, cfg.LLMCacheDisabled)
	assert.Equal(t, 8, cfg.WorkerCount)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("MAX_HISTORY", "not-a-number")
	t.Setenv("SESSION_TTL", "soon")

	cfg := Load()

	assert.Equal(t, 20, cfg.MaxHistory)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}
