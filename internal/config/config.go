// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// WhatsApp Cloud API.
	WhatsAppVerifyToken   string
	WhatsAppAPIBaseURL    string
	WhatsAppSendTimeout   time.Duration
	WhatsAppRetryAttempts int

	// Webhook throttling, requests per second per source IP.
	WebhookRateLimit float64
	WebhookBurst     int

	// LLM providers.
	OpenAIAPIKey     string
	OpenAIModel      string
	GeminiAPIKey     string
	GeminiModel      string
	LLMMaxTokens     int
	LLMTemperature   float64
	LLMCacheTTL      time.Duration
	LLMCacheDisabled bool

	// Conversation queue.
	UseMemoryQueue       bool
	WorkerCount          int
	ConversationQueueURL string
	AWSRegion            string
	AWSAccessKeyID       string
	AWSSecretAccessKey   string
	AWSEndpointOverride  string

	// Session defaults, overridable per business.
	SessionTTL        time.Duration
	MaxHistory        int
	BusinessCacheTTL  time.Duration
	ClarifyMaxRetries int
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAPIBaseURL:    getEnv("WHATSAPP_API_BASE_URL", "https://graph.facebook.com/v19.0"),
		WhatsAppSendTimeout:   getEnvAsDuration("WHATSAPP_SEND_TIMEOUT", 10*time.Second),
		WhatsAppRetryAttempts: getEnvAsInt("WHATSAPP_RETRY_ATTEMPTS", 3),

		WebhookRateLimit: getEnvAsFloat("WEBHOOK_RATE_LIMIT", 10),
		WebhookBurst:     getEnvAsInt("WEBHOOK_BURST", 20),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		LLMMaxTokens:     getEnvAsInt("LLM_MAX_TOKENS", 512),
		LLMTemperature:   getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		LLMCacheTTL:      getEnvAsDuration("LLM_CACHE_TTL", 10*time.Minute),
		LLMCacheDisabled: getEnvAsBool("LLM_CACHE_DISABLED", false),

		UseMemoryQueue:       getEnvAsBool("USE_MEMORY_QUEUE", true),
		WorkerCount:          getEnvAsInt("WORKER_COUNT", 2),
		ConversationQueueURL: getEnv("CONVERSATION_QUEUE_URL", ""),
		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:  getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		SessionTTL:        getEnvAsDuration("SESSION_TTL", 2*time.Hour),
		MaxHistory:        getEnvAsInt("MAX_HISTORY", 20),
		BusinessCacheTTL:  getEnvAsDuration("BUSINESS_CACHE_TTL", 5*time.Minute),
		ClarifyMaxRetries: getEnvAsInt("CLARIFY_MAX_RETRIES", 3),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
