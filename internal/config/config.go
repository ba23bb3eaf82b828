// Package config defines Options, the closed configuration struct for the
// process. Per spec §9, runtime config is an enumerated struct rather than
// a free-form bag; there is no YAML/file loader (out of scope per spec.md)
// — FromEnv is the only constructor.
package config

import (
	"os"
	"strconv"
	"time"
)

// Options holds every environment-derived setting the process needs.
// Fields are grouped by the subsystem that owns them.
type Options struct {
	// HTTP
	ListenAddr string

	// Security primitives (spec §6 "Environment")
	SigningKey     string // HMAC key for audit-chain signatures
	TokenSecret    string // HMAC key for session token claims
	EncryptionKey  string // reserved for at-rest encryption of sensitive fields
	AdminPassword  string // plaintext seed; hashed once at bootstrap

	// Auth
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AuthAttemptsMax int
	AuthAttemptsWindow time.Duration

	// Memory & consolidation
	MemoryFlagThreshold      float64
	MemoryAutoDedupThreshold float64
	MemoryReplaceThreshold   float64
	ConsolidationCron        string // 5-field cron expression
	ConsolidationBatchSize   int
	ConsolidationTimeout     time.Duration

	// AI Gateway
	DailyTokenBudget int64 // 0 = unlimited
	AnthropicAPIKey  string
	OpenAIAPIKey     string
	GeminiAPIKey     string
	DeepSeekAPIKey   string
	MistralAPIKey    string
	GrokAPIKey       string
	OllamaBaseURL    string

	// Task executor
	TaskStuckTimeout         time.Duration
	TaskRepetitionThreshold  int

	// Extensions
	ExtensionWebhooksEnabled bool
	ExtensionWebhookTimeout  time.Duration

	// Storage backend selection
	RedisURL string // empty = use in-memory backends

	// Observability
	ServiceName string
}

// FromEnv populates Options from the process environment, applying the
// defaults named throughout spec §4.
func FromEnv() Options {
	o := Options{
		ListenAddr: getEnv("SECUREYEOMAN_LISTEN_ADDR", ":8080"),

		SigningKey:    os.Getenv("SECUREYEOMAN_SIGNING_KEY"),
		TokenSecret:   os.Getenv("SECUREYEOMAN_TOKEN_SECRET"),
		EncryptionKey: os.Getenv("SECUREYEOMAN_ENCRYPTION_KEY"),
		AdminPassword: os.Getenv("SECUREYEOMAN_ADMIN_PASSWORD"),

		AccessTokenTTL:     getDuration("SECUREYEOMAN_ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL:    getDuration("SECUREYEOMAN_REFRESH_TOKEN_TTL", 24*time.Hour),
		AuthAttemptsMax:    getInt("SECUREYEOMAN_AUTH_ATTEMPTS_MAX", 5),
		AuthAttemptsWindow: getDuration("SECUREYEOMAN_AUTH_ATTEMPTS_WINDOW", 15*time.Minute),

		MemoryFlagThreshold:      getFloat("SECUREYEOMAN_MEMORY_FLAG_THRESHOLD", 0.85),
		MemoryAutoDedupThreshold: getFloat("SECUREYEOMAN_MEMORY_AUTODEDUP_THRESHOLD", 0.95),
		MemoryReplaceThreshold:   getFloat("SECUREYEOMAN_MEMORY_REPLACE_THRESHOLD", 0.90),
		ConsolidationCron:        getEnv("SECUREYEOMAN_CONSOLIDATION_CRON", "0 3 * * *"),
		ConsolidationBatchSize:   getInt("SECUREYEOMAN_CONSOLIDATION_BATCH_SIZE", 50),
		ConsolidationTimeout:     getDuration("SECUREYEOMAN_CONSOLIDATION_TIMEOUT", 120*time.Second),

		DailyTokenBudget: getInt64("SECUREYEOMAN_DAILY_TOKEN_BUDGET", 0),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		DeepSeekAPIKey:   os.Getenv("DEEPSEEK_API_KEY"),
		MistralAPIKey:    os.Getenv("MISTRAL_API_KEY"),
		GrokAPIKey:       os.Getenv("XAI_API_KEY"),
		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", ""),

		TaskStuckTimeout:        getDuration("SECUREYEOMAN_TASK_STUCK_TIMEOUT", 30*time.Second),
		TaskRepetitionThreshold: getInt("SECUREYEOMAN_TASK_REPETITION_THRESHOLD", 2),

		ExtensionWebhooksEnabled: getBool("SECUREYEOMAN_EXTENSION_WEBHOOKS_ENABLED", true),
		ExtensionWebhookTimeout:  getDuration("SECUREYEOMAN_EXTENSION_WEBHOOK_TIMEOUT", 5*time.Second),

		RedisURL: os.Getenv("SECUREYEOMAN_REDIS_URL"),

		ServiceName: getEnv("SECUREYEOMAN_SERVICE_NAME", "secureyeoman"),
	}
	return o
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
