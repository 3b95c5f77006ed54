package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/parlorgames/mystery-engine/pkg/timeline"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	LLMProvider     string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	ModelName       string
	LLMTimeout      time.Duration

	RedisURL string
	DataDir  string

	HistoryLimit       int
	AvailabilityPolicy timeline.AvailabilityPolicy
}

func Load() (*Config, error) {
	timeout, err := time.ParseDuration(getEnv("LLM_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TIMEOUT: %w", err)
	}

	policy := timeline.AvailabilityPolicy(getEnv("CHARACTER_AVAILABILITY", string(timeline.PolicyAll)))
	if policy != timeline.PolicyAll && policy != timeline.PolicyPhase {
		return nil, fmt.Errorf("invalid CHARACTER_AVAILABILITY %q: must be %q or %q",
			policy, timeline.PolicyAll, timeline.PolicyPhase)
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		LogLevel:           parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LLMProvider:        getEnv("LLM_PROVIDER", "anthropic"),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		ModelName:          getEnv("MODEL_NAME", "claude-sonnet-4-20250514"),
		LLMTimeout:         timeout,
		RedisURL:           getEnv("REDIS_URL", "localhost:6379"),
		DataDir:            getEnv("DATA_DIR", "./data"),
		HistoryLimit:       10,
		AvailabilityPolicy: policy,
	}, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
