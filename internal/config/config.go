// Package config provides environment configuration for the bot server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	Environment        string

	// LINE platform settings
	LineChannelSecret      string
	LineChannelAccessToken string

	// LLM settings
	OpenAIAPIKey    string
	AnthropicAPIKey string
	DefaultLLM      string
	ChatModel       string
	VisionModel     string

	// Persistence backend
	BackendBaseURL string

	// Conversation behavior
	GroupTriggerKeyword string
	SessionTTL          time.Duration
	TravelMaxTurns      int

	// Admin API
	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// NATS (optional, empty URL disables event publishing)
	NATSURL   string
	NATSToken string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables. Missing required
// values are a startup error.
func Load() (*Config, error) {
	cfg := &Config{
		// Server
		ServerPort:         getEnv("PORT", "3000"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
		Environment:        getEnv("ENV", "development"),

		// LINE
		LineChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
		LineChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),

		// LLM
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "openai"),
		ChatModel:       getEnv("CHAT_MODEL", ""),
		VisionModel:     getEnv("VISION_MODEL", ""),

		// Backend
		BackendBaseURL: getEnv("BACKEND_BASE_URL", "https://lipo-out-backend-production.up.railway.app"),

		// Conversation
		GroupTriggerKeyword: getEnv("GROUP_TRIGGER_KEYWORD", "小幫手"),
		SessionTTL:          getDurationEnv("SESSION_TTL", 10*time.Minute),
		TravelMaxTurns:      getIntEnv("TRAVEL_MAX_TURNS", 5),

		// Admin API
		JWTSecret:         getEnv("JWT_SECRET", "development-secret-change-in-production"),
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// NATS
		NATSURL:   getEnv("NATS_URL", ""),
		NATSToken: getEnv("NATS_TOKEN", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string

	if c.LineChannelSecret == "" {
		missing = append(missing, "LINE_CHANNEL_SECRET")
	}
	if c.LineChannelAccessToken == "" {
		missing = append(missing, "LINE_CHANNEL_ACCESS_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if c.OpenAIAPIKey == "" && c.AnthropicAPIKey == "" {
		return errors.New("either OPENAI_API_KEY or ANTHROPIC_API_KEY must be set")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
