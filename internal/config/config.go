// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreBackend selects the session persistence driver.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreSQLite StoreBackend = "sqlite"
	StoreRedis  StoreBackend = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string

	StoreBackend StoreBackend
	DBPath       string
	RedisAddr    string
	RedisDB      int
	SessionTTL   time.Duration

	AI AIConfig

	MaxCodeBytes         int
	MaxPromptBytes       int
	MaxValidationRetries int

	ConversationLog ConversationLogConfig
}

// AIConfig holds LLM provider settings.
type AIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),

		StoreBackend: StoreBackend(strings.ToLower(getEnv("STORE_BACKEND", "memory"))),
		DBPath:       getEnv("DB_PATH", "./data/playforge.db"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:      getEnvInt("REDIS_DB", 0),
		SessionTTL:   time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)) * time.Minute,

		AI: AIConfig{
			BaseURL:     getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("AI_API_KEY", ""),
			Model:       getEnv("AI_MODEL", "gpt-4-1106-preview"),
			MaxTokens:   getEnvInt("AI_MAX_TOKENS", 4000),
			Temperature: getEnvFloat("AI_TEMPERATURE", 0.7),
			Timeout:     time.Duration(getEnvInt("AI_TIMEOUT_SECONDS", 60)) * time.Second,
		},

		MaxCodeBytes:         getEnvInt("MAX_CODE_BYTES", 500_000),
		MaxPromptBytes:       getEnvInt("MAX_PROMPT_BYTES", 1_000_000),
		MaxValidationRetries: getEnvInt("MAX_VALIDATION_RETRIES", 3),

		ConversationLog: ConversationLogConfig{
			Enabled:   getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:       getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			QueueSize: getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 256),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.StoreBackend {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("STORE_BACKEND must be memory, sqlite or redis, got %q", c.StoreBackend)
	}
	if c.StoreBackend == StoreSQLite && c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty with the sqlite backend")
	}
	if c.StoreBackend == StoreRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR cannot be empty with the redis backend")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be > 0")
	}
	if c.MaxValidationRetries <= 0 {
		return fmt.Errorf("MAX_VALIDATION_RETRIES must be > 0")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty when logging is enabled")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}
