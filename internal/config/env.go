package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public Whisperer API endpoint.
const DefaultBaseURL = "https://llmwhisperer-api.unstract.com/api/v2"

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// APIConfig holds connection settings for the Whisperer API.
type APIConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// RetryConfig bounds retries of transient failures.
type RetryConfig struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// PollConfig drives the wait-for-completion loop.
type PollConfig struct {
	Interval    time.Duration
	WaitTimeout time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	API     APIConfig
	Retry   RetryConfig
	Poll    PollConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("WHISPERER_LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("WHISPERER_LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("WHISPERER_LOG_FILE", ""),
		MaxSizeMB:  parseInt(getEnv("WHISPERER_LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("WHISPERER_LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("WHISPERER_LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("WHISPERER_LOG_COMPRESS", "true")),
	}

	cfg.API = APIConfig{
		BaseURL: getEnv("WHISPERER_BASE_URL", DefaultBaseURL),
		APIKey:  getEnv("WHISPERER_API_KEY", ""),
		Timeout: parseDuration(getEnv("WHISPERER_API_TIMEOUT", "120s"), 120*time.Second),
	}

	cfg.Retry = RetryConfig{
		MaxRetries: parseInt(getEnv("WHISPERER_MAX_RETRIES", "3"), 3),
		MinWait:    parseDuration(getEnv("WHISPERER_RETRY_MIN_WAIT", "1s"), time.Second),
		MaxWait:    parseDuration(getEnv("WHISPERER_RETRY_MAX_WAIT", "30s"), 30*time.Second),
	}

	cfg.Poll = PollConfig{
		Interval:    parseDuration(getEnv("WHISPERER_POLL_INTERVAL", "5s"), 5*time.Second),
		WaitTimeout: parseDuration(getEnv("WHISPERER_WAIT_TIMEOUT", "180s"), 180*time.Second),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
