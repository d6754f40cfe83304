// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the chat service.
package server

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig defines a token bucket: Burst tokens refilled over
// RefillInterval.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64

	// RateLimit throttles requests on a single WebSocket connection.
	RateLimit RateLimitConfig

	// HTTPRateLimit throttles HTTP requests per client IP.
	HTTPRateLimit RateLimitConfig

	// PropertiesFile holds rooms, sweeper thresholds and message templates.
	// Empty provisions a single default room.
	PropertiesFile string

	LogLevel  string
	LogFormat string
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	originPatterns  []string
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 512,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		HTTPRateLimit: RateLimitConfig{
			Burst:          30,
			RefillInterval: time.Second,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

func sanitizeRateLimit(rl RateLimitConfig, burst int) RateLimitConfig {
	if rl.Burst <= 0 {
		rl.Burst = burst
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	return rl
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = ":8080"
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 512
	}

	cfg.RateLimit = sanitizeRateLimit(cfg.RateLimit, 5)
	cfg.HTTPRateLimit = sanitizeRateLimit(cfg.HTTPRateLimit, 30)

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	exact, patterns, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = append(append([]string(nil), exact...), patterns...)

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	originPatterns = patterns
	allowedOrigins = make(map[string]struct{}, len(exact))
	for _, origin := range exact {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		sanitizeConfig(defaultConfig())
		return
	}

	sanitized := *cfg
	sanitized.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// CurrentConfig returns a copy of the configuration in effect.
func CurrentConfig() Config {
	return currentConfig()
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}

	// Entries may be glob patterns such as http://*.example.org
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseRefillInterval(interval, cfg.RateLimit.RefillInterval)
	}

	if burst := os.Getenv("HTTP_RATE_LIMIT_BURST"); burst != "" {
		cfg.HTTPRateLimit.Burst = parseIntValue(burst, cfg.HTTPRateLimit.Burst)
	}

	if interval := os.Getenv("HTTP_RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.HTTPRateLimit.RefillInterval = parseRefillInterval(interval, cfg.HTTPRateLimit.RefillInterval)
	}

	cfg.PropertiesFile = os.Getenv("CHAT_PROPERTIES")

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
