package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the LiaiZen mediation plane.
type Config struct {
	Port       int
	Version    string
	Completion CompletionConfig
	Cache      CacheConfig
	Profiles   ProfileConfig
	Telemetry  TelemetryConfig
}

// CompletionConfig configures the external completion service client.
type CompletionConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// CacheConfig configures the message-analysis cache. When RedisAddr is
// empty the engine uses the in-process cache.
type CacheConfig struct {
	MaxAge    time.Duration
	MaxSize   int
	RedisAddr string
	RedisDB   int
}

// ProfileConfig configures communication-profile persistence.
type ProfileConfig struct {
	SQLitePath string
}

type TelemetryConfig struct {
	Enabled        bool
	OTLPEndpoint   string
	ServiceName    string
	ServiceVersion string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("LIAIZEN_PORT", 8080),
		Version: envStr("LIAIZEN_VERSION", "0.4.0"),
		Completion: CompletionConfig{
			APIKey:      envStr("OPENAI_API_KEY", ""),
			Model:       envStr("MEDIATION_MODEL", "gpt-4o-mini"),
			MaxTokens:   envInt("MEDIATION_MAX_TOKENS", 900),
			Temperature: envFloat("MEDIATION_TEMPERATURE", 0.6),
			Timeout:     envDur("MEDIATION_TIMEOUT", 30*time.Second),
		},
		Cache: CacheConfig{
			MaxAge:    envDur("ANALYSIS_CACHE_MAX_AGE", 30*time.Minute),
			MaxSize:   envInt("ANALYSIS_CACHE_MAX_SIZE", 500),
			RedisAddr: envStr("ANALYSIS_CACHE_REDIS_ADDR", ""),
			RedisDB:   envInt("ANALYSIS_CACHE_REDIS_DB", 0),
		},
		Profiles: ProfileConfig{
			SQLitePath: envStr("PROFILE_DB_PATH", "liaizen-profiles.db"),
		},
		Telemetry: TelemetryConfig{
			Enabled:        envBool("OTEL_ENABLED", false),
			OTLPEndpoint:   envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:    envStr("OTEL_SERVICE_NAME", "liaizen-mediation-plane"),
			ServiceVersion: envStr("LIAIZEN_VERSION", "0.4.0"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
