// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Storage paths. DataDir is the well-known directory holding the
	// database file plus the sibling config and insights documents.
	DataDir      string
	DBPath       string
	ConfigPath   string // operator-editable JSON document (passthrough)
	InsightsPath string // plain-text notes file (passthrough)

	// Retention settings. RetentionDays <= 0 disables the sweep.
	RetentionDays     int
	RetentionInterval time.Duration

	// Rate limiting for the ingestion endpoints.
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel            string
	MaxRequestBodyBytes int64
}

// Load reads configuration from environment variables with sensible
// defaults. The default data directory is ~/.overseer.
func Load() (Config, error) {
	dataDir := envStr("OVERSEER_DATA_DIR", defaultDataDir())

	cfg := Config{
		Port:                envInt("OVERSEER_PORT", 8321),
		ReadTimeout:         envDuration("OVERSEER_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        envDuration("OVERSEER_WRITE_TIMEOUT", 30*time.Second),
		DataDir:             dataDir,
		DBPath:              envStr("OVERSEER_DB_PATH", filepath.Join(dataDir, "overseer.db")),
		ConfigPath:          envStr("OVERSEER_CONFIG_PATH", filepath.Join(dataDir, "config.json")),
		InsightsPath:        envStr("OVERSEER_INSIGHTS_PATH", filepath.Join(dataDir, "insights.txt")),
		RetentionDays:       envInt("OVERSEER_RETENTION_DAYS", 30),
		RetentionInterval:   envDuration("OVERSEER_RETENTION_INTERVAL", 24*time.Hour),
		RateLimitEnabled:    envBool("OVERSEER_RATE_LIMIT_ENABLED", true),
		RateLimitRPS:        envFloat("OVERSEER_RATE_LIMIT_RPS", 50),
		RateLimitBurst:      envInt("OVERSEER_RATE_LIMIT_BURST", 100),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "overseer"),
		LogLevel:            envStr("OVERSEER_LOG_LEVEL", "info"),
		MaxRequestBodyBytes: int64(envInt("OVERSEER_MAX_REQUEST_BODY_BYTES", 1*1024*1024)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and coherent.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: OVERSEER_DB_PATH is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: OVERSEER_PORT must be a valid port")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: OVERSEER_MAX_REQUEST_BODY_BYTES must be positive")
	}
	if c.RetentionDays > 0 && c.RetentionInterval <= 0 {
		return fmt.Errorf("config: OVERSEER_RETENTION_INTERVAL must be positive when retention is enabled")
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".overseer"
	}
	return filepath.Join(home, ".overseer")
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
