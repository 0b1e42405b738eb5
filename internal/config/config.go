package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Attributor application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Geo        GeoConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ClickHouseConfig configures the optional event archive.
type ClickHouseConfig struct {
	Enabled   bool
	Addr      string
	Database  string
	User      string
	Password  string
	BatchSize int
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled     bool
	IngestRPS   float64
	IngestBurst int
	MgmtRPS     float64
	MgmtBurst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
	Port    string
}

// GeoConfig configures GeoIP enrichment of beacon events.
type GeoConfig struct {
	Enabled      bool
	DatabasePath string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("ATTRIBUTOR_HTTP_ADDR", ":8080"),
			Env:             getEnv("ATTRIBUTOR_ENV", "development"),
			ShutdownTimeout: getDurationEnv("ATTRIBUTOR_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("ATTRIBUTOR_DB_HOST", "localhost"),
			Port:     getIntEnv("ATTRIBUTOR_DB_PORT", 5432),
			User:     getEnv("ATTRIBUTOR_DB_USER", "attributor"),
			Password: getEnv("ATTRIBUTOR_DB_PASSWORD", "attributor_secret"),
			DBName:   getEnv("ATTRIBUTOR_DB_NAME", "attributor"),
			SSLMode:  getEnv("ATTRIBUTOR_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("ATTRIBUTOR_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("ATTRIBUTOR_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("ATTRIBUTOR_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("ATTRIBUTOR_REDIS_PASSWORD", ""),
			DB:       getIntEnv("ATTRIBUTOR_REDIS_DB", 0),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:   getBoolEnv("ATTRIBUTOR_CLICKHOUSE_ENABLED", false),
			Addr:      getEnv("ATTRIBUTOR_CLICKHOUSE_ADDR", "localhost:9000"),
			Database:  getEnv("ATTRIBUTOR_CLICKHOUSE_DB", "attributor"),
			User:      getEnv("ATTRIBUTOR_CLICKHOUSE_USER", "default"),
			Password:  getEnv("ATTRIBUTOR_CLICKHOUSE_PASSWORD", ""),
			BatchSize: getIntEnv("ATTRIBUTOR_CLICKHOUSE_BATCH_SIZE", 500),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("ATTRIBUTOR_AUTH_ENABLED", true),
			MasterKey: getEnv("ATTRIBUTOR_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("ATTRIBUTOR_AUTH_SKIP_PATHS", []string{"/health", "/metrics", "/track/", "/webhooks/"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getBoolEnv("ATTRIBUTOR_RATE_LIMIT_ENABLED", true),
			IngestRPS:   getFloatEnv("ATTRIBUTOR_RATE_LIMIT_INGEST_RPS", 1000),
			IngestBurst: getIntEnv("ATTRIBUTOR_RATE_LIMIT_INGEST_BURST", 100),
			MgmtRPS:     getFloatEnv("ATTRIBUTOR_RATE_LIMIT_MGMT_RPS", 100),
			MgmtBurst:   getIntEnv("ATTRIBUTOR_RATE_LIMIT_MGMT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("ATTRIBUTOR_LOG_LEVEL", "info"),
			Format: getEnv("ATTRIBUTOR_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("ATTRIBUTOR_METRICS_ENABLED", true),
			Path:    getEnv("ATTRIBUTOR_METRICS_PATH", "/metrics"),
			Port:    getEnv("ATTRIBUTOR_METRICS_PORT", "9090"),
		},
		Geo: GeoConfig{
			Enabled:      getBoolEnv("ATTRIBUTOR_GEO_ENABLED", false),
			DatabasePath: getEnv("ATTRIBUTOR_GEO_DB_PATH", "/app/data/GeoLite2-Country.mmdb"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("ATTRIBUTOR_API_KEY_MASTER is required when auth is enabled")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.IngestRPS <= 0 || c.RateLimit.MgmtRPS <= 0 {
			return fmt.Errorf("rate limit RPS values must be positive when rate limiting is enabled")
		}
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
