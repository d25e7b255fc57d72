// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, Load returns
// an error describing every problem found.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Cache backends.
const (
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
)

// Config holds all runtime configuration for the catalog service.
type Config struct {
	Port        string
	GRPCPort    string
	DatabaseURL string
	RedisURL    string

	CacheBackend    string
	CacheSQLitePath string

	SweepInterval   string
	SweepStartDelay time.Duration
	BootstrapDelay  time.Duration
	SweepSampleSize int
	QueryFetchCap   int

	AdminFallbackEnabled bool
	AdminTokenHash       string

	EventsChannel string
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		Port:            getEnv("CATALOG_PORT", "8083"),
		GRPCPort:        getEnv("CATALOG_GRPC_PORT", "9093"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		CacheBackend:    getEnv("CACHE_BACKEND", CacheRedis),
		CacheSQLitePath: getEnv("CACHE_SQLITE_PATH", "catalog-cache.db"),
		SweepInterval:   getEnv("SWEEP_INTERVAL", "@every 24h"),
		AdminTokenHash:  os.Getenv("ADMIN_TOKEN_HASH"),
		EventsChannel:   getEnv("EVENTS_CHANNEL", "EVENT_CATALOG"),
	}

	cfg.SweepStartDelay = getDuration("SWEEP_START_DELAY", 5*time.Second, &errs)
	cfg.BootstrapDelay = getDuration("BOOTSTRAP_DELAY", 2*time.Second, &errs)
	cfg.SweepSampleSize = getInt("SWEEP_SAMPLE_SIZE", 100, &errs)
	cfg.QueryFetchCap = getInt("QUERY_FETCH_CAP", 1000, &errs)
	cfg.AdminFallbackEnabled = getBool("ADMIN_FALLBACK_ENABLED", false, &errs)

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks that all required values are present and consistent.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("CATALOG_PORT is required"))
	}
	if c.CacheBackend != CacheRedis && c.CacheBackend != CacheSQLite {
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be 'redis' or 'sqlite', got '%s'", c.CacheBackend))
	}
	if c.CacheBackend == CacheSQLite && c.CacheSQLitePath == "" {
		errs = append(errs, errors.New("CACHE_SQLITE_PATH is required when CACHE_BACKEND is sqlite"))
	}
	if c.SweepInterval == "" {
		errs = append(errs, errors.New("SWEEP_INTERVAL is required"))
	}
	if c.SweepSampleSize <= 0 {
		errs = append(errs, errors.New("SWEEP_SAMPLE_SIZE must be positive"))
	}
	if c.QueryFetchCap <= 0 {
		errs = append(errs, errors.New("QUERY_FETCH_CAP must be positive"))
	}
	if c.AdminFallbackEnabled && c.AdminTokenHash == "" {
		errs = append(errs, errors.New("ADMIN_TOKEN_HASH is required when ADMIN_FALLBACK_ENABLED is true"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer, got '%s'", key, v))
		return fallback
	}
	return n
}

func getBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a boolean, got '%s'", key, v))
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a duration, got '%s'", key, v))
		return fallback
	}
	return d
}
