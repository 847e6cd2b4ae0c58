package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Scraper  ScraperConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           string
	AllowedOrigins string
	RateLimit      float64 // requests per second per client
	MaxWorkers     int     // async lookup workers
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// ScraperConfig is the explicit configuration object handed to the
// pipeline at construction; there is no module-level mode flag, so tests
// can exercise headless and headful behaviour deterministically.
type ScraperConfig struct {
	BaseURL   string
	Headless  bool
	UserAgent string
	// MinScore is the acceptance threshold for the best search candidate;
	// anything below it is reported as "no match".
	MinScore float64
	Timeouts TimeoutConfig
}

// TimeoutConfig bounds every wait in the pipeline. On expiry the
// component falls through to its next strategy or reports a miss; there
// is no infinite wait and no automatic retry.
type TimeoutConfig struct {
	Navigation time.Duration // page load
	Selector   time.Duration // waiting for a container to become visible
	Consent    time.Duration // per consent-dismissal strategy
	Settle     time.Duration // delay after simulated UI interaction
}

// Load builds the configuration from the environment.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           getEnv("HOST", "0.0.0.0"),
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
			RateLimit:      getEnvFloat("RATE_LIMIT_RPS", 5),
			MaxWorkers:     getEnvInt("LOOKUP_MAX_WORKERS", 3),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		},
		Scraper: DefaultScraperConfig(),
	}
}

// DefaultScraperConfig returns the pipeline configuration from the
// environment with production defaults.
func DefaultScraperConfig() ScraperConfig {
	return ScraperConfig{
		BaseURL:   getEnv("MARKET_BASE_URL", "https://www.pricehub.example"),
		Headless:  getEnvBool("SCRAPER_HEADLESS", true),
		UserAgent: getEnv("SCRAPER_USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		MinScore:  getEnvFloat("SCRAPER_MIN_SCORE", 0.45),
		Timeouts: TimeoutConfig{
			Navigation: getEnvDuration("SCRAPER_NAV_TIMEOUT", 20*time.Second),
			Selector:   getEnvDuration("SCRAPER_SELECTOR_TIMEOUT", 8*time.Second),
			Consent:    getEnvDuration("SCRAPER_CONSENT_TIMEOUT", 3*time.Second),
			Settle:     getEnvDuration("SCRAPER_SETTLE_DELAY", 1500*time.Millisecond),
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
