package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"ledger/internal/storage"
)

type Config struct {
	// HTTP Server
	Host               string
	Port               string
	RateLimitPerMinute int

	// Database
	DatabaseURL     string
	SQLiteDBPath    string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Startup wait for the networked engine
	StartupMaxAttempts  int
	StartupInitialDelay time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string

	// Diagnostics
	LogLevel        string
	ShowDebugErrors bool
}

func Load() *Config {
	cfg := &Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		Port:               getEnv("PORT", "5000"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/data.db"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),

		StartupMaxAttempts:  getEnvInt("STARTUP_MAX_ATTEMPTS", 8),
		StartupInitialDelay: getEnvDuration("STARTUP_INITIAL_DELAY", 2*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),

		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShowDebugErrors: getEnvBool("SHOW_DEBUG_ERRORS", false),
	}

	return cfg
}

// Addr is the listen address built from Host and Port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Engine reports which engine DatabaseURL selects.
func (c *Config) Engine() storage.Engine {
	return storage.SelectEngine(c.DatabaseURL)
}

// ProviderConfig maps the database settings onto the storage provider.
func (c *Config) ProviderConfig() storage.ProviderConfig {
	return storage.ProviderConfig{
		DatabaseURL:     c.DatabaseURL,
		SQLitePath:      c.SQLiteDBPath,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// RetryPolicy is the startup wait policy for the networked engine.
func (c *Config) RetryPolicy() storage.RetryPolicy {
	p := storage.DefaultRetryPolicy()
	p.MaxAttempts = c.StartupMaxAttempts
	p.InitialDelay = c.StartupInitialDelay
	return p
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate log level
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Validate database descriptor
	if c.Engine() == storage.Postgres {
		if u, err := url.Parse(c.DatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL: %v", redact(err)))
		} else if u.Host == "" {
			errors = append(errors, "invalid DATABASE_URL: missing host")
		}
	} else if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty when DATABASE_URL does not select PostgreSQL")
	}

	// Validate pool bounds
	if c.MaxOpenConns < 1 {
		errors = append(errors, fmt.Sprintf("invalid max open connections %d: must be at least 1", c.MaxOpenConns))
	}
	if c.MaxIdleConns < 0 {
		errors = append(errors, fmt.Sprintf("invalid max idle connections %d: must not be negative", c.MaxIdleConns))
	} else if c.MaxOpenConns >= 1 && c.MaxIdleConns > c.MaxOpenConns {
		errors = append(errors, fmt.Sprintf("invalid max idle connections %d: must not exceed max open connections %d", c.MaxIdleConns, c.MaxOpenConns))
	}
	if c.ConnMaxLifetime < time.Second {
		errors = append(errors, fmt.Sprintf("invalid connection max lifetime %v: must be at least 1 second", c.ConnMaxLifetime))
	}

	// Validate startup wait
	if c.StartupMaxAttempts < 1 {
		errors = append(errors, fmt.Sprintf("invalid startup max attempts %d: must be at least 1", c.StartupMaxAttempts))
	}
	if c.StartupInitialDelay <= 0 {
		errors = append(errors, fmt.Sprintf("invalid startup initial delay %v: must be positive", c.StartupInitialDelay))
	}

	// Validate rate limit
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", redact(err)))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// redact drops the offending URL from a parse error so credentials never
// reach the logs.
func redact(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err
	}
	return err
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}
