// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Store backends accepted by StoreBackend.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// StoreBackend selects where results live: memory, sqlite or postgres.
	StoreBackend string `koanf:"store_backend"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `koanf:"postgres_dsn"`

	// CORSAllowedOrigins lists browser origins allowed to call the API and
	// open websocket subscriptions. In env, a comma-separated list.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// NotifyQueueSize bounds pending leaderboard change notifications.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// NotifierWorkers sets the number of broadcast workers.
	NotifierWorkers int `koanf:"notifier_workers"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":8000",
		StoreBackend:       BackendMemory,
		SQLitePath:         "scoreboard.db",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		NotifyQueueSize:    1024,
		NotifierWorkers:    4,
		MaxBodyBytes:       1 << 20,
		ShutdownTimeoutMS:  10_000,
	}
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case !slices.Contains([]string{"debug", "info", "warn", "warning", "error"}, strings.ToLower(c.LogLevel)):
		return invalid("unknown log_level %q", c.LogLevel)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return invalid("unknown log_format %q", c.LogFormat)
	case c.NotifyQueueSize <= 0:
		return invalid("notify_queue_size must be positive, got %d", c.NotifyQueueSize)
	case c.NotifierWorkers <= 0:
		return invalid("notifier_workers must be positive, got %d", c.NotifierWorkers)
	case c.MaxBodyBytes <= 0:
		return invalid("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	case c.ShutdownTimeoutMS <= 0:
		return invalid("shutdown_timeout_ms must be positive, got %d", c.ShutdownTimeoutMS)
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return invalid("sqlite_path is required for the sqlite backend")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return invalid("postgres_dsn is required for the postgres backend")
		}
	default:
		return invalid("unknown store_backend %q", c.StoreBackend)
	}
	return nil
}
