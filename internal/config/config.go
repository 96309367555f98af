// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Limits    LimitsConfig
	Artifacts ArtifactConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
// The database only stores operation history and is optional: with no URL
// the history is kept in memory.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// LimitsConfig bounds the work a single operation may do.
type LimitsConfig struct {
	// MaxFileSize is the maximum size of one input file in bytes (default: 100MB)
	MaxFileSize int64 `env:"MAX_FILE_SIZE" default:"104857600"`

	// MaxRows is the maximum number of data rows per input, 0 for no limit (default: 0)
	MaxRows int `env:"MAX_ROWS" default:"0"`

	// MaxParts is the largest part count a split may request (default: 1000)
	MaxParts int `env:"MAX_PARTS" default:"1000"`

	// MaxConcurrent is the maximum number of operations running at once (default: 4)
	MaxConcurrent int `env:"MAX_CONCURRENT_OPERATIONS" default:"4"`

	// MaxWaitTime is how long to wait for an operation slot (default: 30s)
	MaxWaitTime time.Duration `env:"OPERATION_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration of a single operation (default: 2m)
	Timeout time.Duration `env:"OPERATION_TIMEOUT" default:"2m"`
}

// ArtifactConfig controls how long generated files stay downloadable.
type ArtifactConfig struct {
	// TTL is how long an artifact is kept after creation (default: 30m)
	TTL time.Duration `env:"ARTIFACT_TTL" default:"30m"`

	// SweepInterval is how often expired artifacts are removed (default: 1m)
	SweepInterval time.Duration `env:"ARTIFACT_SWEEP_INTERVAL" default:"1m"`

	// MaxBytes caps the total size of stored artifacts, 0 for no cap (default: 512MB)
	MaxBytes int64 `env:"ARTIFACT_MAX_BYTES" default:"536870912"`

	// HistorySize is the number of operations kept by the in-memory history (default: 200)
	HistorySize int `env:"HISTORY_SIZE" default:"200"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// OperationLimit is requests per minute for the operation endpoints (default: 20)
	OperationLimit int `env:"RATE_LIMIT_OPERATIONS" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey rejects API requests without a valid X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
