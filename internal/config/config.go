// Package config provides centralized configuration management for the tool.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"time"

	"github.com/JonMunkholm/wite2/internal/audit"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Data     DataConfig
	Rules    RulesConfig
	Batch    BatchConfig
	Server   ServerConfig
	Security SecurityConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// DataConfig locates the scenario files.
type DataConfig struct {
	// Dir is the directory holding the scenario CSV files (default: .)
	Dir string `env:"WITE2_DATA_DIR" default:"."`

	// Scenario is the file name prefix of the default scenario, e.g. "1941"
	Scenario string `env:"WITE2_SCENARIO"`

	// Encoding is the text encoding of the CSV files (default: utf-8)
	Encoding string `env:"WITE2_ENCODING" default:"utf-8"`

	// ExportDir receives chain traces, inventories and orphan lists (default: exports)
	ExportDir string `env:"WITE2_EXPORT_DIR" default:"exports"`

	// SettingsFile persists the data directory and scenario between runs
	SettingsFile string `env:"WITE2_SETTINGS_FILE" default:".wite2.env"`
}

// RulesConfig holds the audit thresholds.
type RulesConfig struct {
	MapWidth     int `env:"WITE2_MAP_WIDTH" default:"379"`
	MapHeight    int `env:"WITE2_MAP_HEIGHT" default:"355"`
	MaxGameTurns int `env:"WITE2_MAX_GAME_TURNS" default:"225"`
	MaxGroundMen int `env:"WITE2_MAX_GROUND_MEN" default:"30"`

	// ExcessMultiplier flags a stock above this multiple of its need (default: 5)
	ExcessMultiplier int `env:"WITE2_EXCESS_MULTIPLIER" default:"5"`

	// GhostRules lists the slot states reported as ghost squads
	GhostRules string `env:"WITE2_GHOST_RULES" default:"unset,zero,negative"`

	// IgnoreOrigin skips units placed at (0, 0) in the bounds check (default: true)
	IgnoreOrigin bool `env:"WITE2_IGNORE_ORIGIN" default:"true"`

	// ActiveOnly restricts checks to active records (default: true)
	ActiveOnly bool `env:"WITE2_ACTIVE_ONLY" default:"true"`
}

// BatchConfig holds batch audit settings.
type BatchConfig struct {
	// Workers is the number of file sets audited in parallel (default: 4)
	Workers int `env:"WITE2_BATCH_WORKERS" default:"4"`
}

// ServerConfig holds HTTP report viewer settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxConcurrentLoads bounds the datasets loaded at once (default: 2)
	MaxConcurrentLoads int `env:"SERVER_MAX_CONCURRENT_LOADS" default:"2"`

	// LoadWaitTime is how long a request waits for a load slot (default: 10s)
	LoadWaitTime time.Duration `env:"SERVER_LOAD_WAIT_TIME" default:"10s"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects viewer requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// DatabaseConfig holds the optional history database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string; empty disables history
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// Dir receives one timestamped log file per invocation; empty disables it
	Dir string `env:"LOG_DIR" default:"logs"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// AuditRules converts the configured thresholds into audit rules.
// GhostRules must have passed Validate.
func (c *RulesConfig) AuditRules() audit.Rules {
	ghost, err := audit.ParseGhostRules(c.GhostRules)
	if err != nil {
		ghost = audit.DefaultGhostRules
	}
	return audit.Rules{
		MapWidth:     c.MapWidth,
		MapHeight:    c.MapHeight,
		MaxGameTurns: c.MaxGameTurns,
		MaxGroundMen: c.MaxGroundMen,
		Ghost:        ghost,
		IgnoreOrigin: c.IgnoreOrigin,
		ActiveOnly:   c.ActiveOnly,
	}
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
