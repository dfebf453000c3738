// Package config loads synccore's settings the way the teacher's
// config package loads rippled.cfg: viper defaults, then an optional
// TOML file, then environment overrides, then validation.
package config

import (
	"os"
	"time"
)

// Config is the complete synccore configuration.
type Config struct {
	Connection  ConnectionConfig  `mapstructure:"connection"`
	Transaction TransactionConfig `mapstructure:"transaction"`
	Blobstore   BlobstoreConfig   `mapstructure:"blobstore"`
	AuditLog    AuditLogConfig    `mapstructure:"audit_log"`

	Debug   bool `mapstructure:"debug"`
	Verbose bool `mapstructure:"verbose"`

	configPath string
}

// ConnectionConfig describes how to reach the authoritative server
// (spec.md §6).
type ConnectionConfig struct {
	URL string `mapstructure:"url"`
	// AuthTokenEnv names the environment variable holding the bearer
	// token passed to Connection.Auth; empty means no auth call is made.
	AuthTokenEnv string `mapstructure:"auth_token_env"`
}

// TransactionConfig tunes the optimistic-CAS retry loop (spec.md §4.6).
type TransactionConfig struct {
	// MaxRetries is loaded and validated here (default 25). The
	// transaction engine does not read it: its cap is the constant
	// txn.MaxRetries. The backoff fields are likewise not read.
	MaxRetries     int           `mapstructure:"max_retries"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
}

// BlobstoreConfig selects internal/blobstore's backend and cache
// sizing, used by internal/fakeserver's authoritative store.
type BlobstoreConfig struct {
	Backend    string `mapstructure:"backend"`    // "pebble" or "leveldb"
	Path       string `mapstructure:"path"`
	CacheSize  int    `mapstructure:"cache_size"`
	Compressor string `mapstructure:"compressor"` // "none" or "lz4"
}

// AuditLogConfig selects internal/auditlog's backend, used by
// internal/fakeserver to record completed transactions.
type AuditLogConfig struct {
	Backend string `mapstructure:"backend"` // "postgres" or "sqlite"
	DSN     string `mapstructure:"dsn"`
}

// GetConfigPath returns the file path config was loaded from, or the
// empty string if it was loaded from defaults and environment alone.
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// AuthToken reads the bearer token from the environment variable named
// by Connection.AuthTokenEnv, or returns "" if none is configured.
func (c *Config) AuthToken() string {
	if c.Connection.AuthTokenEnv == "" {
		return ""
	}
	return os.Getenv(c.Connection.AuthTokenEnv)
}
