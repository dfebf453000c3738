package config

import "fmt"

// Validate performs comprehensive validation on the complete
// configuration, the teacher's ValidateConfig shape: one function per
// section, each wrapping its error with the section name.
func Validate(c *Config) error {
	if err := validateConnection(&c.Connection); err != nil {
		return fmt.Errorf("connection: %w", err)
	}
	if err := validateTransaction(&c.Transaction); err != nil {
		return fmt.Errorf("transaction: %w", err)
	}
	if err := validateBlobstore(&c.Blobstore); err != nil {
		return fmt.Errorf("blobstore: %w", err)
	}
	if err := validateAuditLog(&c.AuditLog); err != nil {
		return fmt.Errorf("audit_log: %w", err)
	}
	return nil
}

func validateConnection(c *ConnectionConfig) error {
	if c.URL == "" {
		return fmt.Errorf("url must not be empty")
	}
	return nil
}

func validateTransaction(c *TransactionConfig) error {
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive, got %d", c.MaxRetries)
	}
	if c.BackoffInitial <= 0 {
		return fmt.Errorf("backoff_initial must be positive")
	}
	if c.BackoffMax < c.BackoffInitial {
		return fmt.Errorf("backoff_max (%s) must be >= backoff_initial (%s)", c.BackoffMax, c.BackoffInitial)
	}
	return nil
}

func validateBlobstore(c *BlobstoreConfig) error {
	switch c.Backend {
	case "pebble", "leveldb":
	default:
		return fmt.Errorf("unsupported backend %q, want pebble or leveldb", c.Backend)
	}
	switch c.Compressor {
	case "none", "lz4":
	default:
		return fmt.Errorf("unsupported compressor %q, want none or lz4", c.Compressor)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative")
	}
	return nil
}

func validateAuditLog(c *AuditLogConfig) error {
	switch c.Backend {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported backend %q, want postgres or sqlite", c.Backend)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn must not be empty")
	}
	return nil
}
