package config

import "github.com/spf13/viper"

// setDefaults sets every default value, matching the teacher's
// setDefaults shape: one SetDefault per field, grouped by section.
func setDefaults(v *viper.Viper) {
	v.SetDefault("connection.url", "ws://127.0.0.1:9000")
	v.SetDefault("connection.auth_token_env", "SYNCCORE_TOKEN")

	v.SetDefault("transaction.max_retries", 25)
	v.SetDefault("transaction.backoff_initial", "50ms")
	v.SetDefault("transaction.backoff_max", "2s")

	v.SetDefault("blobstore.backend", "pebble")
	v.SetDefault("blobstore.path", "./data/blobstore")
	v.SetDefault("blobstore.cache_size", 1000)
	v.SetDefault("blobstore.compressor", "lz4")

	v.SetDefault("audit_log.backend", "sqlite")
	v.SetDefault("audit_log.dsn", "./data/auditlog.db")

	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}
