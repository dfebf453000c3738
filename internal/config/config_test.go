package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFillsDefaultsWithNoFile(t *testing.T) {
	cfg, err := LoadConfig(ConfigPaths{})
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:9000", cfg.Connection.URL)
	assert.Equal(t, 25, cfg.Transaction.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.Transaction.BackoffInitial)
	assert.Equal(t, "pebble", cfg.Blobstore.Backend)
	assert.Equal(t, "sqlite", cfg.AuditLog.Backend)
	assert.Equal(t, "", cfg.GetConfigPath())
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	mainConfigContent := `
[connection]
url = "ws://sync.example.com:9443"

[transaction]
max_retries = 10

[blobstore]
backend = "leveldb"
`
	mainConfigPath := filepath.Join(tempDir, "synccore.toml")
	require.NoError(t, os.WriteFile(mainConfigPath, []byte(mainConfigContent), 0644))

	cfg, err := LoadConfig(ConfigPaths{Main: mainConfigPath})
	require.NoError(t, err)

	assert.Equal(t, "ws://sync.example.com:9443", cfg.Connection.URL)
	assert.Equal(t, 10, cfg.Transaction.MaxRetries)
	assert.Equal(t, "leveldb", cfg.Blobstore.Backend)
	assert.Equal(t, mainConfigPath, cfg.GetConfigPath())
}

func TestLoadConfigEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SYNCCORE_CONNECTION_URL", "ws://env.example.com:1")

	cfg, err := LoadConfig(ConfigPaths{})
	require.NoError(t, err)
	assert.Equal(t, "ws://env.example.com:1", cfg.Connection.URL)
}

func TestLoadConfigMissingFileErrors(t *testing.T) {
	_, err := LoadConfig(ConfigPaths{Main: "/nonexistent/synccore.toml"})
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalidBackend(t *testing.T) {
	tempDir := t.TempDir()
	mainConfigPath := filepath.Join(tempDir, "synccore.toml")
	require.NoError(t, os.WriteFile(mainConfigPath, []byte(`
[blobstore]
backend = "nonsense"
`), 0644))

	_, err := LoadConfig(ConfigPaths{Main: mainConfigPath})
	assert.Error(t, err)
}

func TestAuthTokenReadsNamedEnvVar(t *testing.T) {
	t.Setenv("MY_TOKEN", "secret")
	cfg := &Config{Connection: ConnectionConfig{AuthTokenEnv: "MY_TOKEN"}}
	assert.Equal(t, "secret", cfg.AuthToken())
}

func TestAuthTokenEmptyWhenUnconfigured(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "", cfg.AuthToken())
}
