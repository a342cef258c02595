package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 1024, cfg.HistoryBuffer)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store_driver: sqlite
sqlite_path: /var/lib/pos.db
event_bus: none
history_buffer: 16
kafka_brokers: [a:9092, b:9092]
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "/var/lib/pos.db", cfg.SQLitePath)
	assert.Equal(t, "none", cfg.EventBus)
	assert.Equal(t, 16, cfg.HistoryBuffer)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORE_DRIVER", "mysql")
	_, err := Load()
	assert.Error(t, err)
}

func TestGetintIgnoresGarbage(t *testing.T) {
	t.Setenv("HISTORY_BUFFER", "lots")
	assert.Equal(t, 7, getint("HISTORY_BUFFER", 7))
}
