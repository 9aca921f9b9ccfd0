package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8085", cfg.HTTPAddress())
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.True(t, cfg.Feed.Enabled)
	assert.Equal(t, 30*time.Second, cfg.FeedPingInterval())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: "9000"
storage:
  driver: Postgres
database:
  dsn: postgres://file
  connLifetime: 5m
feed:
  enabled: false
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MARKET_POSTGRES_DSN", "postgres://env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddress())
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://env", cfg.Database.DSN)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnLifetime)
	assert.True(t, cfg.Database.Migrate)
	assert.False(t, cfg.Feed.Enabled)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "dsn")

	cfg = Default()
	cfg.Storage.Driver = "redis"
	assert.ErrorContains(t, cfg.Validate(), "redis addr")
	cfg.Redis.Addr = "localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Storage.Driver = "cassandra"
	assert.ErrorContains(t, cfg.Validate(), "unknown storage driver")
}
