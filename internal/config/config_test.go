package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "filter_", cfg.Filters.Prefix)
	assert.False(t, cfg.Filters.Strict)
	assert.False(t, cfg.Envelope.UniformNotFound)
	assert.Equal(t, 10, cfg.Pagination.DefaultPageSize)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  host: db
  sslmode: require
filters:
  strict: true
envelope:
  uniform_not_found: true
redis:
  url: redis://cache:6379/0
cache:
  ttl: 30s
`)
	t.Setenv("ORDERS_DATABASE_HOST", "db.internal")
	t.Setenv("ORDERS_PAGINATION_MAX_PAGE_SIZE", "50")
	t.Setenv("ORDERS_RATE_LIMIT_ENABLED", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.True(t, cfg.Filters.Strict)
	assert.True(t, cfg.Envelope.UniformNotFound)
	assert.Equal(t, 50, cfg.Pagination.MaxPageSize)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal port=5432")
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, "auth:\n  enabled: true\n")
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "auth.secret")

	path = writeConfig(t, "filters:\n  prefix: \"\"\n")
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "filters.prefix")
}
