package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: /tmp/test.db
server:
  port: 9090
  allowed_origins:
    - http://example.com
matching:
  date_tolerance_days: 3
  page_size: 250
observability:
  logging:
    level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 3, cfg.Matching.DateToleranceDays)
	assert.Equal(t, 250, cfg.Matching.PageSize)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)

	// Unset values fall back to defaults.
	assert.Equal(t, 0.01, cfg.Matching.ValueEpsilon)
	assert.Equal(t, 0.5, cfg.Matching.NameThreshold)
	assert.Equal(t, 10, cfg.Matching.CommitBatchSize)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/data/expanded.db")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  database_path: ${TEST_DB_PATH}\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/expanded.db", cfg.Storage.DatabasePath)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg := LoadFromEnv()

	assert.Equal(t, "reconcile.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Matching.DateToleranceDays)
	assert.Equal(t, 500, cfg.Matching.PageSize)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("RECONCILE_DB_PATH", "/data/prod.db")
	t.Setenv("MATCH_PAGE_SIZE", "100")

	cfg := LoadFromEnv()

	assert.Equal(t, "/data/prod.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 100, cfg.Matching.PageSize)
}

func TestLoadOrEnvWithPath_FallsBack(t *testing.T) {
	cfg := LoadOrEnvWithPath("/nonexistent/config.yaml")
	assert.Equal(t, 8080, cfg.Server.Port)
}
