package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"killay/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(nil)
	require.NoError(t, err)

	assert.True(t, cfg.Database.InMemory())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadSize)
	assert.Equal(t, "/admin", cfg.Admin.BasePath)
	assert.Equal(t, 1000, cfg.Template.Rows)
	assert.Equal(t, 16, cfg.Cache.Size)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.Archive.Enabled())
	assert.Equal(t, "killay-imports", cfg.Archive.Bucket)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:catalog.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("TEMPLATE_ROWS", "250")
	t.Setenv("CHOICES_CACHE_TTL", "30s")
	t.Setenv("ARCHIVE_S3_ENDPOINT", "localhost:9000")
	t.Setenv("ARCHIVE_S3_ACCESS_KEY", "minio")
	t.Setenv("ARCHIVE_S3_SECRET_KEY", "minio123")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadFrom(nil)
	require.NoError(t, err)

	assert.False(t, cfg.Database.InMemory())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 250, cfg.Template.Rows)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.True(t, cfg.Archive.Enabled())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("ADMIN_BASE_PATH=/cms\nPORT=9090\n"), 0o600))
	t.Setenv("PORT", "7070")
	// godotenv sets variables through os.Setenv; restore them after the test
	t.Setenv("ADMIN_BASE_PATH", "")
	require.NoError(t, os.Unsetenv("ADMIN_BASE_PATH"))

	cfg, err := LoadFrom([]string{file, filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "/cms", cfg.Admin.BasePath)
	assert.Equal(t, "7070", cfg.Server.Port, "the environment wins over env files")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string][2]string{
		"unknown driver":        {"DATABASE_DRIVER", "mysql"},
		"unknown log level":     {"LOG_LEVEL", "loud"},
		"unknown log format":    {"LOG_FORMAT", "xml"},
		"non numeric port":      {"PORT", "http"},
		"template too short":    {"TEMPLATE_ROWS", "1"},
		"relative metrics path": {"METRICS_PATH", "metrics"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadFrom(nil)
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestLoadRejectsArchiveWithoutCredentials(t *testing.T) {
	t.Setenv("ARCHIVE_S3_ENDPOINT", "localhost:9000")

	_, err := LoadFrom(nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.Contains(t, err.Error(), "AccessKey")
}

func TestLoadRejectsUnparsableValues(t *testing.T) {
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "many")

	_, err := LoadFrom(nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
