package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"killay/adapters/memory"
	"killay/internal/config"
	"killay/internal/pieces"
)

func baseConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", MaxOpenConns: 1, ConnMaxLifetime: time.Minute},
		Admin:    config.AdminConfig{BasePath: "/admin"},
		Template: config.TemplateConfig{Rows: 10},
		Cache:    config.CacheConfig{Size: 4, TTL: time.Minute},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func TestNewInMemory(t *testing.T) {
	logger, _ := test.NewNullLogger()

	c, err := New(context.Background(), baseConfig(), logger)
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.DB)
	assert.IsType(t, &memory.CatalogStore{}, c.Catalog)
	assert.Nil(t, c.Archive)
	assert.NotNil(t, c.Metrics)

	_, err = c.Registry.Get(pieces.ActionCreate)
	assert.NoError(t, err)
	assert.Len(t, c.Imports.Actions(), 1)
}

func TestNewWithSQLiteMigrates(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := baseConfig()
	cfg.Database.URL = filepath.Join(t.TempDir(), "killay.db")
	cfg.Database.AutoMigrate = true
	cfg.Metrics.Enabled = false

	c, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.DB)
	assert.Nil(t, c.Metrics)

	collections, err := c.Catalog.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, collections)
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestNewFailsOnBadArchive(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := baseConfig()
	cfg.Archive = config.ArchiveConfig{Endpoint: "localhost:9000", Bucket: "killay-imports"}

	_, err := New(context.Background(), cfg, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload archive")
}
