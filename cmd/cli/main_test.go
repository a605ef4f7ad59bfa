package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"killay/adapters/db/postgres/migrations"
	apperrors "killay/internal/errors"
)

func TestReadUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pieces.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("workbook"), 0o600))

	upload, err := readUpload(path)
	require.NoError(t, err)
	assert.Equal(t, "pieces.xlsx", upload.Filename)
	assert.Equal(t, []byte("workbook"), upload.Data)

	_, err = readUpload(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))
}

func TestMigrateRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	called := false
	err := withMigrator(context.Background(), func(*migrations.Migrator) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
	assert.False(t, called)
}
