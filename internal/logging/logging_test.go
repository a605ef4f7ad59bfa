package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"killay/internal/config"
)

func TestNewWithOutput(t *testing.T) {
	t.Run("json format carries component field", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewWithOutput(config.LogConfig{Level: "debug", Format: "json"}, &buf)
		require.NoError(t, err)
		assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

		Component(logger, "importer").WithField("rows", 3).Info("done")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "importer", entry["component"])
		assert.Equal(t, "done", entry["msg"])
		assert.EqualValues(t, 3, entry["rows"])
	})

	t.Run("level filters output", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewWithOutput(config.LogConfig{Level: "warn", Format: "text"}, &buf)
		require.NoError(t, err)

		logger.Info("hidden")
		assert.Empty(t, buf.String())
		logger.Warn("shown")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("unknown level", func(t *testing.T) {
		_, err := NewWithOutput(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
		assert.Error(t, err)
	})
}
