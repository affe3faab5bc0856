package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestJSONOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Config{Level: "info", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Component("monitor").Info("sweep complete", zap.Int("scanned", 3))
	logger.Debug("hidden")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, sonic.Unmarshal(data, &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "sweep complete", entry["message"])
	assert.Equal(t, "monitor", entry["logger"])
	assert.Equal(t, "monitor", entry["component"])
	assert.EqualValues(t, 3, entry["scanned"])
}

func TestConsoleOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	cfg := DevelopmentConfig()
	cfg.OutputPaths = []string{path}
	logger, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "debug", logger.Level())

	logger.Component("isolation").Debug("context created", zap.String("tab_id", "t1"))
	require.NoError(t, logger.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, "isolation")
	assert.Contains(t, line, "context created")
	assert.Contains(t, line, `"tab_id": "t1"`)

	var entry map[string]any
	assert.Error(t, sonic.Unmarshal(data, &entry))
}

func TestSetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Config{Level: "warn", OutputPaths: []string{path}})
	require.NoError(t, err)
	assert.Equal(t, "warn", logger.Level())

	logger.Info("dropped")
	require.NoError(t, logger.SetLevel("debug"))
	logger.Debug("kept")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")

	assert.Error(t, logger.SetLevel("loud"))
	assert.Equal(t, "debug", logger.Level())
}

func TestFallbacks(t *testing.T) {
	assert.NotNil(t, NewDefault())
	assert.NotNil(t, NewDevelopment())

	nop := NewNop()
	nop.Component("x").Error("discarded")
	assert.NoError(t, nop.Flush())
}
