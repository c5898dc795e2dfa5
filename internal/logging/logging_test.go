package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abtest.log")
	logger, err := New(Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("test started", zap.String("test", "01ABC"))
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "test started", entry["msg"])
	assert.Equal(t, "01ABC", entry["test"])
	assert.Contains(t, entry, "timestamp")
}

func TestNew_Console(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(Config{Level: "loud", Format: "json", Output: "stderr"})
	assert.Error(t, err)

	_, err = New(Config{Level: "info", Format: "xml", Output: "stderr"})
	assert.Error(t, err)
}
