package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZapLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billing.log")

	logger, err := NewZapLogger(Config{
		Level:    "warn",
		Format:   "json",
		Output:   "file",
		FilePath: path,
		Service:  "billing-gateway",
		Fields:   map[string]string{"version": "1.2.3", "environment": ""},
	})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "warn", entry["log.level"])
	assert.Equal(t, "billing-gateway", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.NotContains(t, entry, "environment")
}

func TestNewZapLogger_FileOutputNeedsPath(t *testing.T) {
	_, err := NewZapLogger(Config{Output: "file"})
	assert.Error(t, err)
}
