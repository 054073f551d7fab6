package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/devicelab-dev/screen-crawler/pkg/config"
)

func TestConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(config.LogConfig{Level: "warn"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("visible", zap.Int("screen", 3))
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, `"screen": 3`)
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	log.Debug("hashed", zap.String("hash", "abc"))
	require.NoError(t, log.Sync())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hashed", entry["msg"])
	assert.Equal(t, "abc", entry["hash"])
	assert.Equal(t, "debug", entry["level"])
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawler.log")
	var console bytes.Buffer
	log, err := NewWithWriter(config.LogConfig{Level: "info", File: path, MaxSizeMB: 1}, zapcore.AddSync(&console))
	require.NoError(t, err)

	log.Info("screen added", zap.Int64("id", 7))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry), "file log is JSON")
	assert.Equal(t, "screen added", entry["msg"])
	assert.Contains(t, console.String(), "screen added")
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewWithWriter(config.LogConfig{Level: "loud"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.Error(t, err)

	_, err = NewWithWriter(config.LogConfig{Format: "xml"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.Error(t, err)
}
