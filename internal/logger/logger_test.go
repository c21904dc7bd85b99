package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atikulmunna/vislog/internal/config"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newWithWriter(config.LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("import complete", zap.Int("valid", 3))
	require.NoError(t, log.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "raw: %s", buf.String())
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "import complete", line["message"])
	assert.EqualValues(t, 3, line["valid"])
}

func TestInvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vislog.log")
	log, err := New(config.LogConfig{Level: "debug", Format: "console", File: path, MaxSize: 1})
	require.NoError(t, err)

	log.Warn("sheet skipped")
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "sheet skipped")
	assert.Contains(t, string(raw), "WARN")
}
