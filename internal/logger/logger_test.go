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
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "curvelaunch.log")
	var console bytes.Buffer

	l, err := newLogger(&Config{LogFile: logFile, MaxSize: 1, Development: true, Console: ConsolePlain}, &console)
	require.NoError(t, err)

	l.WithOperation("quote_buy").Debug("Quote computed", zap.String("direction", "buy"))
	require.NoError(t, l.Close())

	assert.Contains(t, console.String(), "Quote computed")
	assert.Contains(t, console.String(), "DEBUG")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "Quote computed", entry["msg"])
	assert.Equal(t, "quote_buy", entry["operation"])
	assert.NotEmpty(t, entry["correlation_id"])
	assert.Contains(t, entry, "timestamp")
}

func TestFileKeysDoNotDependOnDebug(t *testing.T) {
	keys := func(debug bool) []string {
		logFile := filepath.Join(t.TempDir(), "curvelaunch.log")
		l, err := newLogger(&Config{LogFile: logFile, MaxSize: 1, Development: debug, Console: ConsoleNone}, &bytes.Buffer{})
		require.NoError(t, err)
		l.Warn("Launch paused")
		require.NoError(t, l.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
		assert.Equal(t, "Launch paused", entry["msg"])
		assert.Equal(t, "WARN", entry["level"])

		out := make([]string, 0, len(entry))
		for k := range entry {
			out = append(out, k)
		}
		return out
	}
	assert.ElementsMatch(t, keys(false), keys(true))
}

func TestInfoLevelHidesDebug(t *testing.T) {
	var console bytes.Buffer
	l, err := newLogger(&Config{Console: ConsolePretty}, &console)
	require.NoError(t, err)

	l.Debug("hidden")
	l.WithLaunch("launch-1", "mint").Warn("High price impact")
	require.NoError(t, l.Sync())

	out := console.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "launch-1")
}

func TestConsoleNoneWithoutFileIsNop(t *testing.T) {
	l, err := newLogger(&Config{Console: ConsoleNone}, &bytes.Buffer{})
	require.NoError(t, err)
	l.Info("dropped")
	assert.NoError(t, l.Close())
	assert.Equal(t, ConsoleNone, l.Config().Console)
}

func TestUnknownConsoleFormat(t *testing.T) {
	_, err := newLogger(&Config{Console: "fancy"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "curvelaunch.log", cfg.LogFile)
	assert.Equal(t, ConsolePretty, cfg.Console)
	assert.False(t, cfg.Development)
}
