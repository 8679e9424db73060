package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestJSONOutputCarriesDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: "info", Format: "json"}, "1.2.3", &buf)
	logger.With("component", "scan").Info("device found", "ip", "192.168.2.10")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kasafinder", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "scan", entry["component"])
	assert.Equal(t, "192.168.2.10", entry["ip"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: "warn"}, "dev", &buf)
	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
