package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m), "line %q", raw)
		lines = append(lines, m)
	}
	return lines
}

func TestNew(t *testing.T) {
	t.Run("json output honours level", func(t *testing.T) {
		var buf bytes.Buffer
		l, closer, err := New(Config{Level: "warn", Format: "json", Output: &buf})
		require.NoError(t, err)
		defer closer.Close()

		log := NewAdapter(l)
		log.Info("hidden")
		log.Warn("low space", "device", "Vault", "free", 42)

		lines := decodeLines(t, buf.Bytes())
		require.Len(t, lines, 1)
		assert.Equal(t, "low space", lines[0]["message"])
		assert.Equal(t, "warn", lines[0]["level"])
		assert.Equal(t, "Vault", lines[0]["device"])
		assert.EqualValues(t, 42, lines[0]["free"])
	})

	t.Run("console output", func(t *testing.T) {
		var buf bytes.Buffer
		l, _, err := New(Config{Format: "console", Output: &buf})
		require.NoError(t, err)

		NewAdapter(l).Info("scan complete", "added", 3)
		out := buf.String()
		assert.Contains(t, out, "scan complete")
		assert.Contains(t, out, "added=3")
		assert.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
	})

	t.Run("auto is json when output is not a terminal", func(t *testing.T) {
		var buf bytes.Buffer
		l, _, err := New(Config{Format: "auto", Output: &buf})
		require.NoError(t, err)
		NewAdapter(l).Info("hello")
		assert.Len(t, decodeLines(t, buf.Bytes()), 1)
	})

	t.Run("log file gets every line", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "log")
		var buf bytes.Buffer
		l, closer, err := New(Config{Format: "console", Dir: dir, Output: &buf})
		require.NoError(t, err)

		NewAdapter(l).Error("copy failed", "error", errors.New("disk full"))
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(filepath.Join(dir, FileName))
		require.NoError(t, err)
		lines := decodeLines(t, data)
		require.Len(t, lines, 1)
		assert.Equal(t, "disk full", lines[0]["error"])
		assert.Contains(t, buf.String(), "copy failed")
	})
}

func TestAdapter_OddArgs(t *testing.T) {
	var buf bytes.Buffer
	NewAdapter(zerolog.New(&buf)).Info("odd", "key")

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	assert.Equal(t, "!MISSING", lines[0]["key"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"loud":    zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}
