package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConsoleLogger_FiltersAndFormats(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleWriter(&buf, LevelInfo, false)

	log.Debug("hidden")
	log.WithFields(String("session", "abc")).Info("eval.parsed", Int("turns", 4), String("note", "two words"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO ] eval.parsed session=abc turns=4 note=\"two words\"")

	buf.Reset()
	log.Warn("eval.observer.failed", Err(nil))
	assert.Contains(t, buf.String(), `error=""`)
}

func TestStructuredLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	log := NewStructuredWriter(&buf, LevelDebug).WithFields(String("component", "mcp"))

	log.Debug("mcp.tool.call", String("tool", "evaluate_session"))
	log.Error("mcp.tool.failed", Err(errors.New("boom")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "DEBUG", first["level"])
	assert.Equal(t, "mcp.tool.call", first["event"])
	assert.Equal(t, "mcp", first["component"])
	assert.Equal(t, "evaluate_session", first["tool"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "boom", second["error"])
}

func TestNew_FileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cceval.log")
	log, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)

	log.Info("hello", Bool("ok", true))
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event":"hello"`)

	// Logging after close is silently dropped.
	log.Info("after close")
}

func TestNew_NoBackends(t *testing.T) {
	log, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, Nop(), log)
}

func TestStructuredLogger_ReservedKeys(t *testing.T) {
	var buf bytes.Buffer
	log := NewStructuredWriter(&buf, LevelInfo)
	log.Info("eval.scored", String("event", "other"), Duration("elapsed", 1500*time.Millisecond))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "eval.scored", entry["event"])
	assert.Equal(t, float64(1500), entry["elapsed_ms"])
}

func TestTee_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	log := tee{NewConsoleWriter(&a, LevelWarn, false), NewConsoleWriter(&b, LevelDebug, false)}

	log.Info("only-b")
	log.Warn("both")

	assert.NotContains(t, a.String(), "only-b")
	assert.Contains(t, a.String(), "both")
	assert.Contains(t, b.String(), "only-b")
	assert.NoError(t, log.Close())
}
