package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/cceval/internal/claude"
	"github.com/blackwell-systems/cceval/internal/score"
	"github.com/blackwell-systems/cceval/internal/session"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, expandPath(DefaultClaudeHome), cfg.ClaudeHome)
	assert.Equal(t, DefaultFormat, cfg.Format)
	assert.Equal(t, score.DefaultWeights(), cfg.ScoreWeights())
	assert.Equal(t, score.DefaultThresholds(), cfg.ScoreThresholds())
	assert.Equal(t, DefaultMetaKeywords, cfg.Completion.MetaKeywords)
	assert.True(t, cfg.Quality.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Quality.Timeout)
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.Equal(t, DBPath(), cfg.History.DSN)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
claude_home: /data/claude
include_agents: true
weights:
  completion: 0.5
  timing: 0.3
  interaction: 0.3
thresholds:
  latency_target: 2s
  max_prompts: 5
completion:
  meta_keywords: [rate this]
history:
  driver: mysql
  dsn: "user:pw@tcp(db:3306)/cceval"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/claude", cfg.ClaudeHome)
	assert.True(t, cfg.IncludeAgents)
	assert.Equal(t, 2*time.Second, cfg.Thresholds.LatencyTarget)
	assert.Equal(t, 5, cfg.Thresholds.MaxPrompts)
	assert.Equal(t, 60*time.Second, cfg.Thresholds.LatencyMax, "unset keys keep defaults")
	assert.Equal(t, []string{"rate this"}, cfg.Completion.MetaKeywords)
	assert.Equal(t, "user:pw@tcp(db:3306)/cceval", cfg.History.DSN)

	assert.Equal(t, score.Weights{"completion": 0.5, "timing": 0.3, "interaction": 0.3}, cfg.ScoreWeights())
	err = cfg.ScoreWeights().Validate()
	assert.ErrorIs(t, err, score.ErrInvalidWeights)
}

func TestLoad_WeightsBlockReplacesDefaults(t *testing.T) {
	path := writeConfig(t, `
weights:
  completion: 0.4
  timing: 0.2
  interaction: 0.2
  quality: 0.2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	w := cfg.ScoreWeights()
	assert.Len(t, w, 4)
	assert.NotContains(t, w, "code_size")
	assert.NoError(t, w.Validate())
}

func TestLoad_WeightsEnvOverride(t *testing.T) {
	path := writeConfig(t, `
weights:
  completion: 0.6
  timing: 0.4
`)
	t.Setenv("CCEVAL_WEIGHTS_TIMING", "0.1")
	t.Setenv("CCEVAL_WEIGHTS_COMPLETION", "0.9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, cfg.Weights["completion"], 1e-9)
	assert.InDelta(t, 0.1, cfg.Weights["timing"], 1e-9)
	assert.NoError(t, cfg.ScoreWeights().Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CCEVAL_FORMAT", "json")
	t.Setenv("CCEVAL_HISTORY_ENABLED", "false")
	t.Setenv("CCEVAL_THRESHOLDS_MAX_COMPLEXITY", "30")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, 30.0, cfg.ScoreThresholds().MaxComplexity)
}

func TestLoad_BadFile(t *testing.T) {
	path := writeConfig(t, "weights: [not, a, map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
	assert.Equal(t, "/abs", expandPath("/abs"))
	assert.Equal(t, "", expandPath(""))
}

func TestDefaultMetaKeywords_KeepTaskPrompts(t *testing.T) {
	tests := map[string]bool{
		"add a retrieval function for the cache": false,
		"fix the scoreboard":                     false,
		"evaluate this expression":               false,
		"run cc-eval on this":                    true,
		"please score this session":              true,
		"给这个会话打分":                                true,
	}
	for prompt, meta := range tests {
		t.Run(prompt, func(t *testing.T) {
			line := `{"type":"user","timestamp":"2026-01-15T10:00:00Z","message":{"role":"user","content":` + strconv.Quote(prompt) + `}}`
			entries, err := claude.DecodeTranscript(strings.NewReader(line + "\n" + `{"type":"user","timestamp":"2026-01-15T10:01:00Z","message":{"role":"user","content":"write a CSV parser"}}`))
			require.NoError(t, err)

			s, err := session.Parse("s", "", entries, session.ParseOptions{MetaKeywords: DefaultMetaKeywords})
			require.NoError(t, err)
			assert.Equal(t, meta, s.Turns[0].Meta)
		})
	}

	// A lone task prompt is never rejected.
	entries, err := claude.DecodeTranscript(strings.NewReader(`{"type":"user","timestamp":"2026-01-15T10:00:00Z","message":{"role":"user","content":"add a retrieval function"}}`))
	require.NoError(t, err)
	s, err := session.Parse("s", "", entries, session.ParseOptions{MetaKeywords: DefaultMetaKeywords})
	require.NoError(t, err)
	first, ok := s.FirstPrompt()
	assert.True(t, ok)
	assert.Equal(t, 0, first)
}
