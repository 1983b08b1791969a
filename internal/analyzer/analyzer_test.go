package analyzer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/cceval/internal/quality"
	"github.com/blackwell-systems/cceval/internal/session"
)

var t0 = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

// at returns t0 plus the given number of seconds.
func at(sec float64) time.Time {
	return t0.Add(time.Duration(sec * float64(time.Second)))
}

func turn(role session.Role, sec float64, text string) session.Turn {
	return session.Turn{Role: role, Timestamp: at(sec), Text: text}
}

func build(includeAgents bool, turns ...session.Turn) *session.Session {
	for i := range turns {
		turns[i].Index = i
	}
	return &session.Session{ID: "s", Turns: turns, IncludeAgents: includeAgents}
}

func boolPtr(b bool) *bool { return &b }

func TestScenarioA_FirstCompleted(t *testing.T) {
	s := build(false,
		turn(session.RoleUser, 0, "add a function"),
		turn(session.RoleAssistant, 3, "done"),
	)

	v := ClassifyCompletion(s, DefaultVocabulary, nil)
	assert.True(t, v.FirstCompleted)
	assert.Equal(t, ProvenanceHeuristic, v.Provenance)
	assert.Equal(t, -1, v.TurnIndex)
	assert.Equal(t, "v1", v.VocabularyVersion)

	m := ComputeTiming(s)
	assert.True(t, m.LatencyDefined)
	assert.Equal(t, 3*time.Second, m.FirstResponseLatency)
}

func scenarioB() *session.Session {
	return build(false,
		turn(session.RoleUser, 0, "add a function"),
		turn(session.RoleAssistant, 2, "here"),
		turn(session.RoleUser, 10, "this has a bug"),
		turn(session.RoleAssistant, 12, "fixed"),
	)
}

func TestScenarioB_CorrectionDetected(t *testing.T) {
	s := scenarioB()

	v := ClassifyCompletion(s, DefaultVocabulary, nil)
	assert.False(t, v.FirstCompleted)
	assert.Equal(t, "bug", v.MatchedTerm)
	assert.Equal(t, 2, v.TurnIndex)

	assert.Equal(t, 2, CountInteractions(s).Count)
}

func TestScenarioC_OverrideWins(t *testing.T) {
	v := ClassifyCompletion(scenarioB(), DefaultVocabulary, boolPtr(true))
	assert.True(t, v.FirstCompleted)
	assert.Equal(t, ProvenanceOverride, v.Provenance)
}

func TestOverride_IndependentOfTranscript(t *testing.T) {
	sessions := []*session.Session{
		scenarioB(),
		build(false, turn(session.RoleUser, 0, "hello")),
		build(false, turn(session.RoleUser, 0, "x"), turn(session.RoleAssistant, 1, "y"), turn(session.RoleUser, 2, "wrong, fix it")),
	}
	for _, want := range []bool{true, false} {
		for _, s := range sessions {
			v := ClassifyCompletion(s, DefaultVocabulary, boolPtr(want))
			assert.Equal(t, want, v.FirstCompleted)
			assert.Equal(t, ProvenanceOverride, v.Provenance)
		}
	}
}

func TestClassify_ScansAllLaterPrompts(t *testing.T) {
	s := build(false,
		turn(session.RoleUser, 0, "build a CLI"),
		turn(session.RoleAssistant, 1, "ok"),
		turn(session.RoleUser, 5, "looks good, now add tests"),
		turn(session.RoleAssistant, 6, "ok"),
		turn(session.RoleUser, 9, "这里不对"),
	)
	v := ClassifyCompletion(s, DefaultVocabulary, nil)
	assert.False(t, v.FirstCompleted)
	assert.Equal(t, "不对", v.MatchedTerm)
	assert.Equal(t, 4, v.TurnIndex)
}

func TestClassify_IgnoresNonPrompts(t *testing.T) {
	meta := turn(session.RoleUser, 5, "evaluate: any error?")
	meta.Meta = true
	s := build(false,
		turn(session.RoleUser, 0, "fix the login bug"),
		turn(session.RoleAssistant, 1, "ok"),
		turn(session.RoleTool, 2, "Error: exit 1"),
		turn(session.RoleSubAgent, 3, "error in step"),
		meta,
	)
	v := ClassifyCompletion(s, DefaultVocabulary, nil)
	assert.True(t, v.FirstCompleted, "the first prompt itself and non-prompts are not corrections")
}

func TestClassify_NoResponse(t *testing.T) {
	s := build(false, turn(session.RoleUser, 0, "hello"), turn(session.RoleUser, 1, "that is wrong"))
	v := ClassifyCompletion(s, DefaultVocabulary, nil)
	assert.True(t, v.FirstCompleted)
}

func TestClassify_SubAgentResponseWhenIncluded(t *testing.T) {
	turns := []session.Turn{
		turn(session.RoleUser, 0, "go"),
		turn(session.RoleSubAgent, 1, "working"),
		turn(session.RoleUser, 2, "wrong file"),
	}
	withAgents := ClassifyCompletion(build(true, append([]session.Turn(nil), turns...)...), DefaultVocabulary, nil)
	assert.False(t, withAgents.FirstCompleted)

	without := ClassifyCompletion(build(false, append([]session.Turn(nil), turns...)...), DefaultVocabulary, nil)
	assert.True(t, without.FirstCompleted)
}

func TestClassify_KnownFalsePositive(t *testing.T) {
	s := build(false,
		turn(session.RoleUser, 0, "add caching"),
		turn(session.RoleAssistant, 1, "done"),
		turn(session.RoleUser, 2, "great, not a bug in sight"),
	)
	v := ClassifyCompletion(s, DefaultVocabulary, nil)
	assert.False(t, v.FirstCompleted)
}

func TestDefaultVocabulary_Terms(t *testing.T) {
	assert.Equal(t, "v1", DefaultVocabulary.Version)
	assert.Equal(t, []string{
		"fix", "bug", "error", "wrong", "change", "revert", "broken",
		"doesn't work", "does not work", "not working",
		"修改", "错误", "改", "不对", "问题", "失败",
	}, DefaultVocabulary.Terms)

	term, ok := DefaultVocabulary.Match("改一下这个函数")
	assert.True(t, ok)
	assert.Equal(t, "改", term)
}

func TestVocabulary_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: team-1\nterms:\n  - regression\n  - 修复\n"), 0o644))

	v, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, "team-1", v.Version)

	term, ok := v.Match("There is a REGRESSION here")
	assert.True(t, ok)
	assert.Equal(t, "regression", term)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("version: x\nterms: []\n"), 0o644))
	_, err = LoadVocabulary(empty)
	assert.ErrorIs(t, err, errEmptyVocabulary)

	_, err = LoadVocabulary(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestTiming_ReasoningTime(t *testing.T) {
	timed := turn(session.RoleAssistant, 20, "explicit")
	timed.Duration = 1500 * time.Millisecond
	timed.HasDuration = true

	s := build(false,
		turn(session.RoleUser, 0, "start"),
		turn(session.RoleAssistant, 4, "a"),  // gap to next: 6s
		turn(session.RoleTool, 10, "result"), // not a response
		turn(session.RoleAssistant, 12, "b"), // gap to next: 8s
		timed,                                // explicit 1.5s
		turn(session.RoleAssistant, 30, "last"),
	)

	m := ComputeTiming(s)
	assert.Equal(t, 4*time.Second, m.FirstResponseLatency)
	assert.Equal(t, 4, m.ResponseTurns)
	assert.Equal(t, 15500*time.Millisecond, m.TotalReasoningTime)

	s.EndedAt = at(35)
	assert.Equal(t, 20500*time.Millisecond, ComputeTiming(s).TotalReasoningTime)
}

func TestTiming_NoResponse(t *testing.T) {
	m := ComputeTiming(build(false, turn(session.RoleUser, 0, "hello")))
	assert.False(t, m.LatencyDefined)
	assert.Zero(t, m.FirstResponseLatency)
	assert.Zero(t, m.TotalReasoningTime)
	assert.Zero(t, m.ResponseTurns)
}

func TestTiming_IncludeAgents(t *testing.T) {
	turns := func() []session.Turn {
		return []session.Turn{
			turn(session.RoleUser, 0, "go"),
			turn(session.RoleSubAgent, 2, "agent"),
			turn(session.RoleAssistant, 5, "main"),
			turn(session.RoleUser, 9, "thanks"),
		}
	}

	without := ComputeTiming(build(false, turns()...))
	assert.Equal(t, 5*time.Second, without.FirstResponseLatency)
	assert.Equal(t, 4*time.Second, without.TotalReasoningTime)

	with := ComputeTiming(build(true, turns()...))
	assert.Equal(t, 2*time.Second, with.FirstResponseLatency)
	assert.Equal(t, 7*time.Second, with.TotalReasoningTime)
}

func TestTiming_LatencyIgnoresResponsesBeforeFirstPrompt(t *testing.T) {
	meta := turn(session.RoleUser, 0, "warmup")
	meta.Meta = true
	s := build(false,
		meta,
		turn(session.RoleAssistant, 1, "ready"),
		turn(session.RoleUser, 10, "real task"),
		turn(session.RoleAssistant, 13, "done"),
	)
	m := ComputeTiming(s)
	assert.Equal(t, 3*time.Second, m.FirstResponseLatency)
}

func TestCountInteractions_IgnoresAgentsAndMeta(t *testing.T) {
	meta := turn(session.RoleUser, 6, "score this")
	meta.Meta = true
	turns := func() []session.Turn {
		return []session.Turn{
			turn(session.RoleUser, 0, "one"),
			turn(session.RoleSubAgent, 1, "agent prompt"),
			turn(session.RoleAssistant, 2, "a"),
			turn(session.RoleTool, 3, "tool output"),
			turn(session.RoleUser, 4, "two"),
			turn(session.RoleOther, 5, ""),
			meta,
		}
	}
	assert.Equal(t, 2, CountInteractions(build(false, turns()...)).Count)
	assert.Equal(t, 2, CountInteractions(build(true, turns()...)).Count)
}

func TestAggregateQuality(t *testing.T) {
	ms := []quality.Measurement{
		{Path: "a.py", Analyzed: true, Complexity: 2, Maintainability: 80, Lines: 30,
			Lint: []quality.Finding{{Severity: quality.SeverityError}, {Severity: quality.SeverityWarning}}},
		{Path: "b.py", Analyzed: true, Complexity: 10, Maintainability: 40, Lines: 10,
			Lint: []quality.Finding{{Severity: "style"}}},
		{Path: "README.md", Lines: 60},
	}

	sum := AggregateQuality(ms)
	assert.False(t, sum.NoCodeGenerated)
	assert.Equal(t, 3, sum.Files)
	assert.Equal(t, 2, sum.AnalyzedFiles)
	assert.InDelta(t, 4.0, sum.Complexity, 1e-9, "(2*30 + 10*10) / 40")
	assert.Equal(t, 40.0, sum.Maintainability)
	assert.Equal(t, 100, sum.TotalLines)
	assert.Equal(t, 3, sum.LintTotal)
	assert.Equal(t, map[quality.Severity]int{
		quality.SeverityError:   1,
		quality.SeverityWarning: 1,
		quality.SeverityInfo:    1,
	}, sum.LintBySeverity)
}

func TestAggregateQuality_ZeroLineFiles(t *testing.T) {
	sum := AggregateQuality([]quality.Measurement{
		{Analyzed: true, Complexity: 2, Maintainability: 90},
		{Analyzed: true, Complexity: 4, Maintainability: 70},
	})
	assert.Equal(t, 3.0, sum.Complexity)
	assert.Equal(t, 70.0, sum.Maintainability)
}

func TestScenarioD_NoCode(t *testing.T) {
	sum := AggregateQuality(nil)
	assert.True(t, sum.NoCodeGenerated)
	assert.Zero(t, sum.Complexity)
	assert.Zero(t, sum.Maintainability)
	assert.Zero(t, sum.TotalLines)
	assert.Zero(t, sum.LintTotal)
}
