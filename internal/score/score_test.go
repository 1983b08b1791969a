package score

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/cceval/internal/analyzer"
	"github.com/blackwell-systems/cceval/internal/quality"
)

func perfectInputs() Inputs {
	return Inputs{
		Completion:     analyzer.CompletionVerdict{FirstCompleted: true, Provenance: analyzer.ProvenanceHeuristic, TurnIndex: -1},
		Timing:         analyzer.TimingMetrics{FirstResponseLatency: 2 * time.Second, LatencyDefined: true, TotalReasoningTime: 10 * time.Second, ResponseTurns: 2},
		Interactions:   analyzer.InteractionCount{Count: 1},
		Quality:        analyzer.AggregateQuality(nil),
		CompletionRate: 100,
	}
}

func TestWeights_Default(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())
	assert.InDelta(t, 1.0, DefaultWeights().Sum(), 1e-12)
}

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"default", DefaultWeights(), false},
		{"subset summing to one", Weights{Completion: 0.5, Quality: 0.5}, false},
		{"within tolerance", Weights{Completion: 0.5, Quality: 0.5000005}, false},
		{"scenario E sums to 1.1", Weights{Completion: 0.5, Timing: 0.3, Interaction: 0.3}, true},
		{"too small", Weights{Completion: 0.2}, true},
		{"negative", Weights{Completion: 1.2, Timing: -0.2}, true},
		{"unknown key", Weights{Completion: 0.5, "vibes": 0.5}, true},
		{"empty", Weights{}, true},
		{"nan", Weights{Completion: math.NaN()}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.weights.Validate()
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidWeights))
			var iw *InvalidWeightsError
			assert.True(t, errors.As(err, &iw))
		})
	}
}

func TestScenarioE_NoReport(t *testing.T) {
	r, err := Assemble(perfectInputs(), Weights{Completion: 0.5, Timing: 0.3, Interaction: 0.3}, DefaultThresholds(), Meta{SessionID: "s"})
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrInvalidWeights)
	assert.Contains(t, err.Error(), "1.1")
}

func TestAssemble_Perfect(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	r, err := Assemble(perfectInputs(), DefaultWeights(), DefaultThresholds(), Meta{SessionID: "s1", ProjectPath: "/app", Now: now})
	require.NoError(t, err)

	assert.Len(t, r.ID, 26, "ULID")
	assert.Equal(t, "s1", r.SessionID)
	assert.Equal(t, now, r.GeneratedAt)
	assert.Equal(t, FormatTable, r.Format)
	require.Len(t, r.Dimensions, len(Dimensions))
	for i, d := range r.Dimensions {
		assert.Equal(t, Dimensions[i], d.Name)
		assert.InDelta(t, 100, d.Score, 1e-9, d.Name)
	}
	assert.InDelta(t, 100, r.Overall, 1e-9)
	assert.Equal(t, "A", r.Grade())
}

func TestAssemble_OverallIsWeightedSum(t *testing.T) {
	in := perfectInputs()
	in.Completion.FirstCompleted = false
	in.Interactions.Count = 4
	in.CompletionRate = 50

	w := DefaultWeights()
	r, err := Assemble(in, w, DefaultThresholds(), Meta{})
	require.NoError(t, err)

	var sum float64
	for _, d := range r.Dimensions {
		assert.GreaterOrEqual(t, d.Score, 0.0)
		assert.LessOrEqual(t, d.Score, 100.0)
		assert.InDelta(t, w[d.Name]*d.Score, d.Weighted, 1e-9)
		sum += d.Weighted
	}
	assert.InDelta(t, sum, r.Overall, 1e-9)

	c, _ := r.Dimension(Completion)
	assert.Equal(t, 0.0, c.Score)
	tc, _ := r.Dimension(TaskCompletion)
	assert.Equal(t, 50.0, tc.Score)
	inter, _ := r.Dimension(Interaction)
	assert.InDelta(t, 100*6.0/9.0, inter.Score, 1e-9)
}

func TestTimingScore(t *testing.T) {
	th := DefaultThresholds()
	completed := analyzer.CompletionVerdict{FirstCompleted: true}

	tests := []struct {
		name string
		m    analyzer.TimingMetrics
		v    analyzer.CompletionVerdict
		want float64
	}{
		{"fast and short", analyzer.TimingMetrics{FirstResponseLatency: time.Second, LatencyDefined: true, TotalReasoningTime: 5 * time.Second, ResponseTurns: 1}, completed, 100},
		{"latency midway", analyzer.TimingMetrics{FirstResponseLatency: 32500 * time.Millisecond, LatencyDefined: true, ResponseTurns: 1}, completed, 75},
		{"latency undefined", analyzer.TimingMetrics{}, completed, 0},
		{"latency not credited", analyzer.TimingMetrics{FirstResponseLatency: time.Second, LatencyDefined: true, ResponseTurns: 1}, analyzer.CompletionVerdict{}, 50},
		{"reasoning at max", analyzer.TimingMetrics{FirstResponseLatency: time.Second, LatencyDefined: true, TotalReasoningTime: time.Hour, ResponseTurns: 1}, completed, 50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := timingScore(tc.m, tc.v, th)
			assert.InDelta(t, tc.want, got.Score, 1e-9)
		})
	}

	th.RequireFirstCompletion = false
	got := timingScore(tests[3].m, tests[3].v, th)
	assert.InDelta(t, 100, got.Score, 1e-9)
}

func TestScenarioD_QualityFloor(t *testing.T) {
	th := DefaultThresholds()
	q := analyzer.AggregateQuality(nil)

	d := qualityScore(q, th)
	assert.False(t, math.IsNaN(d.Score))
	assert.Equal(t, th.NoCodeScore, d.Score)

	th.NoCodeScore = 40
	assert.Equal(t, 40.0, qualityScore(q, th).Score)
	assert.Equal(t, 100.0, codeSizeScore(q, th).Score)
}

func TestQualityScore(t *testing.T) {
	th := DefaultThresholds()
	q := analyzer.QualitySummary{
		Files:           1,
		AnalyzedFiles:   1,
		Complexity:      10.5, // halfway between 1 and 20
		Maintainability: 60,   // halfway between 20 and 100
		TotalLines:      100,
		LintBySeverity: map[quality.Severity]int{
			quality.SeverityError:   3,
			quality.SeverityWarning: 2,
			quality.SeverityInfo:    10,
		},
	}
	// density = (3 + 1 + 1) per 100 lines = 5 -> lint part 50
	assert.InDelta(t, 5.0, LintDensity(q, th), 1e-9)
	assert.InDelta(t, 50.0, qualityScore(q, th).Score, 1e-9)
}

func TestQualityScore_Unanalyzed(t *testing.T) {
	th := DefaultThresholds()
	q := analyzer.QualitySummary{Files: 1, TotalLines: 20, LintBySeverity: map[quality.Severity]int{}}
	// fallback complexity 1 -> 100, MI 80 -> 75, no lint -> 100
	d := qualityScore(q, th)
	assert.InDelta(t, 0.4*100+0.4*75+0.2*100, d.Score, 1e-9)
	assert.NotEmpty(t, d.Detail)
}

func TestCodeSizeScore(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		lines int
		want  float64
	}{
		{0, 100},
		{100, 100},
		{200, 50},
		{400, 25},
	}
	for _, tc := range tests {
		got := codeSizeScore(analyzer.QualitySummary{TotalLines: tc.lines}, th)
		if math.Abs(got.Score-tc.want) > 1e-9 {
			t.Errorf("codeSizeScore(%d) = %v, want %v", tc.lines, got.Score, tc.want)
		}
	}
}

func TestLinearDecay(t *testing.T) {
	assert.Equal(t, 100.0, linearDecay(1, 5, 60))
	assert.Equal(t, 100.0, linearDecay(5, 5, 60))
	assert.Equal(t, 0.0, linearDecay(60, 5, 60))
	assert.InDelta(t, 50.0, linearDecay(32.5, 5, 60), 1e-9)
	assert.Equal(t, 0.0, linearDecay(6, 5, 5), "degenerate range")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "JSON": FormatJSON, "md": FormatMarkdown, "markdown": FormatMarkdown} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestCompletionScore_PartialCredit(t *testing.T) {
	th := DefaultThresholds()
	th.CompletionPartialScore = 30
	d := completionScore(analyzer.CompletionVerdict{Provenance: analyzer.ProvenanceOverride}, th)
	assert.Equal(t, 30.0, d.Score)
	assert.Contains(t, d.Raw, "override")
}
