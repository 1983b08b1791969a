// Package score turns dimension results into 0-100 sub-scores and a
// weighted overall score.
package score

import (
	"fmt"
	"math"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/blackwell-systems/cceval/internal/analyzer"
	"github.com/blackwell-systems/cceval/internal/quality"
)

// Inputs are the already-computed dimension results.
type Inputs struct {
	Completion   analyzer.CompletionVerdict
	Timing       analyzer.TimingMetrics
	Interactions analyzer.InteractionCount
	Quality      analyzer.QualitySummary
	// CompletionRate is the caller's estimate, 0-100, of how much of the
	// task was finished.
	CompletionRate float64
}

// Meta identifies the evaluated session.
type Meta struct {
	SessionID   string
	ProjectPath string
	Format      Format
	// Now stamps the report; zero means time.Now.
	Now time.Time
}

// Assemble validates the weights and builds the report. Invalid weights
// return an error and no report.
func Assemble(in Inputs, w Weights, th Thresholds, meta Meta) (*Report, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if meta.Format == "" {
		meta.Format = FormatTable
	}
	now := meta.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	r := &Report{
		ID:             ulid.Make().String(),
		SessionID:      meta.SessionID,
		ProjectPath:    meta.ProjectPath,
		GeneratedAt:    now,
		Format:         meta.Format,
		Completion:     in.Completion,
		Timing:         in.Timing,
		Interactions:   in.Interactions,
		Quality:        in.Quality,
		CompletionRate: clamp(in.CompletionRate, 0, 100),
	}

	for _, name := range Dimensions {
		d := scoreDimension(name, in, th)
		d.Weight = w[name]
		d.Weighted = d.Weight * d.Score
		r.Overall += d.Weighted
		r.Dimensions = append(r.Dimensions, d)
	}
	r.Overall = clamp(r.Overall, 0, 100)
	return r, nil
}

func scoreDimension(name string, in Inputs, th Thresholds) DimensionScore {
	switch name {
	case Completion:
		return completionScore(in.Completion, th)
	case Timing:
		return timingScore(in.Timing, in.Completion, th)
	case Interaction:
		return interactionScore(in.Interactions, th)
	case Quality:
		return qualityScore(in.Quality, th)
	case CodeSize:
		return codeSizeScore(in.Quality, th)
	case TaskCompletion:
		rate := clamp(in.CompletionRate, 0, 100)
		return DimensionScore{Name: TaskCompletion, Score: rate, Raw: fmt.Sprintf("%.0f%%", rate)}
	}
	return DimensionScore{Name: name}
}

func completionScore(v analyzer.CompletionVerdict, th Thresholds) DimensionScore {
	d := DimensionScore{Name: Completion, Detail: v.Detail}
	if v.FirstCompleted {
		d.Score, d.Raw = 100, "first attempt"
	} else {
		d.Score, d.Raw = clamp(th.CompletionPartialScore, 0, 100), "needed follow-up"
	}
	if v.Provenance == analyzer.ProvenanceOverride {
		d.Raw += " (override)"
	}
	return d
}

func timingScore(m analyzer.TimingMetrics, v analyzer.CompletionVerdict, th Thresholds) DimensionScore {
	d := DimensionScore{Name: Timing}

	var latency float64
	switch {
	case !m.LatencyDefined:
		d.Raw = "latency n/a"
	case th.RequireFirstCompletion && !v.FirstCompleted:
		d.Raw = "latency " + seconds(m.FirstResponseLatency)
		d.Detail = "latency not credited: first attempt incomplete"
	default:
		d.Raw = "latency " + seconds(m.FirstResponseLatency)
		latency = linearDecay(m.FirstResponseLatency.Seconds(), th.LatencyTarget.Seconds(), th.LatencyMax.Seconds())
	}

	var reasoning float64
	if m.ResponseTurns > 0 {
		reasoning = linearDecay(m.TotalReasoningTime.Seconds(), th.ReasoningTarget.Seconds(), th.ReasoningMax.Seconds())
	}
	d.Raw += ", reasoning " + seconds(m.TotalReasoningTime)

	share := clamp(th.LatencyShare, 0, 1)
	d.Score = share*latency + (1-share)*reasoning
	return d
}

func interactionScore(c analyzer.InteractionCount, th Thresholds) DimensionScore {
	return DimensionScore{
		Name:  Interaction,
		Score: linearDecay(float64(c.Count), float64(th.OptimalPrompts), float64(th.MaxPrompts)),
		Raw:   fmt.Sprintf("%d prompts", c.Count),
	}
}

// qualityScore mixes complexity (40%), maintainability (40%) and lint
// density (20%).
func qualityScore(q analyzer.QualitySummary, th Thresholds) DimensionScore {
	d := DimensionScore{Name: Quality}
	if q.NoCodeGenerated {
		d.Score = clamp(th.NoCodeScore, 0, 100)
		d.Raw = "no code generated"
		return d
	}

	complexity, mi := q.Complexity, q.Maintainability
	if q.AnalyzedFiles == 0 {
		complexity, mi = th.FallbackComplexity, th.FallbackMaintainability
		d.Detail = "no file could be analyzed; using fallback complexity and maintainability"
	}

	cPart := linearDecay(complexity, 1, th.MaxComplexity)

	var mPart float64
	if span := 100 - th.MaintainabilityFloor; span > 0 {
		mPart = clamp((mi-th.MaintainabilityFloor)/span, 0, 1) * 100
	}

	density := LintDensity(q, th)
	var lPart float64
	if th.MaxLintDensity > 0 {
		lPart = clamp(1-density/th.MaxLintDensity, 0, 1) * 100
	}

	d.Score = 0.4*cPart + 0.4*mPart + 0.2*lPart
	d.Raw = fmt.Sprintf("complexity %.1f, MI %.1f, lint %.2f/100 lines", complexity, mi, density)
	return d
}

// LintDensity is the severity-weighted lint count per 100 lines.
func LintDensity(q analyzer.QualitySummary, th Thresholds) float64 {
	weighted := float64(q.LintBySeverity[quality.SeverityError])*th.LintErrorWeight +
		float64(q.LintBySeverity[quality.SeverityWarning])*th.LintWarningWeight +
		float64(q.LintBySeverity[quality.SeverityInfo])*th.LintInfoWeight
	lines := q.TotalLines
	if lines < 1 {
		lines = 1
	}
	return weighted / float64(lines) * 100
}

func codeSizeScore(q analyzer.QualitySummary, th Thresholds) DimensionScore {
	d := DimensionScore{Name: CodeSize, Raw: fmt.Sprintf("%d lines", q.TotalLines)}
	baseline := th.CodeSizeBaseline
	if q.NoCodeGenerated || baseline <= 0 || q.TotalLines <= baseline {
		d.Score = 100
		return d
	}
	d.Score = 100 * float64(baseline) / float64(q.TotalLines)
	return d
}

// linearDecay is 100 at or below full, 0 at or above zero, and linear
// between.
func linearDecay(v, full, zero float64) float64 {
	if v <= full {
		return 100
	}
	if v >= zero || zero <= full {
		return 0
	}
	return 100 * (zero - v) / (zero - full)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
