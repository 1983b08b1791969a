package suggest

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/cceval/internal/analyzer"
	"github.com/blackwell-systems/cceval/internal/quality"
	"github.com/blackwell-systems/cceval/internal/score"
)

// FirstAttemptCorrection fires when the first answer needed a follow-up.
func FirstAttemptCorrection(ctx *Context) []Suggestion {
	r := ctx.Report
	d, ok := ctx.dimension(score.Completion)
	if !ok || r.Completion.FirstCompleted {
		return nil
	}
	desc := "The first attempt was marked as not completed. "
	if r.Completion.Provenance == analyzer.ProvenanceHeuristic && r.Completion.MatchedTerm != "" {
		desc = fmt.Sprintf("A follow-up at turn %d used %q, so the first answer needed a correction. ",
			r.Completion.TurnIndex, r.Completion.MatchedTerm)
	}
	desc += "State acceptance criteria and the files involved in the first prompt, " +
		"and ask Claude to run the tests before it reports done."
	return []Suggestion{{
		Category:    "completion",
		Priority:    PriorityCritical,
		Title:       "Get the first attempt right",
		Description: desc,
		ImpactScore: ComputeImpact(d, 1),
	}}
}

// PartialTask fires when less than the whole task was finished.
func PartialTask(ctx *Context) []Suggestion {
	r := ctx.Report
	d, ok := ctx.dimension(score.TaskCompletion)
	if !ok || r.CompletionRate >= 100 {
		return nil
	}
	return []Suggestion{{
		Category: "completion",
		Priority: PriorityHigh,
		Title:    "Finish the remaining work in one pass",
		Description: fmt.Sprintf(
			"Only %.0f%% of the task was completed. Break large requests into steps "+
				"Claude can finish and verify one at a time.", r.CompletionRate),
		ImpactScore: ComputeImpact(d, 1),
	}}
}

// SlowFirstResponse fires when the first answer took longer than the
// latency target.
func SlowFirstResponse(ctx *Context) []Suggestion {
	t := ctx.Report.Timing
	d, ok := ctx.dimension(score.Timing)
	if !ok || !t.LatencyDefined || t.FirstResponseLatency <= ctx.Thresholds.LatencyTarget {
		return nil
	}
	return []Suggestion{{
		Category: "timing",
		Priority: PriorityMedium,
		Title:    "Narrow the first request",
		Description: fmt.Sprintf(
			"The first response took %s against a %s target. Slow first answers usually "+
				"come from broad requests; point at the relevant files or paste the error.",
			round(t.FirstResponseLatency), round(ctx.Thresholds.LatencyTarget)),
		ImpactScore: ComputeImpact(d, ctx.Thresholds.LatencyShare),
	}}
}

// LongReasoning fires when total response time exceeded its target.
func LongReasoning(ctx *Context) []Suggestion {
	t := ctx.Report.Timing
	d, ok := ctx.dimension(score.Timing)
	if !ok || t.TotalReasoningTime <= ctx.Thresholds.ReasoningTarget {
		return nil
	}
	return []Suggestion{{
		Category: "timing",
		Priority: PriorityLow,
		Title:    "Cut down time spent responding",
		Description: fmt.Sprintf(
			"Claude spent %s responding over %d turns. Long sessions often repeat exploration "+
				"a CLAUDE.md with project layout and commands would save.",
			round(t.TotalReasoningTime), t.ResponseTurns),
		ImpactScore: ComputeImpact(d, 1-ctx.Thresholds.LatencyShare),
	}}
}

// ManyPrompts fires when the session took more prompts than optimal.
func ManyPrompts(ctx *Context) []Suggestion {
	n := ctx.Report.Interactions.Count
	d, ok := ctx.dimension(score.Interaction)
	if !ok || n <= ctx.Thresholds.OptimalPrompts {
		return nil
	}
	priority := PriorityMedium
	if n >= ctx.Thresholds.MaxPrompts {
		priority = PriorityHigh
	}
	return []Suggestion{{
		Category: "interaction",
		Priority: priority,
		Title:    "Fold follow-ups into the opening prompt",
		Description: fmt.Sprintf(
			"The session took %d prompts (optimal is %d). Requirements that arrived as "+
				"follow-ups belong in the first prompt.", n, ctx.Thresholds.OptimalPrompts),
		ImpactScore: ComputeImpact(d, 1),
	}}
}

// ComplexCode fires when analyzed code exceeds half the complexity limit.
func ComplexCode(ctx *Context) []Suggestion {
	q := ctx.Report.Quality
	d, ok := ctx.dimension(score.Quality)
	if !ok || q.AnalyzedFiles == 0 || q.Complexity <= ctx.Thresholds.MaxComplexity/2 {
		return nil
	}
	return []Suggestion{{
		Category: "quality",
		Priority: PriorityMedium,
		Title:    "Ask for smaller functions",
		Description: fmt.Sprintf(
			"Generated code averages cyclomatic complexity %.1f. Ask Claude to split "+
				"branches into helpers and keep functions under ten paths.", q.Complexity),
		ImpactScore: ComputeImpact(d, 0.4),
	}}
}

// LowMaintainability fires when a file's maintainability index sits in
// the lower half of the scored range.
func LowMaintainability(ctx *Context) []Suggestion {
	q := ctx.Report.Quality
	d, ok := ctx.dimension(score.Quality)
	mid := (ctx.Thresholds.MaintainabilityFloor + 100) / 2
	if !ok || q.AnalyzedFiles == 0 || q.Maintainability >= mid {
		return nil
	}
	return []Suggestion{{
		Category: "quality",
		Priority: PriorityMedium,
		Title:    "Improve maintainability of generated files",
		Description: fmt.Sprintf(
			"The least maintainable file scores %.1f. Long modules with dense logic score "+
				"low; ask for smaller modules and clearer names.", q.Maintainability),
		ImpactScore: ComputeImpact(d, 0.4),
	}}
}

// LintFindings fires when flake8 reported anything.
func LintFindings(ctx *Context) []Suggestion {
	q := ctx.Report.Quality
	d, ok := ctx.dimension(score.Quality)
	if !ok || q.LintTotal == 0 {
		return nil
	}
	priority := PriorityLow
	if q.LintBySeverity[quality.SeverityError] > 0 {
		priority = PriorityHigh
	}
	return []Suggestion{{
		Category: "quality",
		Priority: priority,
		Title:    "Run the linter before finishing",
		Description: fmt.Sprintf(
			"flake8 reported %d finding(s), %d of them errors. Add the lint command to "+
				"CLAUDE.md so Claude runs it after editing.",
			q.LintTotal, q.LintBySeverity[quality.SeverityError]),
		ImpactScore: ComputeImpact(d, 0.2),
	}}
}

func round(d time.Duration) time.Duration {
	return d.Round(100 * time.Millisecond)
}
