// Package analyzer computes the per-dimension results of a session
// evaluation: first-attempt completion, timing, interaction count and the
// aggregate of code-quality measurements. Every function here is pure.
package analyzer

import (
	"time"

	"github.com/blackwell-systems/cceval/internal/quality"
)

// Provenance records how a completion verdict was reached.
type Provenance string

const (
	ProvenanceHeuristic Provenance = "heuristic"
	ProvenanceOverride  Provenance = "override"
)

// CompletionVerdict says whether the first request was satisfied without a
// follow-up correction.
type CompletionVerdict struct {
	FirstCompleted bool       `json:"first_completed"`
	Provenance     Provenance `json:"provenance"`

	// MatchedTerm and TurnIndex locate the correction that failed the
	// session. TurnIndex is a record index, -1 when nothing matched.
	MatchedTerm string `json:"matched_term,omitempty"`
	TurnIndex   int    `json:"turn_index"`

	VocabularyVersion string `json:"vocabulary_version,omitempty"`
	Detail            string `json:"detail"`
}

// TimingMetrics holds response latency and time spent responding.
type TimingMetrics struct {
	// FirstResponseLatency is meaningful only when LatencyDefined is set.
	FirstResponseLatency time.Duration `json:"first_response_latency"`
	LatencyDefined       bool          `json:"latency_defined"`
	TotalReasoningTime   time.Duration `json:"total_reasoning_time"`
	ResponseTurns        int           `json:"response_turns"`
}

// InteractionCount is the number of human prompts in the session.
type InteractionCount struct {
	Count int `json:"count"`
}

// QualitySummary aggregates per-file measurements.
type QualitySummary struct {
	Files         int `json:"files"`
	AnalyzedFiles int `json:"analyzed_files"`

	// Complexity is the line-weighted mean over analyzed files.
	Complexity float64 `json:"complexity"`
	// Maintainability is the minimum over analyzed files.
	Maintainability float64 `json:"maintainability"`

	LintBySeverity map[quality.Severity]int `json:"lint_by_severity"`
	LintTotal      int                      `json:"lint_total"`
	TotalLines     int                      `json:"total_lines"`

	NoCodeGenerated bool `json:"no_code_generated"`
}
