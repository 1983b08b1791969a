package score

import "time"

// Thresholds turns raw dimension values into 0-100 sub-scores. Each
// "target" is the value at or below which a dimension scores 100; each
// "max" is where it reaches 0. Between the two the score falls linearly.
type Thresholds struct {
	// CompletionPartialScore is awarded when the first attempt needed a fix.
	CompletionPartialScore float64 `json:"completion_partial_score"`

	LatencyTarget   time.Duration `json:"latency_target"`
	LatencyMax      time.Duration `json:"latency_max"`
	ReasoningTarget time.Duration `json:"reasoning_target"`
	ReasoningMax    time.Duration `json:"reasoning_max"`
	// LatencyShare is the latency part's share of the timing score; the
	// reasoning part gets the rest.
	LatencyShare float64 `json:"latency_share"`
	// RequireFirstCompletion zeroes the latency part when the first
	// attempt was not completed: a fast wrong answer earns nothing.
	RequireFirstCompletion bool `json:"require_first_completion"`

	OptimalPrompts int `json:"optimal_prompts"`
	MaxPrompts     int `json:"max_prompts"`

	MaxComplexity        float64 `json:"max_complexity"`
	MaintainabilityFloor float64 `json:"maintainability_floor"`
	// MaxLintDensity is the weighted findings per 100 lines that scores 0.
	MaxLintDensity    float64 `json:"max_lint_density"`
	LintErrorWeight   float64 `json:"lint_error_weight"`
	LintWarningWeight float64 `json:"lint_warning_weight"`
	LintInfoWeight    float64 `json:"lint_info_weight"`
	// Fallbacks stand in when code exists but no file could be analyzed.
	FallbackComplexity      float64 `json:"fallback_complexity"`
	FallbackMaintainability float64 `json:"fallback_maintainability"`
	// NoCodeScore is the quality score of a session that wrote no code.
	NoCodeScore float64 `json:"no_code_score"`

	CodeSizeBaseline int `json:"code_size_baseline"`
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CompletionPartialScore: 0,

		LatencyTarget:          5 * time.Second,
		LatencyMax:             60 * time.Second,
		ReasoningTarget:        30 * time.Second,
		ReasoningMax:           10 * time.Minute,
		LatencyShare:           0.5,
		RequireFirstCompletion: true,

		OptimalPrompts: 1,
		MaxPrompts:     10,

		MaxComplexity:           20,
		MaintainabilityFloor:    20,
		MaxLintDensity:          10,
		LintErrorWeight:         1,
		LintWarningWeight:       0.5,
		LintInfoWeight:          0.1,
		FallbackComplexity:      1,
		FallbackMaintainability: 80,
		NoCodeScore:             100,

		CodeSizeBaseline: 100,
	}
}
