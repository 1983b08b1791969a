// Package suggest turns a scored evaluation into ranked, actionable
// suggestions for the next session.
package suggest

import "github.com/blackwell-systems/cceval/internal/score"

// Priority levels for suggestions.
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
)

// Suggestion represents an actionable improvement recommendation.
type Suggestion struct {
	Category    string  `json:"category"`
	Priority    int     `json:"priority"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImpactScore float64 `json:"impact_score"`
}

// Context is what the rules look at: one report and the thresholds it was
// scored against.
type Context struct {
	Report     *score.Report
	Thresholds score.Thresholds
}

// dimension returns the named dimension when it took part in the overall
// score.
func (c *Context) dimension(name string) (score.DimensionScore, bool) {
	d, ok := c.Report.Dimension(name)
	if !ok || d.Weight <= 0 {
		return score.DimensionScore{}, false
	}
	return d, true
}

// Rule is a function that examines the context and produces zero or more
// suggestions.
type Rule func(ctx *Context) []Suggestion
