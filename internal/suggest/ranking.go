package suggest

import (
	"sort"

	"github.com/blackwell-systems/cceval/internal/score"
)

// RankSuggestions sorts suggestions by ImpactScore in descending order.
// Equal scores fall back to priority, then keep rule order.
func RankSuggestions(suggestions []Suggestion) []Suggestion {
	sorted := make([]Suggestion, len(suggestions))
	copy(sorted, suggestions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ImpactScore != sorted[j].ImpactScore {
			return sorted[i].ImpactScore > sorted[j].ImpactScore
		}
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

// ComputeImpact is the number of overall points a dimension would recover
// by reaching 100, scaled by share (the part of the dimension the
// suggestion addresses, 0.0-1.0).
func ComputeImpact(d score.DimensionScore, share float64) float64 {
	missing := 100 - d.Score
	if missing <= 0 || share <= 0 {
		return 0
	}
	return d.Weight * missing * share
}
