package output

import (
	"fmt"
	"strings"
)

// ScoreBar renders a visual progress bar for a 0-100 score.
// Example: "████████░░ 80/100"
func ScoreBar(score float64, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := int((score / 100.0) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %s", scoreStyle(score).Render(bar), StyleMuted.Render(fmt.Sprintf("%.0f/100", score)))
}

// TrendArrow returns a styled indicator of how a score moved since the
// previous evaluation. Higher is always better for scores.
func TrendArrow(delta float64) string {
	switch {
	case delta > -0.05 && delta < 0.05:
		return StyleMuted.Render("─")
	case delta > 0:
		return StyleSuccess.Render(fmt.Sprintf("▲ +%.1f", delta))
	default:
		return StyleError.Render(fmt.Sprintf("▼ %.1f", delta))
	}
}

// Section returns a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
