package score

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/cceval/internal/analyzer"
)

// Format is a report rendering.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ErrInvalidFormat is returned for an unknown report format.
var ErrInvalidFormat = errors.New("invalid report format")

// ParseFormat accepts table, json, markdown (or md). Empty means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table", "text":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q (want table, json or markdown)", ErrInvalidFormat, s)
	}
}

// DimensionScore is one scored dimension.
type DimensionScore struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
	// Raw is the measured value the score was derived from.
	Raw    string `json:"raw"`
	Detail string `json:"detail,omitempty"`
}

// Report is the result of one evaluation. It is not modified after Assemble.
type Report struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	ProjectPath string    `json:"project_path,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Format      Format    `json:"format"`

	Completion     analyzer.CompletionVerdict `json:"completion"`
	Timing         analyzer.TimingMetrics     `json:"timing"`
	Interactions   analyzer.InteractionCount  `json:"interactions"`
	Quality        analyzer.QualitySummary    `json:"quality"`
	CompletionRate float64                    `json:"completion_rate"`

	Dimensions []DimensionScore `json:"dimensions"`
	Overall    float64          `json:"overall"`
}

// Dimension returns the named dimension score.
func (r *Report) Dimension(name string) (DimensionScore, bool) {
	for _, d := range r.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return DimensionScore{}, false
}

// Grade maps the overall score to a letter.
func (r *Report) Grade() string {
	switch {
	case r.Overall >= 90:
		return "A"
	case r.Overall >= 80:
		return "B"
	case r.Overall >= 70:
		return "C"
	case r.Overall >= 60:
		return "D"
	default:
		return "F"
	}
}
