package analyzer

import "github.com/blackwell-systems/cceval/internal/quality"

// AggregateQuality folds per-file measurements into one summary.
//
// Complexity is weighted by line count so a large file counts for more than
// a stub; if every analyzed file is empty the plain mean is used.
// Maintainability is the minimum, so one unmaintainable file is not averaged
// away. Unanalyzed files add lines but no complexity or maintainability.
func AggregateQuality(ms []quality.Measurement) QualitySummary {
	sum := QualitySummary{
		LintBySeverity: map[quality.Severity]int{
			quality.SeverityError:   0,
			quality.SeverityWarning: 0,
			quality.SeverityInfo:    0,
		},
	}
	if len(ms) == 0 {
		sum.NoCodeGenerated = true
		return sum
	}

	var weighted, plain float64
	var analyzedLines int
	for _, m := range ms {
		sum.Files++
		sum.TotalLines += m.Lines
		for _, f := range m.Lint {
			sum.LintBySeverity[quality.NormalizeSeverity(f.Severity)]++
			sum.LintTotal++
		}
		if !m.Analyzed {
			continue
		}
		if sum.AnalyzedFiles == 0 || m.Maintainability < sum.Maintainability {
			sum.Maintainability = m.Maintainability
		}
		sum.AnalyzedFiles++
		weighted += m.Complexity * float64(m.Lines)
		plain += m.Complexity
		analyzedLines += m.Lines
	}

	switch {
	case sum.AnalyzedFiles == 0:
	case analyzedLines > 0:
		sum.Complexity = weighted / float64(analyzedLines)
	default:
		sum.Complexity = plain / float64(sum.AnalyzedFiles)
	}
	return sum
}
