// Package quality obtains static-analysis measurements for code written
// during a session.
package quality

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/cceval/internal/session"
)

// Severity classifies a lint finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// NormalizeSeverity maps unknown severities to info.
func NormalizeSeverity(s Severity) Severity {
	switch Severity(strings.ToLower(string(s))) {
	case SeverityError:
		return SeverityError
	case SeverityWarning, "warn":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Finding is one lint diagnostic.
type Finding struct {
	Code     string   `json:"code"`
	Message  string   `json:"message,omitempty"`
	Line     int      `json:"line,omitempty"`
	Severity Severity `json:"severity"`
}

// Measurement is the per-file result of static analysis. Complexity and
// Maintainability are meaningful only when Analyzed is true; files in
// languages no analyzer handles still report their line count.
type Measurement struct {
	Path            string    `json:"path"`
	Language        string    `json:"language,omitempty"`
	Analyzed        bool      `json:"analyzed"`
	Complexity      float64   `json:"complexity"`
	Maintainability float64   `json:"maintainability"`
	Lint            []Finding `json:"lint,omitempty"`
	Lines           int       `json:"lines"`
}

// Measurer produces measurements for the code a session wrote.
type Measurer interface {
	Measure(ctx context.Context, ops []session.ToolUse) ([]Measurement, error)
}

// MeasurerFunc adapts a function to Measurer.
type MeasurerFunc func(ctx context.Context, ops []session.ToolUse) ([]Measurement, error)

// Measure calls f.
func (f MeasurerFunc) Measure(ctx context.Context, ops []session.ToolUse) ([]Measurement, error) {
	return f(ctx, ops)
}

// Static returns the same measurements regardless of input.
type Static []Measurement

// Measure returns s.
func (s Static) Measure(context.Context, []session.ToolUse) ([]Measurement, error) {
	return []Measurement(s), nil
}

// LineCounter reports line counts only, with no analysis.
type LineCounter struct{}

// Measure returns one unanalyzed measurement per written file.
func (LineCounter) Measure(_ context.Context, ops []session.ToolUse) ([]Measurement, error) {
	files := Collapse(ops)
	out := make([]Measurement, 0, len(files))
	for _, f := range files {
		out = append(out, Measurement{Path: f.Path, Language: LanguageOf(f.Path), Lines: session.CountLines(f.Content)})
	}
	return out, nil
}

// File is the last content written to one path.
type File struct {
	Path    string
	Content string
}

// Collapse reduces tool uses to one entry per path, keeping the first-seen
// order. A full Write replaces earlier content; edits append their new text
// so every line the session produced is measured.
func Collapse(ops []session.ToolUse) []File {
	index := make(map[string]int)
	var files []File
	for _, op := range ops {
		if !op.WritesCode() {
			continue
		}
		i, seen := index[op.FilePath]
		if !seen {
			index[op.FilePath] = len(files)
			files = append(files, File{Path: op.FilePath, Content: op.Content})
			continue
		}
		if op.Name == "Write" {
			files[i].Content = op.Content
			continue
		}
		if files[i].Content != "" && !strings.HasSuffix(files[i].Content, "\n") {
			files[i].Content += "\n"
		}
		files[i].Content += op.Content
	}
	return files
}

// LanguageOf names the language of a path by extension.
func LanguageOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return "python"
	case ".go":
		return "go"
	case ".js", ".mjs", ".cjs":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".rb":
		return "ruby"
	case ".ipynb":
		return "notebook"
	default:
		return ""
	}
}
