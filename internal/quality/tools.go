package quality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/cceval/internal/logger"
	"github.com/blackwell-systems/cceval/internal/session"
)

// DefaultTimeout bounds each analyzer invocation.
const DefaultTimeout = 10 * time.Second

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec. A non-zero exit that still wrote
// to stdout is not an error; linters exit 1 when they report findings.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(out) > 0 {
		return out, nil
	}
	return out, err
}

// ToolMeasurer analyzes Python files with radon and flake8. Other files are
// reported with line counts only.
type ToolMeasurer struct {
	Radon   string
	Flake8  string
	Timeout time.Duration
	Run     Runner
	Log     logger.Logger
}

// NewToolMeasurer returns a measurer using the given executables, or
// "radon" and "flake8" from PATH when empty.
func NewToolMeasurer(radon, flake8 string, timeout time.Duration, log logger.Logger) *ToolMeasurer {
	if radon == "" {
		radon = "radon"
	}
	if flake8 == "" {
		flake8 = "flake8"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ToolMeasurer{Radon: radon, Flake8: flake8, Timeout: timeout, Run: ExecRunner, Log: log}
}

// Measure writes each Python file to a scratch directory and runs the
// analyzers on it. A missing analyzer degrades that file to an unanalyzed
// measurement instead of failing the evaluation.
func (m *ToolMeasurer) Measure(ctx context.Context, ops []session.ToolUse) ([]Measurement, error) {
	files := Collapse(ops)
	if len(files) == 0 {
		return nil, nil
	}

	dir, err := os.MkdirTemp("", "cceval-quality-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := make([]Measurement, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meas := Measurement{Path: f.Path, Language: LanguageOf(f.Path), Lines: session.CountLines(f.Content)}
		if meas.Language != "python" {
			out = append(out, meas)
			continue
		}

		scratch := filepath.Join(dir, fmt.Sprintf("file%03d.py", i))
		if err := os.WriteFile(scratch, []byte(f.Content), 0o600); err != nil {
			return nil, fmt.Errorf("writing %s: %w", scratch, err)
		}
		if err := m.analyzePython(ctx, scratch, &meas); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.Log.Warn("quality.analyze.skipped", logger.String("path", f.Path), logger.Err(err))
			meas.Analyzed = false
			meas.Complexity, meas.Maintainability, meas.Lint = 0, 0, nil
		}
		out = append(out, meas)
	}
	return out, nil
}

func (m *ToolMeasurer) analyzePython(ctx context.Context, path string, meas *Measurement) error {
	cc, err := m.run(ctx, m.Radon, "cc", "-j", path)
	if err != nil {
		return fmt.Errorf("radon cc: %w", err)
	}
	complexity, err := ParseRadonCC(cc)
	if err != nil {
		return err
	}

	mi, err := m.run(ctx, m.Radon, "mi", "-j", path)
	if err != nil {
		return fmt.Errorf("radon mi: %w", err)
	}
	maintainability, err := ParseRadonMI(mi)
	if err != nil {
		return err
	}

	lint, err := m.run(ctx, m.Flake8, "--format=%(row)d|%(code)s|%(text)s", path)
	if err != nil {
		return fmt.Errorf("flake8: %w", err)
	}

	meas.Analyzed = true
	meas.Complexity = complexity
	meas.Maintainability = maintainability
	meas.Lint = ParseFlake8(lint)
	return nil
}

func (m *ToolMeasurer) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	run := m.Run
	if run == nil {
		run = ExecRunner
	}
	return run(ctx, name, args...)
}

type radonBlock struct {
	Complexity float64 `json:"complexity"`
}

// ParseRadonCC reads `radon cc -j` output and returns the mean block
// complexity across all files in it. Code with no functions or classes has
// complexity 1.
func ParseRadonCC(data []byte) (float64, error) {
	var byFile map[string]json.RawMessage
	if err := json.Unmarshal(data, &byFile); err != nil {
		return 0, fmt.Errorf("parsing radon cc output: %w", err)
	}
	var sum float64
	var n int
	for path, raw := range byFile {
		var blocks []radonBlock
		if err := json.Unmarshal(raw, &blocks); err != nil {
			var failure struct {
				Error string `json:"error"`
			}
			if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
				return 0, fmt.Errorf("radon cc %s: %s", path, failure.Error)
			}
			return 0, fmt.Errorf("parsing radon cc blocks for %s: %w", path, err)
		}
		for _, b := range blocks {
			sum += b.Complexity
			n++
		}
	}
	if n == 0 {
		return 1, nil
	}
	return sum / float64(n), nil
}

// ParseRadonMI reads `radon mi -j` output and returns the lowest
// maintainability index in it.
func ParseRadonMI(data []byte) (float64, error) {
	var byFile map[string]struct {
		MI    *float64 `json:"mi"`
		Error string   `json:"error"`
	}
	if err := json.Unmarshal(data, &byFile); err != nil {
		return 0, fmt.Errorf("parsing radon mi output: %w", err)
	}
	lowest := -1.0
	for path, r := range byFile {
		if r.Error != "" {
			return 0, fmt.Errorf("radon mi %s: %s", path, r.Error)
		}
		if r.MI == nil {
			continue
		}
		if lowest < 0 || *r.MI < lowest {
			lowest = *r.MI
		}
	}
	if lowest < 0 {
		return 0, errors.New("radon mi reported no index")
	}
	return lowest, nil
}

// ParseFlake8 reads flake8 output in "row|code|text" format. E and F codes
// are errors, W codes are warnings, anything else (C, N, plugins) is info.
func ParseFlake8(data []byte) []Finding {
	var findings []Finding
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			continue
		}
		row, _ := strconv.Atoi(parts[0])
		findings = append(findings, Finding{
			Code:     parts[1],
			Message:  parts[2],
			Line:     row,
			Severity: flake8Severity(parts[1]),
		})
	}
	return findings
}

func flake8Severity(code string) Severity {
	switch {
	case strings.HasPrefix(code, "E"), strings.HasPrefix(code, "F"):
		return SeverityError
	case strings.HasPrefix(code, "W"):
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
