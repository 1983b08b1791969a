package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/cceval/internal/claude"
	"github.com/blackwell-systems/cceval/internal/engine"
	"github.com/blackwell-systems/cceval/internal/quality"
	"github.com/blackwell-systems/cceval/internal/score"
	"github.com/blackwell-systems/cceval/internal/store"
	"github.com/blackwell-systems/cceval/internal/suggest"
)

// ReportView is the JSON shape of a report. Durations are seconds and an
// undefined latency is null.
type ReportView struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	ProjectPath string    `json:"project_path,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Overall     float64   `json:"overall"`
	Grade       string    `json:"grade"`

	Completion struct {
		FirstCompleted    bool   `json:"first_completed"`
		Provenance        string `json:"provenance"`
		MatchedTerm       string `json:"matched_term,omitempty"`
		TurnIndex         int    `json:"turn_index"`
		VocabularyVersion string `json:"vocabulary_version,omitempty"`
		Detail            string `json:"detail"`
	} `json:"completion"`

	Timing struct {
		FirstResponseLatency *float64 `json:"first_response_latency_seconds"`
		TotalReasoningTime   float64  `json:"total_reasoning_time_seconds"`
		ResponseTurns        int      `json:"response_turns"`
	} `json:"timing"`

	Interactions int `json:"interactions"`

	Quality struct {
		Files           int            `json:"files"`
		AnalyzedFiles   int            `json:"analyzed_files"`
		Complexity      float64        `json:"complexity"`
		Maintainability float64        `json:"maintainability"`
		Lint            map[string]int `json:"lint"`
		LintTotal       int            `json:"lint_total"`
		TotalLines      int            `json:"total_lines"`
		NoCodeGenerated bool           `json:"no_code_generated"`
	} `json:"quality"`

	CompletionRate float64                `json:"completion_rate"`
	Dimensions     []score.DimensionScore `json:"dimensions"`
	Suggestions    []suggest.Suggestion   `json:"suggestions"`
}

// NewReportView converts a report and its suggestions to its JSON shape.
func NewReportView(r *score.Report, tips []suggest.Suggestion) ReportView {
	v := ReportView{
		ID:             r.ID,
		SessionID:      r.SessionID,
		ProjectPath:    r.ProjectPath,
		GeneratedAt:    r.GeneratedAt,
		Overall:        r.Overall,
		Grade:          r.Grade(),
		Interactions:   r.Interactions.Count,
		CompletionRate: r.CompletionRate,
		Dimensions:     r.Dimensions,
		Suggestions:    tips,
	}
	if v.Suggestions == nil {
		v.Suggestions = []suggest.Suggestion{}
	}

	c := r.Completion
	v.Completion.FirstCompleted = c.FirstCompleted
	v.Completion.Provenance = string(c.Provenance)
	v.Completion.MatchedTerm = c.MatchedTerm
	v.Completion.TurnIndex = c.TurnIndex
	v.Completion.VocabularyVersion = c.VocabularyVersion
	v.Completion.Detail = c.Detail

	if r.Timing.LatencyDefined {
		secs := r.Timing.FirstResponseLatency.Seconds()
		v.Timing.FirstResponseLatency = &secs
	}
	v.Timing.TotalReasoningTime = r.Timing.TotalReasoningTime.Seconds()
	v.Timing.ResponseTurns = r.Timing.ResponseTurns

	q := r.Quality
	v.Quality.Files = q.Files
	v.Quality.AnalyzedFiles = q.AnalyzedFiles
	v.Quality.Complexity = q.Complexity
	v.Quality.Maintainability = q.Maintainability
	v.Quality.LintTotal = q.LintTotal
	v.Quality.TotalLines = q.TotalLines
	v.Quality.NoCodeGenerated = q.NoCodeGenerated
	v.Quality.Lint = map[string]int{}
	for _, sev := range []quality.Severity{quality.SeverityError, quality.SeverityWarning, quality.SeverityInfo} {
		v.Quality.Lint[string(sev)] = q.LintBySeverity[sev]
	}
	return v
}

// RenderReport writes r and its suggestions in the report's format.
func RenderReport(w io.Writer, r *score.Report, tips []suggest.Suggestion) error {
	switch r.Format {
	case score.FormatJSON:
		return writeJSON(w, NewReportView(r, tips))
	case score.FormatMarkdown:
		return renderReportMarkdown(w, r, tips)
	default:
		return renderReportTable(w, r, tips)
	}
}

func renderReportTable(w io.Writer, r *score.Report, tips []suggest.Suggestion) error {
	var sb strings.Builder
	sb.WriteString(Section("Session evaluation"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, " %s%s\n", StyleLabel.Render("Session"), r.SessionID)
	if r.ProjectPath != "" {
		fmt.Fprintf(&sb, " %s%s\n", StyleLabel.Render("Project"), r.ProjectPath)
	}
	fmt.Fprintf(&sb, " %s%s\n", StyleLabel.Render("Report"), StyleMuted.Render(r.ID))
	fmt.Fprintf(&sb, " %s%s\n\n", StyleLabel.Render("Generated"), r.GeneratedAt.Local().Format("2006-01-02 15:04:05"))

	tbl := NewTable("Dimension", "Score", "Weight", "Weighted", "Measured")
	for _, d := range r.Dimensions {
		tbl.AddRow(
			d.Name,
			scoreStyle(d.Score).Render(fmt.Sprintf("%.1f", d.Score)),
			fmt.Sprintf("%.2f", d.Weight),
			fmt.Sprintf("%.1f", d.Weighted),
			d.Raw,
		)
	}
	for _, line := range strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n") {
		sb.WriteString(" " + line + "\n")
	}

	fmt.Fprintf(&sb, "\n %s%s  %s\n", StyleLabel.Render("Overall"), ScoreBar(r.Overall, 20), StyleBold.Render("Grade "+r.Grade()))
	fmt.Fprintf(&sb, " %s%s\n", StyleLabel.Render("First attempt"), completionLine(r))
	for _, d := range r.Dimensions {
		if d.Detail != "" && d.Name != score.Completion {
			fmt.Fprintf(&sb, " %s%s\n", StyleLabel.Render(d.Name), StyleMuted.Render(d.Detail))
		}
	}

	if len(tips) > 0 {
		sb.WriteString("\n" + Section("Suggestions") + "\n")
		for i, tip := range tips {
			title := tip.Title
			if tip.Priority <= suggest.PriorityHigh {
				title = StyleWarning.Render(title)
			}
			fmt.Fprintf(&sb, " %d. %s %s\n", i+1, StyleBold.Render(title), StyleMuted.Render(fmt.Sprintf("(+%.1f)", tip.ImpactScore)))
			fmt.Fprintf(&sb, "    %s\n", tip.Description)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func completionLine(r *score.Report) string {
	c := r.Completion
	s := StyleSuccess.Render("completed")
	if !c.FirstCompleted {
		s = StyleError.Render("needed follow-up")
	}
	if c.Detail != "" {
		s += " " + StyleMuted.Render("("+c.Detail+")")
	}
	return s
}

func renderReportMarkdown(w io.Writer, r *score.Report, tips []suggest.Suggestion) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Session evaluation: %s\n\n", r.SessionID)
	if r.ProjectPath != "" {
		fmt.Fprintf(&sb, "- **Project:** `%s`\n", r.ProjectPath)
	}
	fmt.Fprintf(&sb, "- **Report:** `%s`\n", r.ID)
	fmt.Fprintf(&sb, "- **Generated:** %s\n", r.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "- **Overall:** %.1f (%s)\n\n", r.Overall, r.Grade())

	sb.WriteString("| Dimension | Score | Weight | Weighted | Measured |\n")
	sb.WriteString("|---|---:|---:|---:|---|\n")
	for _, d := range r.Dimensions {
		fmt.Fprintf(&sb, "| %s | %.1f | %.2f | %.1f | %s |\n", d.Name, d.Score, d.Weight, d.Weighted, escapePipes(d.Raw))
	}

	sb.WriteString("\n## Completion\n\n")
	if r.Completion.FirstCompleted {
		sb.WriteString("First attempt completed.")
	} else {
		sb.WriteString("First attempt needed follow-up.")
	}
	if r.Completion.Detail != "" {
		fmt.Fprintf(&sb, " %s", r.Completion.Detail)
	}
	sb.WriteString("\n")

	notes := false
	for _, d := range r.Dimensions {
		if d.Detail == "" || d.Name == score.Completion {
			continue
		}
		if !notes {
			sb.WriteString("\n## Notes\n\n")
			notes = true
		}
		fmt.Fprintf(&sb, "- **%s:** %s\n", d.Name, d.Detail)
	}

	if len(tips) > 0 {
		sb.WriteString("\n## Suggestions\n\n")
		for i, tip := range tips {
			fmt.Fprintf(&sb, "%d. **%s** (+%.1f): %s\n", i+1, tip.Title, tip.ImpactScore, tip.Description)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderSessions writes a session listing as a table or JSON.
func RenderSessions(w io.Writer, sessions []claude.SessionSummary, asJSON bool) error {
	if asJSON {
		type row struct {
			ID       string    `json:"id"`
			Project  string    `json:"project"`
			Modified time.Time `json:"modified"`
			Size     int64     `json:"size"`
			Summary  string    `json:"summary,omitempty"`
		}
		rows := make([]row, 0, len(sessions))
		for _, s := range sessions {
			rows = append(rows, row{s.ID, s.ProjectPath, s.Modified, s.Size, s.Summary})
		}
		return writeJSON(w, rows)
	}
	if len(sessions) == 0 {
		_, err := io.WriteString(w, StyleMuted.Render(" No sessions found.")+"\n")
		return err
	}
	tbl := NewTable("ID", "Modified", "Project", "Summary")
	for _, s := range sessions {
		tbl.AddRow(shortID(s.ID), s.Modified.Local().Format("2006-01-02 15:04"), s.ProjectPath, s.Summary)
	}
	return tbl.Fprint(w)
}

// RenderInfo writes a session description as text or JSON.
func RenderInfo(w io.Writer, info *engine.SessionInfo, asJSON bool) error {
	if asJSON {
		return writeJSON(w, info)
	}
	var sb strings.Builder
	sb.WriteString(Section("Session " + info.ID))
	sb.WriteString("\n")
	row := func(label, value string) {
		fmt.Fprintf(&sb, " %s%s\n", StyleLabel.Render(label), value)
	}
	row("Project", info.ProjectPath)
	row("File", info.Path)
	row("Records", fmt.Sprintf("%d (%d metadata skipped)", info.Records, info.Skipped))
	row("Turns", roleSummary(info))
	row("Prompts", fmt.Sprintf("%d", info.Prompts))
	row("First prompt", formatTime(info.FirstPromptAt))
	if info.FirstResponseAt.IsZero() {
		row("First response", StyleMuted.Render("none"))
	} else {
		row("First response", fmt.Sprintf("%s (+%.1fs)", formatTime(info.FirstResponseAt), info.FirstResponseAt.Sub(info.FirstPromptAt).Seconds()))
	}
	row("Code operations", fmt.Sprintf("%d (%d lines)", len(info.CodeOperations), info.TotalLines))
	if len(info.Models) > 0 {
		row("Models", strings.Join(info.Models, ", "))
	}
	if len(info.AgentFiles) > 0 {
		row("Agent files", fmt.Sprintf("%d", len(info.AgentFiles)))
	}
	if len(info.UnknownRoles) > 0 {
		row("Unknown roles", intMap(info.UnknownRoles))
	}

	if len(info.Preview) > 0 {
		sb.WriteString("\n")
		tbl := NewTable("#", "Time", "Role", "Text")
		for _, p := range info.Preview {
			text := p.Text
			if len(p.Tools) > 0 {
				text = strings.TrimSpace(text + " " + StyleMuted.Render("["+strings.Join(p.Tools, ", ")+"]"))
			}
			role := string(p.Role)
			if p.Meta {
				role += "*"
			}
			tbl.AddRow(fmt.Sprintf("%d", p.Index), p.Timestamp.Local().Format("15:04:05"), role, strings.ReplaceAll(text, "\n", " "))
		}
		for _, line := range strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n") {
			sb.WriteString(" " + line + "\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func roleSummary(info *engine.SessionInfo) string {
	parts := make([]string, 0, len(info.Roles))
	for role, n := range info.Roles {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", role, n))
		}
	}
	sort.Strings(parts)
	return fmt.Sprintf("%d (%s)", info.Turns, strings.Join(parts, ", "))
}

func intMap(m map[string]int) string {
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, fmt.Sprintf("%s=%d", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// RenderHistory writes stored evaluations, newest first, with the change
// from each session's previous evaluation.
func RenderHistory(w io.Writer, evals []store.Evaluation, asJSON bool) error {
	if asJSON {
		type row struct {
			ID             string    `json:"id"`
			SessionID      string    `json:"session_id"`
			GeneratedAt    time.Time `json:"generated_at"`
			Overall        float64   `json:"overall"`
			Grade          string    `json:"grade"`
			FirstCompleted bool      `json:"first_completed"`
			Prompts        int       `json:"prompts"`
			TotalLines     int       `json:"total_lines"`
		}
		rows := make([]row, 0, len(evals))
		for _, e := range evals {
			rows = append(rows, row{e.ID, e.SessionID, e.GeneratedAt, e.Overall, e.Grade, e.FirstCompleted, e.Prompts, e.TotalLines})
		}
		return writeJSON(w, rows)
	}
	if len(evals) == 0 {
		_, err := io.WriteString(w, StyleMuted.Render(" No stored evaluations.")+"\n")
		return err
	}

	deltas := historyDeltas(evals)
	tbl := NewTable("When", "Session", "Overall", "Grade", "Change", "First", "Prompts")
	for i, e := range evals {
		change := StyleMuted.Render("new")
		if d, ok := deltas[i]; ok {
			change = TrendArrow(d)
		}
		first := "yes"
		if !e.FirstCompleted {
			first = "no"
		}
		tbl.AddRow(
			e.GeneratedAt.Local().Format("2006-01-02 15:04"),
			shortID(e.SessionID),
			scoreStyle(e.Overall).Render(fmt.Sprintf("%.1f", e.Overall)),
			e.Grade,
			change,
			first,
			fmt.Sprintf("%d", e.Prompts),
		)
	}
	return tbl.Fprint(w)
}

// historyDeltas maps each row index to its change from the next older
// evaluation of the same session.
func historyDeltas(evals []store.Evaluation) map[int]float64 {
	deltas := make(map[int]float64)
	older := make(map[string]int)
	for i := len(evals) - 1; i >= 0; i-- {
		if j, ok := older[evals[i].SessionID]; ok {
			deltas[i] = evals[i].Overall - evals[j].Overall
		}
		older[evals[i].SessionID] = i
	}
	return deltas
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
