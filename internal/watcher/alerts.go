package watcher

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/blackwell-systems/cceval/internal/score"
)

// ReportAlerts derives alerts from one evaluation. prev is the previous
// overall score of the same project when hasPrev is set.
func ReportAlerts(r *score.Report, prev float64, hasPrev bool, opts Options) []Alert {
	now := opts.Now()
	name := projectName(r.ProjectPath)
	grade := r.Grade()
	var alerts []Alert
	add := func(level, title, msg string) {
		alerts = append(alerts, Alert{Level: level, Title: title, Message: msg, Time: now, Grade: grade, Score: r.Overall})
	}

	if opts.AlertBelow > 0 && r.Overall < opts.AlertBelow {
		add("critical", fmt.Sprintf("Low session score: %s", name),
			fmt.Sprintf("%s scored %.1f (%s), below %.0f", shortID(r.SessionID), r.Overall, grade, opts.AlertBelow))
	}

	if hasPrev && opts.DropAlert > 0 && prev-r.Overall >= opts.DropAlert {
		add("warning", fmt.Sprintf("Score dropped: %s", name),
			fmt.Sprintf("%.1f -> %.1f (%.1f)", prev, r.Overall, r.Overall-prev))
	}

	if !r.Completion.FirstCompleted {
		msg := fmt.Sprintf("%s needed a follow-up", shortID(r.SessionID))
		if r.Completion.MatchedTerm != "" {
			msg += fmt.Sprintf(" (%q)", r.Completion.MatchedTerm)
		}
		add("warning", "First attempt not completed", msg)
	}

	add("info", fmt.Sprintf("Session evaluated: %s", name),
		fmt.Sprintf("%s scored %.1f (%s) over %d prompt(s)", shortID(r.SessionID), r.Overall, grade, r.Interactions.Count))
	return alerts
}

func projectName(path string) string {
	if path == "" {
		return "unknown project"
	}
	return filepath.Base(path)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sortByModified(ids []string, modified map[string]time.Time) {
	sort.Slice(ids, func(i, j int) bool {
		mi, mj := modified[ids[i]], modified[ids[j]]
		if !mi.Equal(mj) {
			return mi.Before(mj)
		}
		return ids[i] < ids[j]
	})
}
