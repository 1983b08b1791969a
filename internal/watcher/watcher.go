// Package watcher evaluates Claude Code sessions as they finish and emits
// alerts for low or falling scores.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/blackwell-systems/cceval/internal/claude"
	"github.com/blackwell-systems/cceval/internal/engine"
	"github.com/blackwell-systems/cceval/internal/logger"
	"github.com/blackwell-systems/cceval/internal/score"
)

// Evaluator is the part of the engine the watcher drives.
type Evaluator interface {
	ListSessions(limit int, projectPath string) ([]claude.SessionSummary, error)
	Evaluate(ctx context.Context, req engine.Request) (*score.Report, error)
}

// WatchState is a point-in-time view of the session files.
type WatchState struct {
	Timestamp time.Time
	// Modified maps session ID to the file's modification time.
	Modified map[string]time.Time
}

// Alert represents a notable event detected by the watcher.
type Alert struct {
	Level   string // "info", "warning", "critical"
	Title   string
	Message string
	Time    time.Time
	// Grade and Score describe the evaluation behind the alert. Grade is
	// empty for alerts not tied to a report.
	Grade string
	Score float64
}

// Options configures a Watcher.
type Options struct {
	Interval time.Duration
	// Idle is how long a session file must go unmodified before it counts
	// as finished.
	Idle time.Duration
	// AlertBelow raises a critical alert for overall scores under it.
	AlertBelow float64
	// DropAlert raises a warning when a project's score falls by at least
	// this much from its previous evaluation. 0 disables it.
	DropAlert   float64
	ProjectPath string
	// Limit bounds how many recent sessions each check looks at.
	Limit int
	// Backfill evaluates sessions that were already finished at startup.
	Backfill      bool
	IncludeAgents bool
	Now           func() time.Time
}

// Watcher polls the session registry and evaluates each session once it
// has gone idle. A session that is modified again is evaluated again.
type Watcher struct {
	eval          Evaluator
	opts          Options
	alertFn       func(Alert) // callback for emitting alerts
	log           logger.Logger
	evaluated     map[string]time.Time // session -> modification time evaluated
	lastScore     map[string]float64   // project -> last overall score
	lastAlertKeys map[string]bool      // dedup: suppress repeated identical alerts
}

// New creates a Watcher over eval.
func New(eval Evaluator, opts Options, alertFn func(Alert), log logger.Logger) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{
		eval:          eval,
		opts:          opts,
		alertFn:       alertFn,
		log:           log,
		evaluated:     make(map[string]time.Time),
		lastScore:     make(map[string]float64),
		lastAlertKeys: make(map[string]bool),
	}
}

// Run starts the watch loop. It takes an initial snapshot, then checks at
// every interval. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	initial, err := w.Snapshot()
	if err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}
	if !w.opts.Backfill {
		for id, mod := range initial.Modified {
			w.evaluated[id] = mod
		}
	}
	w.emit(w.Check(ctx))

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.emit(w.Check(ctx))
		}
	}
}

func (w *Watcher) emit(alerts []Alert) {
	for _, a := range alerts {
		if w.alertFn != nil {
			w.alertFn(a)
		}
	}
}

// Check performs a single cycle: it evaluates every session that changed
// since it was last evaluated and has since gone idle, and returns the
// resulting alerts. Identical alerts are suppressed until they change.
func (w *Watcher) Check(ctx context.Context) []Alert {
	curr, err := w.Snapshot()
	if err != nil {
		return []Alert{{
			Level:   "warning",
			Title:   "Snapshot failed",
			Message: fmt.Sprintf("Could not list sessions: %v", err),
			Time:    w.opts.Now(),
		}}
	}

	var raw []Alert
	for _, id := range w.due(curr) {
		if ctx.Err() != nil {
			break
		}
		r, err := w.eval.Evaluate(ctx, engine.Request{
			SessionID:     id,
			ProjectPath:   w.opts.ProjectPath,
			IncludeAgents: w.opts.IncludeAgents,
		})
		w.evaluated[id] = curr.Modified[id]
		if err != nil {
			w.log.Warn("watch.eval.failed", logger.String("session_id", id), logger.Err(err))
			raw = append(raw, Alert{
				Level:   "warning",
				Title:   "Evaluation failed",
				Message: fmt.Sprintf("%s: %v", shortID(id), err),
				Time:    w.opts.Now(),
			})
			continue
		}
		prev, hasPrev := w.lastScore[r.ProjectPath]
		raw = append(raw, ReportAlerts(r, prev, hasPrev, w.opts)...)
		w.lastScore[r.ProjectPath] = r.Overall
		w.log.Info("watch.evaluated",
			logger.String("session_id", r.SessionID),
			logger.Float("overall", r.Overall),
			logger.String("grade", r.Grade()))
	}

	currentKeys := make(map[string]bool, len(raw))
	var alerts []Alert
	for _, a := range raw {
		key := a.Level + ":" + a.Title + ":" + a.Message
		currentKeys[key] = true
		if !w.lastAlertKeys[key] {
			alerts = append(alerts, a)
		}
	}
	w.lastAlertKeys = currentKeys
	return alerts
}

// due returns the sessions in curr that changed since their last
// evaluation and have been idle long enough, oldest first.
func (w *Watcher) due(curr *WatchState) []string {
	var ids []string
	for id, mod := range curr.Modified {
		if last, ok := w.evaluated[id]; ok && !mod.After(last) {
			continue
		}
		if curr.Timestamp.Sub(mod) < w.opts.Idle {
			continue
		}
		ids = append(ids, id)
	}
	sortByModified(ids, curr.Modified)
	return ids
}

// Snapshot lists the most recent sessions and their modification times.
func (w *Watcher) Snapshot() (*WatchState, error) {
	sessions, err := w.eval.ListSessions(w.opts.Limit, w.opts.ProjectPath)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	state := &WatchState{
		Timestamp: w.opts.Now(),
		Modified:  make(map[string]time.Time, len(sessions)),
	}
	for _, s := range sessions {
		state.Modified[s.ID] = s.Modified
	}
	return state, nil
}
