// Package engine runs a session evaluation end to end: resolve the
// transcript, parse it, measure generated code, compute the dimensions
// concurrently and assemble the report.
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/cceval/internal/analyzer"
	"github.com/blackwell-systems/cceval/internal/claude"
	"github.com/blackwell-systems/cceval/internal/logger"
	"github.com/blackwell-systems/cceval/internal/quality"
	"github.com/blackwell-systems/cceval/internal/score"
	"github.com/blackwell-systems/cceval/internal/session"
	"github.com/blackwell-systems/cceval/internal/suggest"
)

// Source resolves and loads transcripts. *claude.Registry implements it.
type Source interface {
	Find(id, projectPath string) (claude.SessionFile, error)
	Load(f claude.SessionFile, includeAgents bool) (*claude.Transcript, error)
	List(limit int, projectPath string) ([]claude.SessionSummary, error)
}

// Observer is told about every report the engine produces. Observer
// failures are logged and never fail the evaluation.
type Observer interface {
	Observe(ctx context.Context, r *score.Report) error
}

// Settings are the scoring parameters shared by all requests.
type Settings struct {
	Weights      score.Weights
	Thresholds   score.Thresholds
	Vocabulary   analyzer.Vocabulary
	MetaKeywords []string
}

// DefaultSettings returns the stock weights, thresholds and vocabulary with
// no meta keywords.
func DefaultSettings() Settings {
	return Settings{
		Weights:    score.DefaultWeights(),
		Thresholds: score.DefaultThresholds(),
		Vocabulary: analyzer.DefaultVocabulary,
	}
}

// Request is one evaluation.
type Request struct {
	// SessionID may be a full ID or a unique prefix; empty means the most
	// recent session (within ProjectPath when set).
	SessionID   string
	ProjectPath string
	// File evaluates a transcript file directly, bypassing the registry.
	File string

	IncludeAgents          bool
	FirstCompletedOverride *bool
	// CompletionRate is 0-100; nil means 100.
	CompletionRate *float64
	Format         score.Format
	// EndedAt closes the final turn's reasoning span when set.
	EndedAt time.Time
}

// Engine evaluates sessions.
type Engine struct {
	source    Source
	measurer  quality.Measurer
	settings  Settings
	observers []Observer
	log       logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New builds an Engine. A nil measurer reports line counts only.
func New(src Source, m quality.Measurer, settings Settings, opts ...Option) *Engine {
	if m == nil {
		m = quality.LineCounter{}
	}
	e := &Engine{source: src, measurer: m, settings: settings, log: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settings returns the engine's scoring parameters.
func (e *Engine) Settings() Settings { return e.settings }

// Suggest ranks improvement suggestions for r against the engine's
// thresholds.
func (e *Engine) Suggest(r *score.Report) []suggest.Suggestion {
	return suggest.NewEngine().Run(&suggest.Context{Report: r, Thresholds: e.settings.Thresholds})
}

// Evaluate resolves, parses and scores the requested session.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*score.Report, error) {
	start := time.Now()
	if err := e.settings.Weights.Validate(); err != nil {
		return nil, err
	}
	format, err := score.ParseFormat(string(req.Format))
	if err != nil {
		return nil, err
	}
	req.Format = format

	t, err := e.load(req.SessionID, req.ProjectPath, req.File, req.IncludeAgents)
	if err != nil {
		return nil, err
	}

	s, err := session.FromTranscript(t, session.ParseOptions{
		IncludeAgents: req.IncludeAgents,
		MetaKeywords:  e.settings.MetaKeywords,
		EndedAt:       req.EndedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", t.SessionID, err)
	}
	e.log.Debug("eval.parsed",
		logger.String("session", s.ID),
		logger.Int("turns", len(s.Turns)),
		logger.Int("skipped", s.Stats.Skipped),
		logger.Bool("include_agents", s.IncludeAgents))

	r, err := EvaluateSession(ctx, s, e.measurer, e.settings, Options{
		FirstCompletedOverride: req.FirstCompletedOverride,
		CompletionRate:         req.CompletionRate,
		Format:                 req.Format,
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("eval.scored",
		logger.String("session", r.SessionID),
		logger.String("report", r.ID),
		logger.Float("overall", r.Overall),
		logger.Bool("first_completed", r.Completion.FirstCompleted),
		logger.Duration("elapsed", time.Since(start)))

	for _, o := range e.observers {
		if err := o.Observe(ctx, r); err != nil {
			e.log.Warn("eval.observer.failed", logger.String("report", r.ID), logger.Err(err))
		}
	}
	return r, nil
}

// ListSessions returns recent sessions, newest first.
func (e *Engine) ListSessions(limit int, projectPath string) ([]claude.SessionSummary, error) {
	return e.source.List(limit, projectPath)
}

func (e *Engine) load(id, projectPath, file string, includeAgents bool) (*claude.Transcript, error) {
	var (
		t   *claude.Transcript
		err error
	)
	if file != "" {
		t, err = claude.LoadFile(file)
	} else {
		var f claude.SessionFile
		f, err = e.source.Find(id, projectPath)
		if err != nil {
			return nil, err
		}
		t, err = e.source.Load(f, includeAgents)
	}
	if err != nil {
		return nil, session.WrapDecodeError(err)
	}
	return t, nil
}

// Options are the per-call inputs of EvaluateSession.
type Options struct {
	FirstCompletedOverride *bool
	CompletionRate         *float64
	Format                 score.Format
	Now                    time.Time
}

// EvaluateSession scores an already-parsed session. Measurements are
// obtained first; the four dimensions are then computed concurrently, each
// goroutine writing only its own result. A cancelled context abandons the
// evaluation before assembly.
func EvaluateSession(ctx context.Context, s *session.Session, m quality.Measurer, settings Settings, opts Options) (*score.Report, error) {
	if err := settings.Weights.Validate(); err != nil {
		return nil, err
	}

	measurements, err := m.Measure(ctx, s.CodeOperations())
	if err != nil {
		return nil, fmt.Errorf("measuring code quality: %w", err)
	}

	var (
		verdict      analyzer.CompletionVerdict
		timing       analyzer.TimingMetrics
		interactions analyzer.InteractionCount
		summary      analyzer.QualitySummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		verdict = analyzer.ClassifyCompletion(s, settings.Vocabulary, opts.FirstCompletedOverride)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		timing = analyzer.ComputeTiming(s)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		interactions = analyzer.CountInteractions(s)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		summary = analyzer.AggregateQuality(measurements)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rate := 100.0
	if opts.CompletionRate != nil {
		rate = *opts.CompletionRate
	}

	return score.Assemble(score.Inputs{
		Completion:     verdict,
		Timing:         timing,
		Interactions:   interactions,
		Quality:        summary,
		CompletionRate: rate,
	}, settings.Weights, settings.Thresholds, score.Meta{
		SessionID:   s.ID,
		ProjectPath: s.ProjectPath,
		Format:      opts.Format,
		Now:         opts.Now,
	})
}
