package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/blackwell-systems/cceval/internal/analyzer"
	"github.com/blackwell-systems/cceval/internal/claude"
	"github.com/blackwell-systems/cceval/internal/config"
	"github.com/blackwell-systems/cceval/internal/engine"
	"github.com/blackwell-systems/cceval/internal/logger"
	"github.com/blackwell-systems/cceval/internal/output"
	"github.com/blackwell-systems/cceval/internal/quality"
	"github.com/blackwell-systems/cceval/internal/store"
	"github.com/blackwell-systems/cceval/internal/telemetry"
)

// runtimeOptions select the parts of the runtime a command needs.
type runtimeOptions struct {
	// quiet suppresses console logging; the MCP server needs clean stdio.
	quiet      bool
	noAnalysis bool
	// save registers the history store as an observer.
	save bool
	// history opens the history store even when not saving.
	history bool
	logFile string
}

// runtime holds what the commands share: config, logger, engine and the
// optional history and telemetry backends.
type runtime struct {
	cfg      *config.Config
	log      logger.Logger
	registry *claude.Registry
	engine   *engine.Engine
	db       *store.DB
	recorder telemetry.Recorder
}

func newRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Log.Level
	if flagVerbose {
		level = "debug"
	} else if !opts.quiet && level == "info" {
		// Keep the terminal for the report; info goes to the log file.
		level = "warn"
	}
	logFile := cfg.Log.File
	if opts.logFile != "" && logFile == "" {
		logFile = opts.logFile
	}
	log, err := logger.New(logger.Options{
		Level:   level,
		Console: !opts.quiet,
		Color:   !output.IsNoColor(),
		File:    logFile,
	})
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}

	rt := &runtime{cfg: cfg, log: log, registry: claude.NewRegistry(cfg.ClaudeHome), recorder: telemetry.NoOp{}}

	settings, err := settingsFrom(cfg)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	var measurer quality.Measurer = quality.LineCounter{}
	if cfg.Quality.Enabled && !opts.noAnalysis {
		measurer = quality.NewToolMeasurer(cfg.Quality.Radon, cfg.Quality.Flake8, cfg.Quality.Timeout, log)
	}

	engineOpts := []engine.Option{engine.WithLogger(log)}

	if cfg.History.Enabled && (opts.save || opts.history) {
		db, err := store.Open(cfg.History.Driver, cfg.History.DSN)
		if err != nil {
			log.Warn("history.open.failed", logger.String("driver", cfg.History.Driver), logger.Err(err))
		} else {
			rt.db = db
			if opts.save {
				engineOpts = append(engineOpts, engine.WithObserver(db))
			}
		}
	}

	if cfg.Telemetry.Enabled {
		rec, err := telemetry.New(ctx, cfg.Telemetry, appVersion)
		if err != nil {
			log.Warn("telemetry.init.failed", logger.String("endpoint", cfg.Telemetry.Endpoint), logger.Err(err))
		} else {
			rt.recorder = rec
			engineOpts = append(engineOpts, engine.WithObserver(rec))
		}
	}

	rt.engine = engine.New(rt.registry, measurer, settings, engineOpts...)
	return rt, nil
}

// settingsFrom builds the scoring settings, loading a custom vocabulary
// when one is configured.
func settingsFrom(cfg *config.Config) (engine.Settings, error) {
	vocab := analyzer.DefaultVocabulary
	if cfg.Completion.VocabularyFile != "" {
		v, err := analyzer.LoadVocabulary(cfg.Completion.VocabularyFile)
		if err != nil {
			return engine.Settings{}, fmt.Errorf("loading vocabulary: %w", err)
		}
		vocab = v
	}
	return engine.Settings{
		Weights:      cfg.ScoreWeights(),
		Thresholds:   cfg.ScoreThresholds(),
		Vocabulary:   vocab,
		MetaKeywords: cfg.Completion.MetaKeywords,
	}, nil
}

// Close flushes telemetry and closes the store and logger.
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error
	if err := rt.recorder.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flushing telemetry: %w", err))
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := rt.log.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
