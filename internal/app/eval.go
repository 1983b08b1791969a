package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/cceval/internal/engine"
	"github.com/blackwell-systems/cceval/internal/output"
	"github.com/blackwell-systems/cceval/internal/prompt"
	"github.com/blackwell-systems/cceval/internal/score"
	"github.com/blackwell-systems/cceval/internal/suggest"
)

var (
	evalFlagSession        string
	evalFlagLatest         bool
	evalFlagFile           string
	evalFlagProject        string
	evalFlagFormat         string
	evalFlagOutput         string
	evalFlagFirstCompleted bool
	evalFlagCompletionRate float64
	evalFlagInteractive    bool
	evalFlagIncludeAgents  bool
	evalFlagNoAnalysis     bool
	evalFlagNoSave         bool
	evalFlagQuiet          bool
)

var evalCmd = &cobra.Command{
	Use:   "eval [session-id]",
	Short: "Evaluate a Claude Code session",
	Long: `Score a session on four dimensions: first-attempt completion, response
timing, number of prompts and the quality of generated code. The overall
score is the weighted sum of the dimensions, graded A (>=90) to F (<60).

The session is the most recent one unless a session ID (or unique prefix)
or a transcript file is given. The completion heuristic can be overridden
with --first-completed, or answered interactively with --interactive.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVarP(&evalFlagSession, "session", "s", "", "Session ID or unique prefix")
	evalCmd.Flags().BoolVar(&evalFlagLatest, "latest", false, "Evaluate the most recent session (default)")
	evalCmd.Flags().StringVar(&evalFlagFile, "file", "", "Evaluate this transcript file instead of a stored session")
	evalCmd.Flags().StringVar(&evalFlagProject, "project", "", "Restrict session lookup to this project path")
	evalCmd.Flags().StringVarP(&evalFlagFormat, "format", "f", "", "Report format: table, json or markdown (default from config)")
	evalCmd.Flags().StringVarP(&evalFlagOutput, "output", "o", "", "Also write the report to this file")
	evalCmd.Flags().BoolVar(&evalFlagFirstCompleted, "first-completed", false, "Override first-attempt completion (--first-completed=false for no)")
	evalCmd.Flags().Float64Var(&evalFlagCompletionRate, "completion-rate", 100, "Estimated percent of the task completed (0-100)")
	evalCmd.Flags().BoolVarP(&evalFlagInteractive, "interactive", "i", false, "Ask for completion and completion rate")
	evalCmd.Flags().BoolVar(&evalFlagIncludeAgents, "include-agents", false, "Merge sub-agent transcripts into the session")
	evalCmd.Flags().BoolVar(&evalFlagNoAnalysis, "no-analysis", false, "Skip radon/flake8 and score code on size only")
	evalCmd.Flags().BoolVar(&evalFlagNoSave, "no-save", false, "Do not store the evaluation in history")
	evalCmd.Flags().BoolVarP(&evalFlagQuiet, "quiet", "q", false, "Print nothing; only write --output")
	evalCmd.MarkFlagsMutuallyExclusive("session", "latest", "file")
	evalCmd.MarkFlagsMutuallyExclusive("interactive", "first-completed")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	if evalFlagQuiet && evalFlagOutput == "" {
		return errors.New("--quiet requires --output")
	}
	sessionID := evalFlagSession
	if len(args) == 1 {
		if sessionID != "" || evalFlagFile != "" || evalFlagLatest {
			return errors.New("give the session either as an argument or with --session, --latest or --file")
		}
		sessionID = args[0]
	}

	ctx := cmd.Context()
	rt, err := newRuntime(ctx, runtimeOptions{noAnalysis: evalFlagNoAnalysis, save: !evalFlagNoSave})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	req := engine.Request{
		SessionID:     sessionID,
		ProjectPath:   evalFlagProject,
		File:          evalFlagFile,
		IncludeAgents: evalFlagIncludeAgents || rt.cfg.IncludeAgents,
		Format:        score.Format(resolveFormat(evalFlagFormat, flagJSON, rt.cfg.Format)),
	}
	if cmd.Flags().Changed("first-completed") {
		v := evalFlagFirstCompleted
		req.FirstCompletedOverride = &v
	}
	if cmd.Flags().Changed("completion-rate") {
		if evalFlagCompletionRate < 0 || evalFlagCompletionRate > 100 {
			return fmt.Errorf("--completion-rate must be between 0 and 100, got %v", evalFlagCompletionRate)
		}
		v := evalFlagCompletionRate
		req.CompletionRate = &v
	}
	if evalFlagInteractive {
		answers, err := prompt.Ask(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
		req.FirstCompletedOverride = &answers.FirstCompleted
		req.CompletionRate = &answers.CompletionRate
	}

	r, err := rt.engine.Evaluate(ctx, req)
	if err != nil {
		return err
	}

	tips := rt.engine.Suggest(r)
	if evalFlagOutput != "" {
		if err := writeReportFile(evalFlagOutput, r, tips); err != nil {
			return err
		}
	}
	if evalFlagQuiet {
		return nil
	}
	if err := output.RenderReport(cmd.OutOrStdout(), r, tips); err != nil {
		return err
	}
	if evalFlagOutput != "" && r.Format == score.FormatTable {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n Report written to %s\n", evalFlagOutput)
	}
	return nil
}

// resolveFormat picks the report format: --format, then --json, then config.
func resolveFormat(flag string, asJSON bool, configured string) string {
	switch {
	case flag != "":
		return flag
	case asJSON:
		return string(score.FormatJSON)
	default:
		return configured
	}
}

// writeReportFile renders r without color and writes it to path.
func writeReportFile(path string, r *score.Report, tips []suggest.Suggestion) error {
	wasPlain := output.IsNoColor()
	output.SetNoColor(true)
	var buf bytes.Buffer
	err := output.RenderReport(&buf, r, tips)
	output.SetNoColor(wasPlain)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
