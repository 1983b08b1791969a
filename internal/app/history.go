package app

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/cceval/internal/output"
)

var historyFlagLimit int

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show stored evaluations",
	Long: `List evaluations saved by 'cceval eval', newest first, with the change
in overall score against the previous evaluation of the same session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyFlagLimit, "limit", "n", 20, "Number of evaluations to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, runtimeOptions{noAnalysis: true, history: true})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	if rt.db == nil {
		return errors.New("history is disabled or its database could not be opened")
	}

	var sessionID string
	if len(args) == 1 {
		sessionID = args[0]
	}
	evals, err := rt.db.ListEvaluations(ctx, historyFlagLimit, sessionID)
	if err != nil {
		return err
	}
	return output.RenderHistory(cmd.OutOrStdout(), evals, flagJSON)
}
