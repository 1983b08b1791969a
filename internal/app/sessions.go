package app

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/cceval/internal/claude"
	"github.com/blackwell-systems/cceval/internal/output"
)

var (
	sessionsFlagLimit   int
	sessionsFlagProject string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent Claude Code sessions",
	Long: `List the most recently modified sessions across all projects, or only
those of one project with --project. The first column is the ID (or a
prefix of it) to pass to 'cceval eval'.`,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsFlagLimit, "limit", "n", claude.DefaultListLimit, "Number of sessions to show")
	sessionsCmd.Flags().StringVar(&sessionsFlagProject, "project", "", "Only sessions of this project path")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, runtimeOptions{noAnalysis: true})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	sessions, err := rt.engine.ListSessions(sessionsFlagLimit, sessionsFlagProject)
	if err != nil {
		return err
	}
	return output.RenderSessions(cmd.OutOrStdout(), sessions, flagJSON)
}
