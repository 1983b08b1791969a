package app

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/cceval/internal/engine"
	"github.com/blackwell-systems/cceval/internal/output"
)

var (
	infoFlagFile          string
	infoFlagProject       string
	infoFlagIncludeAgents bool
)

var infoCmd = &cobra.Command{
	Use:   "info [session-id]",
	Short: "Show the shape of a session without scoring it",
	Long: `Parse a session and print its turn counts by role, prompt count,
timestamps, models and code operations, followed by a preview of the first
turns. Nothing is scored or stored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().StringVar(&infoFlagFile, "file", "", "Describe this transcript file instead of a stored session")
	infoCmd.Flags().StringVar(&infoFlagProject, "project", "", "Restrict session lookup to this project path")
	infoCmd.Flags().BoolVar(&infoFlagIncludeAgents, "include-agents", false, "Merge sub-agent transcripts into the session")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, runtimeOptions{noAnalysis: true})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	req := engine.InfoRequest{
		ProjectPath:   infoFlagProject,
		File:          infoFlagFile,
		IncludeAgents: infoFlagIncludeAgents || rt.cfg.IncludeAgents,
	}
	if len(args) == 1 {
		req.SessionID = args[0]
	}
	info, err := rt.engine.Info(req)
	if err != nil {
		return err
	}
	return output.RenderInfo(cmd.OutOrStdout(), info, flagJSON)
}
