package app

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/cceval/internal/config"
	"github.com/blackwell-systems/cceval/internal/mcp"
)

var mcpFlagNoSave bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP stdio server for use with Claude Code",
	Long: `Start a Model Context Protocol stdio server so a Claude Code session can
evaluate itself. The server exposes these tools:

  evaluate_session  Score a session (default: the most recent)
  list_sessions     Recent sessions with project and first prompt
  get_session_info  Turn counts and code operations without scoring
  get_history       Stored evaluations (when history is enabled)

Logs go to ~/.config/cceval/cceval.log unless log.file is set.

Add to your Claude Code MCP configuration (~/.claude/settings.json):
  {"mcpServers":{"cceval":{"command":"cceval","args":["mcp"]}}}`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpFlagNoSave, "no-save", false, "Do not store evaluations in history")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
		return err
	}
	rt, err := newRuntime(ctx, runtimeOptions{
		quiet:   true,
		save:    !mcpFlagNoSave,
		history: true,
		logFile: config.LogPath(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	var history mcp.History
	if rt.db != nil {
		history = rt.db
	}
	srv := mcp.NewServer(rt.engine, history, appVersion, rt.log)
	return srv.Run(ctx, os.Stdin, os.Stdout)
}
