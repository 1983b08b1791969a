// Package app contains the Cobra command tree for cceval.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/cceval/internal/output"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "cceval",
	Short: "Score the quality of Claude Code sessions",
	Long: `cceval reads Claude Code session transcripts and scores them on
first-attempt completion, response timing, number of interactions and the
quality of the code that was written.

Run 'cceval' with no arguments to see the available commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagNoColor {
			output.SetNoColor(true)
		} else {
			output.AutoColor(os.Stdout)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "cceval", appVersion)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Use a subcommand:")
		fmt.Fprintln(w, "  eval      Evaluate a session (default: the most recent)")
		fmt.Fprintln(w, "  sessions  List recent sessions")
		fmt.Fprintln(w, "  info      Show the shape of a session without scoring it")
		fmt.Fprintln(w, "  history   Show stored evaluations")
		fmt.Fprintln(w, "  watch     Evaluate sessions as they finish")
		fmt.Fprintln(w, "  mcp       Serve evaluation tools over MCP stdio")
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/cceval/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")
}
