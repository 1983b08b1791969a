package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/cceval/internal/output"
	"github.com/blackwell-systems/cceval/internal/watcher"
)

var (
	watchFlagInterval   time.Duration
	watchFlagIdle       time.Duration
	watchFlagAlertBelow float64
	watchFlagDrop       float64
	watchFlagProject    string
	watchFlagBackfill   bool
	watchFlagNotify     bool
	watchFlagNoAnalysis bool
	watchFlagQuiet      bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Evaluate sessions as they finish and alert on low scores",
	Long: `Poll Claude Code's session files and evaluate each session once it has
gone idle. Evaluations are stored in history like 'cceval eval'. A critical
alert fires when a session scores below --alert-below and a warning when a
project's score drops by --drop or more.

Examples:
  cceval watch                      # run in foreground (ctrl-c to stop)
  cceval watch --idle 10m           # wait for 10 minutes of inactivity
  cceval watch --alert-below 70     # alert under 70
  cceval watch --notify             # also send desktop notifications`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchFlagInterval, "interval", time.Minute, "Check interval (e.g. 30s, 5m)")
	watchCmd.Flags().DurationVar(&watchFlagIdle, "idle", 5*time.Minute, "Inactivity after which a session counts as finished")
	watchCmd.Flags().Float64Var(&watchFlagAlertBelow, "alert-below", 60, "Alert when the overall score is below this")
	watchCmd.Flags().Float64Var(&watchFlagDrop, "drop", 15, "Alert when a project's score drops by this much (0 disables)")
	watchCmd.Flags().StringVar(&watchFlagProject, "project", "", "Only watch sessions of this project path")
	watchCmd.Flags().BoolVar(&watchFlagBackfill, "backfill", false, "Also evaluate sessions that finished before the watch started")
	watchCmd.Flags().BoolVar(&watchFlagNotify, "notify", false, "Send desktop notifications for warnings and critical alerts")
	watchCmd.Flags().BoolVar(&watchFlagNoAnalysis, "no-analysis", false, "Skip radon/flake8 and score code on size only")
	watchCmd.Flags().BoolVarP(&watchFlagQuiet, "quiet", "q", false, "Suppress info alerts in the terminal")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchFlagInterval < 10*time.Second {
		return fmt.Errorf("interval must be at least 10s, got %s", watchFlagInterval)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, runtimeOptions{noAnalysis: watchFlagNoAnalysis, save: true})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.Background()) }()

	out := cmd.OutOrStdout()
	alertFn := func(a watcher.Alert) {
		if watchFlagNotify && a.Level != "info" {
			_ = watcher.Notify(a)
		}
		if watchFlagQuiet && a.Level == "info" {
			return
		}
		fmt.Fprintln(out, formatAlert(a))
	}

	w := watcher.New(rt.engine, watcher.Options{
		Interval:      watchFlagInterval,
		Idle:          watchFlagIdle,
		AlertBelow:    watchFlagAlertBelow,
		DropAlert:     watchFlagDrop,
		ProjectPath:   watchFlagProject,
		Backfill:      watchFlagBackfill,
		IncludeAgents: rt.cfg.IncludeAgents,
	}, alertFn, rt.log)

	fmt.Fprintf(out, "cceval watching... (checking every %s, idle after %s)\n", watchFlagInterval, watchFlagIdle)
	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, "\nStopped.")
		return nil
	}
	return err
}

// formatAlert renders one alert line with a level marker.
func formatAlert(a watcher.Alert) string {
	marker := output.StyleMuted.Render("·")
	switch a.Level {
	case "critical":
		marker = output.StyleError.Render("✗")
	case "warning":
		marker = output.StyleWarning.Render("!")
	}
	ts := a.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("[%s] %s %s: %s", ts.Local().Format("15:04:05"), marker, output.StyleBold.Render(a.Title), a.Message)
}
