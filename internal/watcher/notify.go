package watcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"
)

const notifyTimeout = 5 * time.Second

// Notify shows alert as a desktop notification: osascript on macOS,
// notify-send on Linux. When neither works the alert is written to stderr.
func Notify(alert Alert) error {
	var name string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		name, args = "osascript", []string{"-e", osascriptScript(alert)}
	case "linux":
		name, args = "notify-send", notifySendArgs(alert)
	default:
		return writeAlert(os.Stderr, alert)
	}
	if _, err := exec.LookPath(name); err != nil {
		return writeAlert(os.Stderr, alert)
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := exec.CommandContext(ctx, name, args...).Run(); err != nil {
		return writeAlert(os.Stderr, alert)
	}
	return nil
}

// urgency maps an alert level to a notify-send urgency.
func urgency(level string) string {
	switch level {
	case "critical":
		return "critical"
	case "warning":
		return "normal"
	default:
		return "low"
	}
}

// subtitle is the grade line shown under the notification title.
func subtitle(alert Alert) string {
	if alert.Grade == "" {
		return alert.Title
	}
	return fmt.Sprintf("Grade %s, %.1f/100", alert.Grade, alert.Score)
}

func notifySendArgs(alert Alert) []string {
	body := alert.Message
	if alert.Grade != "" {
		body = subtitle(alert) + "\n" + body
	}
	return []string{
		"-u", urgency(alert.Level),
		"-a", "cceval",
		"cceval: " + alert.Title,
		body,
	}
}

func osascriptScript(alert Alert) string {
	title := "cceval"
	if alert.Grade != "" {
		title = "cceval: " + alert.Title
	}
	return fmt.Sprintf(`display notification %q with title %q subtitle %q`,
		alert.Message, title, subtitle(alert))
}

func writeAlert(w io.Writer, alert Alert) error {
	_, err := fmt.Fprintf(w, "[%s] %s: %s\n", alert.Level, alert.Title, alert.Message)
	return err
}
