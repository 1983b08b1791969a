package watcher

import (
	"bytes"
	"reflect"
	"testing"
)

func TestNotifySendArgs(t *testing.T) {
	tests := []struct {
		level   string
		urgency string
	}{
		{"critical", "critical"},
		{"warning", "normal"},
		{"info", "low"},
		{"", "low"},
	}
	for _, tt := range tests {
		t.Run(tt.urgency+"/"+tt.level, func(t *testing.T) {
			got := notifySendArgs(Alert{
				Level:   tt.level,
				Title:   "Low session score: api",
				Message: "55555555 scored 42.0 (F), below 60",
				Grade:   "F",
				Score:   42,
			})
			want := []string{
				"-u", tt.urgency,
				"-a", "cceval",
				"cceval: Low session score: api",
				"Grade F, 42.0/100\n55555555 scored 42.0 (F), below 60",
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("args = %q, want %q", got, want)
			}
		})
	}
}

func TestNotifySendArgs_NoReport(t *testing.T) {
	args := notifySendArgs(Alert{Level: "warning", Title: "Evaluation failed", Message: "55555555: boom"})
	if body := args[len(args)-1]; body != "55555555: boom" {
		t.Errorf("body = %q, want the message alone", body)
	}
}

func TestOsascriptScript(t *testing.T) {
	got := osascriptScript(Alert{
		Level:   "warning",
		Title:   "Score dropped: api",
		Message: "91.0 -> 70.0 (-21.0)",
		Grade:   "C",
		Score:   70,
	})
	want := `display notification "91.0 -> 70.0 (-21.0)" with title "cceval: Score dropped: api" subtitle "Grade C, 70.0/100"`
	if got != want {
		t.Errorf("script = %s\nwant     %s", got, want)
	}

	got = osascriptScript(Alert{Level: "warning", Title: "Snapshot failed", Message: `could not "list"`})
	want = `display notification "could not \"list\"" with title "cceval" subtitle "Snapshot failed"`
	if got != want {
		t.Errorf("script = %s\nwant     %s", got, want)
	}
}

func TestWriteAlert(t *testing.T) {
	var buf bytes.Buffer
	if err := writeAlert(&buf, Alert{Level: "critical", Title: "Low session score: api", Message: "42.0"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := buf.String(); got != "[critical] Low session score: api: 42.0\n" {
		t.Errorf("output = %q", got)
	}
}
