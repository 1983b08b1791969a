package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/cceval/internal/claude"
	"github.com/blackwell-systems/cceval/internal/engine"
	"github.com/blackwell-systems/cceval/internal/output"
	"github.com/blackwell-systems/cceval/internal/score"
	"github.com/blackwell-systems/cceval/internal/store"
)

const testSessionID = "44444444-4444-4444-8444-444444444444"

// writeSession writes a two-prompt session under <dir>/projects/-app/.
func writeSession(t *testing.T, dir string) {
	t.Helper()
	projDir := filepath.Join(dir, "projects", "-app")
	if err := os.MkdirAll(projDir, 0o755); err != nil {
		t.Fatalf("mkdir project: %v", err)
	}
	lines := []string{
		`{"type":"user","sessionId":"` + testSessionID + `","cwd":"/app","timestamp":"2026-01-15T10:00:00Z","message":{"role":"user","content":"add a login form"}}`,
		`{"type":"assistant","sessionId":"` + testSessionID + `","timestamp":"2026-01-15T10:00:06Z","message":{"role":"assistant","content":[{"type":"text","text":"Added."}]}}`,
		`{"type":"user","sessionId":"` + testSessionID + `","timestamp":"2026-01-15T10:01:00Z","message":{"role":"user","content":"the submit button is broken"}}`,
		`{"type":"assistant","sessionId":"` + testSessionID + `","timestamp":"2026-01-15T10:01:05Z","message":{"role":"assistant","content":[{"type":"text","text":"Fixed."}]}}`,
	}
	data := []byte(strings.Join(lines, "\n") + "\n")
	if err := os.WriteFile(filepath.Join(projDir, testSessionID+".jsonl"), data, 0o644); err != nil {
		t.Fatalf("write session: %v", err)
	}
}

// newTestServer creates a Server over tmpDir, optionally with history.
func newTestServer(tmpDir string, history History) *Server {
	eng := engine.New(claude.NewRegistry(tmpDir), nil, engine.DefaultSettings())
	return NewServer(eng, history, "test", nil)
}

// callTool invokes the named tool handler and returns the typed result.
func callTool(s *Server, name string, args json.RawMessage) (any, error) {
	for _, tool := range s.tools {
		if tool.Name == name {
			return tool.Handler(context.Background(), args)
		}
	}
	return nil, errors.New("tool not registered: " + name)
}

func TestEvaluateSession_Latest(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir)
	s := newTestServer(dir, nil)

	result, err := callTool(s, "evaluate_session", json.RawMessage(`{"format":"json"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, ok := result.(output.ReportView)
	if !ok {
		t.Fatalf("expected ReportView, got %T", result)
	}
	if view.SessionID != testSessionID {
		t.Errorf("session_id = %q, want %q", view.SessionID, testSessionID)
	}
	if view.Completion.FirstCompleted {
		t.Error("expected follow-up \"broken\" to fail first-attempt completion")
	}
	if view.Completion.MatchedTerm != "broken" {
		t.Errorf("matched term = %q, want broken", view.Completion.MatchedTerm)
	}
	if view.Interactions != 2 {
		t.Errorf("interactions = %d, want 2", view.Interactions)
	}
	if view.Timing.FirstResponseLatency == nil || *view.Timing.FirstResponseLatency != 6 {
		t.Errorf("latency = %v, want 6s", view.Timing.FirstResponseLatency)
	}
	if len(view.Suggestions) == 0 || view.Suggestions[0].Category != "completion" {
		t.Errorf("expected a completion suggestion first, got %+v", view.Suggestions)
	}
}

func TestEvaluateSession_Override(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir)
	s := newTestServer(dir, nil)

	result, err := callTool(s, "evaluate_session", json.RawMessage(`{"session_id":"4444","first_completed":true,"completion_rate":50,"format":"json"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view := result.(output.ReportView)
	if !view.Completion.FirstCompleted || view.Completion.Provenance != "override" {
		t.Errorf("override not applied: %+v", view.Completion)
	}
	if view.CompletionRate != 50 {
		t.Errorf("completion_rate = %v, want 50", view.CompletionRate)
	}
}

func TestEvaluateSession_BadRate(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir)
	s := newTestServer(dir, nil)

	if _, err := callTool(s, "evaluate_session", json.RawMessage(`{"completion_rate":150}`)); err == nil {
		t.Fatal("expected error for completion_rate 150")
	}
	if _, err := callTool(s, "evaluate_session", json.RawMessage(`{"session_id":7}`)); err == nil {
		t.Fatal("expected error for non-string session_id")
	}
}

func TestEvaluateSession_Formats(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir)
	s := newTestServer(dir, nil)

	tests := []struct {
		format string
		want   []string
	}{
		{"", []string{"Session evaluation", testSessionID, "Suggestions"}},
		{"table", []string{"Session evaluation", testSessionID, "Suggestions"}},
		{"markdown", []string{"# Session evaluation: " + testSessionID, "Suggestions"}},
	}
	for _, tt := range tests {
		name := tt.format
		if name == "" {
			name = "default"
		}
		t.Run(name, func(t *testing.T) {
			args := json.RawMessage(`{}`)
			if tt.format != "" {
				args = json.RawMessage(`{"format":"` + tt.format + `"}`)
			}
			result, err := callTool(s, "evaluate_session", args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			text, ok := result.(string)
			if !ok {
				t.Fatalf("expected rendered text, got %T", result)
			}
			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Errorf("%s output missing %q:\n%s", tt.format, w, text)
				}
			}
		})
	}

	t.Run("json", func(t *testing.T) {
		result, err := callTool(s, "evaluate_session", json.RawMessage(`{"format":"json"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := result.(output.ReportView); !ok {
			t.Fatalf("expected ReportView, got %T", result)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := callTool(s, "evaluate_session", json.RawMessage(`{"format":"xml"}`))
		if !errors.Is(err, score.ErrInvalidFormat) {
			t.Fatalf("expected ErrInvalidFormat, got %v", err)
		}
	})
}

func TestEvaluateSession_NoSessions(t *testing.T) {
	s := newTestServer(t.TempDir(), nil)
	_, err := callTool(s, "evaluate_session", json.RawMessage(`{}`))
	if !errors.Is(err, claude.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestListSessions(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir)
	s := newTestServer(dir, nil)

	result, err := callTool(s, "list_sessions", json.RawMessage(`{"limit":5}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := result.(SessionsResult)
	if len(r.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(r.Sessions))
	}
	if r.Sessions[0].ProjectPath != "/app" {
		t.Errorf("project = %q, want /app", r.Sessions[0].ProjectPath)
	}
	if r.Sessions[0].Summary != "add a login form" {
		t.Errorf("summary = %q", r.Sessions[0].Summary)
	}
}

func TestListSessions_Empty(t *testing.T) {
	s := newTestServer(t.TempDir(), nil)
	result, err := callTool(s, "list_sessions", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(result.(SessionsResult).Sessions); n != 0 {
		t.Errorf("expected 0 sessions, got %d", n)
	}
}

func TestGetSessionInfo(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir)
	s := newTestServer(dir, nil)

	result, err := callTool(s, "get_session_info", json.RawMessage(`{"session_id":"`+testSessionID+`"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info := result.(*engine.SessionInfo)
	if info.Prompts != 2 || info.Turns != 4 {
		t.Errorf("prompts=%d turns=%d, want 2 and 4", info.Prompts, info.Turns)
	}
}

func TestGetHistory(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir)

	db, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	eng := engine.New(claude.NewRegistry(dir), nil, engine.DefaultSettings(), engine.WithObserver(db))
	s := NewServer(eng, db, "test", nil)

	if _, err := callTool(s, "evaluate_session", nil); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := callTool(s, "evaluate_session", json.RawMessage(`{"first_completed":true}`)); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	result, err := callTool(s, "get_history", json.RawMessage(`{"session_id":"`+testSessionID+`"}`))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	h := result.(HistoryResult)
	if len(h.Evaluations) != 2 {
		t.Fatalf("expected 2 evaluations, got %d", len(h.Evaluations))
	}
	if !h.Evaluations[0].FirstCompleted {
		t.Error("expected newest evaluation first")
	}
}

func TestHistoryToolRequiresStore(t *testing.T) {
	s := newTestServer(t.TempDir(), nil)
	if _, err := callTool(s, "get_history", nil); err == nil {
		t.Fatal("expected get_history to be unregistered without a store")
	}
}
