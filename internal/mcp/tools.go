package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blackwell-systems/cceval/internal/claude"
	"github.com/blackwell-systems/cceval/internal/engine"
	"github.com/blackwell-systems/cceval/internal/output"
	"github.com/blackwell-systems/cceval/internal/score"
	"github.com/blackwell-systems/cceval/internal/store"
	"github.com/blackwell-systems/cceval/internal/suggest"
)

// Evaluator is the part of the engine the tools use.
type Evaluator interface {
	Evaluate(ctx context.Context, req engine.Request) (*score.Report, error)
	Info(req engine.InfoRequest) (*engine.SessionInfo, error)
	ListSessions(limit int, projectPath string) ([]claude.SessionSummary, error)
	Suggest(r *score.Report) []suggest.Suggestion
}

// History reads stored evaluations.
type History interface {
	ListEvaluations(ctx context.Context, limit int, sessionID string) ([]store.Evaluation, error)
}

// SessionsResult holds a list of recent sessions.
type SessionsResult struct {
	Sessions []SessionEntry `json:"sessions"`
}

// SessionEntry holds summary data for a single session.
type SessionEntry struct {
	SessionID   string `json:"session_id"`
	ProjectPath string `json:"project_path"`
	Modified    string `json:"modified"`
	Summary     string `json:"summary,omitempty"`
}

// HistoryResult holds stored evaluations, newest first.
type HistoryResult struct {
	Evaluations []HistoryEntry `json:"evaluations"`
}

// HistoryEntry is one stored evaluation without its full report.
type HistoryEntry struct {
	ReportID       string  `json:"report_id"`
	SessionID      string  `json:"session_id"`
	GeneratedAt    string  `json:"generated_at"`
	Overall        float64 `json:"overall"`
	Grade          string  `json:"grade"`
	FirstCompleted bool    `json:"first_completed"`
}

var (
	evaluateSchema = json.RawMessage(`{"type":"object","properties":{` +
		`"session_id":{"type":"string","description":"Session ID or unique prefix (default: most recent)"},` +
		`"project":{"type":"string","description":"Restrict lookup to this project path"},` +
		`"first_completed":{"type":"boolean","description":"Override the first-attempt completion heuristic"},` +
		`"completion_rate":{"type":"number","minimum":0,"maximum":100,"description":"Estimated percent of the task completed (default 100)"},` +
		`"include_agents":{"type":"boolean","description":"Merge sub-agent transcripts"},` +
		`"format":{"type":"string","enum":["table","json","markdown"],"description":"Report format (default table). json returns the report as JSON"}` +
		`},"additionalProperties":false}`)
	listSchema = json.RawMessage(`{"type":"object","properties":{` +
		`"limit":{"type":"integer","description":"Number of sessions to return (default 10)"},` +
		`"project":{"type":"string","description":"Restrict to this project path"}` +
		`},"additionalProperties":false}`)
	infoSchema = json.RawMessage(`{"type":"object","properties":{` +
		`"session_id":{"type":"string","description":"Session ID or unique prefix (default: most recent)"},` +
		`"project":{"type":"string","description":"Restrict lookup to this project path"},` +
		`"include_agents":{"type":"boolean","description":"Merge sub-agent transcripts"}` +
		`},"additionalProperties":false}`)
	historySchema = json.RawMessage(`{"type":"object","properties":{` +
		`"session_id":{"type":"string","description":"Only evaluations of this session"},` +
		`"limit":{"type":"integer","description":"Number of evaluations to return (default 10)"}` +
		`},"additionalProperties":false}`)
)

// addTools registers the MCP tool handlers on s.
func addTools(s *Server) {
	s.registerTool(toolDef{
		Name:        "evaluate_session",
		Description: "Score a Claude Code session on first-attempt completion, timing, interactions and generated code quality, with ranked suggestions.",
		InputSchema: evaluateSchema,
		Handler:     s.handleEvaluateSession,
	})
	s.registerTool(toolDef{
		Name:        "list_sessions",
		Description: "Recent Claude Code sessions, newest first.",
		InputSchema: listSchema,
		Handler:     s.handleListSessions,
	})
	s.registerTool(toolDef{
		Name:        "get_session_info",
		Description: "Turn counts, prompts, timestamps and code operations of a session, without scoring it.",
		InputSchema: infoSchema,
		Handler:     s.handleGetSessionInfo,
	})
	if s.history != nil {
		s.registerTool(toolDef{
			Name:        "get_history",
			Description: "Previously stored evaluations, newest first.",
			InputSchema: historySchema,
			Handler:     s.handleGetHistory,
		})
	}
}

// decodeArgs unmarshals tool arguments, rejecting unknown shapes.
func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (s *Server) handleEvaluateSession(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		SessionID      string   `json:"session_id"`
		Project        string   `json:"project"`
		FirstCompleted *bool    `json:"first_completed"`
		CompletionRate *float64 `json:"completion_rate"`
		IncludeAgents  bool     `json:"include_agents"`
		Format         string   `json:"format"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if r := params.CompletionRate; r != nil && (*r < 0 || *r > 100) {
		return nil, errors.New("completion_rate must be between 0 and 100")
	}
	format, err := score.ParseFormat(params.Format)
	if err != nil {
		return nil, err
	}
	r, err := s.eval.Evaluate(ctx, engine.Request{
		SessionID:              params.SessionID,
		ProjectPath:            params.Project,
		IncludeAgents:          params.IncludeAgents,
		FirstCompletedOverride: params.FirstCompleted,
		CompletionRate:         params.CompletionRate,
		Format:                 format,
	})
	if err != nil {
		return nil, err
	}
	tips := s.eval.Suggest(r)
	if format == score.FormatJSON {
		return output.NewReportView(r, tips), nil
	}
	var buf bytes.Buffer
	if err := output.RenderReport(&buf, r, tips); err != nil {
		return nil, err
	}
	return buf.String(), nil
}

func (s *Server) handleListSessions(_ context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Limit   *int   `json:"limit"`
		Project string `json:"project"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	limit := claude.DefaultListLimit
	if params.Limit != nil && *params.Limit > 0 {
		limit = *params.Limit
	}
	sessions, err := s.eval.ListSessions(limit, params.Project)
	if err != nil {
		return nil, err
	}
	result := SessionsResult{Sessions: make([]SessionEntry, 0, len(sessions))}
	for _, ss := range sessions {
		result.Sessions = append(result.Sessions, SessionEntry{
			SessionID:   ss.ID,
			ProjectPath: ss.ProjectPath,
			Modified:    ss.Modified.UTC().Format("2006-01-02T15:04:05Z"),
			Summary:     ss.Summary,
		})
	}
	return result, nil
}

func (s *Server) handleGetSessionInfo(_ context.Context, args json.RawMessage) (any, error) {
	var params struct {
		SessionID     string `json:"session_id"`
		Project       string `json:"project"`
		IncludeAgents bool   `json:"include_agents"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	return s.eval.Info(engine.InfoRequest{
		SessionID:     params.SessionID,
		ProjectPath:   params.Project,
		IncludeAgents: params.IncludeAgents,
	})
}

func (s *Server) handleGetHistory(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		SessionID string `json:"session_id"`
		Limit     *int   `json:"limit"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	limit := 10
	if params.Limit != nil && *params.Limit > 0 {
		limit = *params.Limit
	}
	evals, err := s.history.ListEvaluations(ctx, limit, params.SessionID)
	if err != nil {
		return nil, err
	}
	result := HistoryResult{Evaluations: make([]HistoryEntry, 0, len(evals))}
	for _, e := range evals {
		result.Evaluations = append(result.Evaluations, HistoryEntry{
			ReportID:       e.ID,
			SessionID:      e.SessionID,
			GeneratedAt:    e.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Overall:        e.Overall,
			Grade:          e.Grade,
			FirstCompleted: e.FirstCompleted,
		})
	}
	return result, nil
}
