package engine

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/blackwell-systems/cceval/internal/session"
)

// previewTurns is how many turns SessionInfo previews.
const previewTurns = 10

// previewLen is the rune length of each previewed turn's text.
const previewLen = 80

// TurnPreview is a shortened view of one turn.
type TurnPreview struct {
	Index     int          `json:"index"`
	Role      session.Role `json:"role"`
	Timestamp time.Time    `json:"timestamp"`
	Text      string       `json:"text,omitempty"`
	Tools     []string     `json:"tools,omitempty"`
	Meta      bool         `json:"meta,omitempty"`
}

// SessionInfo describes a session without scoring it.
type SessionInfo struct {
	ID             string               `json:"id"`
	ProjectPath    string               `json:"project_path"`
	Path           string               `json:"path,omitempty"`
	AgentFiles     []string             `json:"agent_files,omitempty"`
	IncludeAgents  bool                 `json:"include_agents"`
	Records        int                  `json:"records"`
	Skipped        int                  `json:"skipped"`
	Turns          int                  `json:"turns"`
	Roles          map[session.Role]int `json:"roles"`
	UnknownRoles   map[string]int       `json:"unknown_roles,omitempty"`
	Prompts        int                  `json:"prompts"`
	StartedAt      time.Time            `json:"started_at"`
	LastActivityAt time.Time            `json:"last_activity_at"`
	FirstPromptAt  time.Time            `json:"first_prompt_at"`
	// FirstResponseAt is zero when nothing answered the first prompt.
	FirstResponseAt time.Time         `json:"first_response_at,omitempty"`
	Models          []string          `json:"models,omitempty"`
	CodeOperations  []session.ToolUse `json:"code_operations,omitempty"`
	TotalLines      int               `json:"total_lines"`
	Preview         []TurnPreview     `json:"preview"`
}

// InfoRequest selects the session to describe.
type InfoRequest struct {
	SessionID     string
	ProjectPath   string
	File          string
	IncludeAgents bool
}

// Info parses a session and reports its shape. It runs no classifier and
// no static analysis.
func (e *Engine) Info(req InfoRequest) (*SessionInfo, error) {
	t, err := e.load(req.SessionID, req.ProjectPath, req.File, req.IncludeAgents)
	if err != nil {
		return nil, err
	}
	s, err := session.FromTranscript(t, session.ParseOptions{
		IncludeAgents: req.IncludeAgents,
		MetaKeywords:  e.settings.MetaKeywords,
	})
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", t.SessionID, err)
	}
	info := Describe(s)
	info.Path = t.Path
	info.AgentFiles = t.AgentFiles
	return info, nil
}

// Describe summarizes a parsed session.
func Describe(s *session.Session) *SessionInfo {
	info := &SessionInfo{
		ID:             s.ID,
		ProjectPath:    s.ProjectPath,
		IncludeAgents:  s.IncludeAgents,
		Records:        s.Stats.Records,
		Skipped:        s.Stats.Skipped,
		Turns:          len(s.Turns),
		Roles:          s.RoleCounts(),
		UnknownRoles:   s.Stats.UnknownRoles,
		CodeOperations: s.CodeOperations(),
	}
	if len(s.Turns) > 0 {
		info.StartedAt = s.Turns[0].Timestamp
		info.LastActivityAt = s.Turns[len(s.Turns)-1].Timestamp
	}
	if i, ok := s.FirstPrompt(); ok {
		info.FirstPromptAt = s.Turns[i].Timestamp
	}
	if i, ok := s.FirstResponse(); ok {
		info.FirstResponseAt = s.Turns[i].Timestamp
	}

	seen := make(map[string]bool)
	for _, t := range s.Turns {
		if session.IsPrompt(t) {
			info.Prompts++
		}
		if t.Model != "" && !seen[t.Model] {
			seen[t.Model] = true
			info.Models = append(info.Models, t.Model)
		}
	}
	for _, op := range info.CodeOperations {
		info.TotalLines += op.Lines
	}

	for i, t := range s.Turns {
		if i == previewTurns {
			break
		}
		p := TurnPreview{Index: t.Index, Role: t.Role, Timestamp: t.Timestamp, Text: shorten(t.Text, previewLen), Meta: t.Meta}
		for _, tu := range t.Tools {
			p.Tools = append(p.Tools, tu.Name)
		}
		info.Preview = append(info.Preview, p)
	}
	return info
}

func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
