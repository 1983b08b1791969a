// Package session reconstructs the ordered turn sequence of a recorded
// coding session from its transcript records.
package session

import "time"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSubAgent  Role = "subagent"
	// RoleTool marks user-type records that only carry tool results.
	RoleTool  Role = "tool"
	RoleOther Role = "other"
)

// ToolUse is one tool invocation inside a response turn. FilePath, Content
// and Lines are set for tools that write code.
type ToolUse struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	FilePath string `json:"file_path,omitempty"`
	Content  string `json:"-"`
	Lines    int    `json:"lines,omitempty"`
}

// WritesCode reports whether the tool produced file content.
func (t ToolUse) WritesCode() bool {
	return t.FilePath != "" && codeWriters[t.Name]
}

// Turn is one message in the session.
type Turn struct {
	Index       int           `json:"index"`
	Role        Role          `json:"role"`
	RecordType  string        `json:"record_type"`
	Timestamp   time.Time     `json:"timestamp"`
	Duration    time.Duration `json:"duration,omitempty"`
	HasDuration bool          `json:"has_duration,omitempty"`
	Text        string        `json:"text,omitempty"`
	Tools       []ToolUse     `json:"tools,omitempty"`
	Model       string        `json:"model,omitempty"`
	AgentID     string        `json:"agent_id,omitempty"`
	// Meta marks prompts directed at tooling rather than at the task,
	// such as a request to evaluate the session itself.
	Meta bool `json:"meta,omitempty"`
}

// Stats records what the parser saw but did not turn into ordinary turns.
type Stats struct {
	Records      int            `json:"records"`
	Skipped      int            `json:"skipped"`
	UnknownRoles map[string]int `json:"unknown_roles,omitempty"`
}

// Session is a parsed transcript. It is not modified after Parse returns.
type Session struct {
	ID            string    `json:"id"`
	ProjectPath   string    `json:"project_path"`
	Turns         []Turn    `json:"turns"`
	IncludeAgents bool      `json:"include_agents"`
	EndedAt       time.Time `json:"ended_at,omitempty"`
	Stats         Stats     `json:"stats"`
}

// IsResponse reports whether t counts as a response to the user. Sub-agent
// turns count only when the session was parsed with agents included.
func (s *Session) IsResponse(t Turn) bool {
	switch t.Role {
	case RoleAssistant:
		return true
	case RoleSubAgent:
		return s.IncludeAgents
	default:
		return false
	}
}

// IsPrompt reports whether t is a human-authored prompt.
func IsPrompt(t Turn) bool {
	return t.Role == RoleUser && !t.Meta
}

// FirstPrompt returns the position in Turns of the first human prompt.
func (s *Session) FirstPrompt() (int, bool) {
	for i, t := range s.Turns {
		if IsPrompt(t) {
			return i, true
		}
	}
	return -1, false
}

// FirstResponse returns the position of the first response at or after the
// first human prompt.
func (s *Session) FirstResponse() (int, bool) {
	start, ok := s.FirstPrompt()
	if !ok {
		return -1, false
	}
	for i := start; i < len(s.Turns); i++ {
		if s.IsResponse(s.Turns[i]) {
			return i, true
		}
	}
	return -1, false
}

// CodeOperations returns every code-writing tool use in turn order.
// Sub-agent writes are included only when agents are.
func (s *Session) CodeOperations() []ToolUse {
	var ops []ToolUse
	for _, t := range s.Turns {
		if !s.IsResponse(t) {
			continue
		}
		for _, tu := range t.Tools {
			if tu.WritesCode() {
				ops = append(ops, tu)
			}
		}
	}
	return ops
}

// RoleCounts tallies turns per role.
func (s *Session) RoleCounts() map[Role]int {
	counts := make(map[Role]int)
	for _, t := range s.Turns {
		counts[t.Role]++
	}
	return counts
}
