package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/blackwell-systems/cceval/internal/claude"
)

// metadataTypes are record types that describe the session rather than
// carry a message. They are skipped and never become turns.
var metadataTypes = map[string]bool{
	"summary":               true,
	"file-history-snapshot": true,
	"queue-operation":       true,
	"progress":              true,
	"system":                true,
}

// codeWriters are the tools whose input carries written file content.
var codeWriters = map[string]bool{
	"Write":          true,
	"Edit":           true,
	"MultiEdit":      true,
	"NotebookEdit":   true,
	"search_replace": true,
}

// ParseOptions controls how records become turns.
type ParseOptions struct {
	// IncludeAgents makes sub-agent turns count as responses downstream.
	IncludeAgents bool
	// MetaKeywords mark user prompts containing any of them (case-insensitive)
	// as Meta, so they are not counted as task prompts. Latin keywords match
	// whole words only: "eval" marks "run eval" but not "retrieval".
	MetaKeywords []string
	// EndedAt, when set, closes the reasoning span of the final turn.
	EndedAt time.Time
}

// FromTranscript parses a loaded transcript.
func FromTranscript(t *claude.Transcript, opts ParseOptions) (*Session, error) {
	return Parse(t.SessionID, t.ProjectPath, t.Entries, opts)
}

// Parse converts records into a Session. It fails on the first record that
// lacks a role or a timestamp, or whose timestamp precedes the previous
// turn's. A transcript with no human prompt is rejected as a whole. When
// every prompt matched a meta keyword the keywords are ignored, so a
// session is never rejected for what its prompts say.
func Parse(id, projectPath string, entries []claude.TranscriptEntry, opts ParseOptions) (*Session, error) {
	s := &Session{
		ID:            id,
		ProjectPath:   projectPath,
		IncludeAgents: opts.IncludeAgents,
		EndedAt:       opts.EndedAt,
		Stats:         Stats{Records: len(entries)},
	}
	keywords := lowerAll(opts.MetaKeywords)

	var prev time.Time
	hasPrompt := false
	var keywordMeta []int
	for i, e := range entries {
		if metadataTypes[e.Type] {
			s.Stats.Skipped++
			continue
		}

		msg, err := e.DecodeMessage()
		if err != nil {
			return nil, &MalformedTranscriptError{Index: i, Reason: "undecodable message", Err: err}
		}

		recordType := e.Type
		if recordType == "" {
			recordType = msg.Role
		}
		if recordType == "" {
			return nil, malformed(i, "missing role")
		}

		ts := claude.ParseTimestamp(e.Timestamp)
		if ts.IsZero() {
			return nil, malformed(i, fmt.Sprintf("missing or unparseable timestamp %q", e.Timestamp))
		}
		if ts.Before(prev) {
			return nil, &MalformedTranscriptError{
				Index:  i,
				Reason: fmt.Sprintf("timestamp %s precedes %s", ts.Format(time.RFC3339Nano), prev.Format(time.RFC3339Nano)),
				Err:    ErrOutOfOrderTimestamp,
			}
		}
		prev = ts

		blocks := msg.Blocks()
		turn := Turn{
			Index:      i,
			Role:       classifyRole(e, recordType, blocks),
			RecordType: recordType,
			Timestamp:  ts,
			Text:       msg.Text(),
			Tools:      toolUses(blocks),
			Model:      msg.Model,
			AgentID:    e.AgentID,
		}
		if e.DurationMs != nil && *e.DurationMs >= 0 {
			turn.Duration = time.Duration(*e.DurationMs * float64(time.Millisecond))
			turn.HasDuration = true
		}
		if turn.Role == RoleOther {
			if s.Stats.UnknownRoles == nil {
				s.Stats.UnknownRoles = make(map[string]int)
			}
			s.Stats.UnknownRoles[recordType]++
		}
		if turn.Role == RoleUser {
			switch {
			case e.IsMeta:
				turn.Meta = true
			case containsAny(turn.Text, keywords):
				turn.Meta = true
				keywordMeta = append(keywordMeta, len(s.Turns))
			default:
				hasPrompt = true
			}
		}
		s.Turns = append(s.Turns, turn)
	}

	if !hasPrompt && len(keywordMeta) > 0 {
		for _, ti := range keywordMeta {
			s.Turns[ti].Meta = false
		}
		hasPrompt = true
	}
	if !hasPrompt {
		return nil, malformed(-1, "no user prompt")
	}
	return s, nil
}

func classifyRole(e claude.TranscriptEntry, recordType string, blocks []claude.ContentBlock) Role {
	switch recordType {
	case "user", "assistant":
	default:
		return RoleOther
	}
	if e.IsSidechain || e.AgentID != "" {
		return RoleSubAgent
	}
	if recordType == "assistant" {
		return RoleAssistant
	}
	if onlyToolResults(blocks) {
		return RoleTool
	}
	return RoleUser
}

func onlyToolResults(blocks []claude.ContentBlock) bool {
	if len(blocks) == 0 {
		return false
	}
	for _, b := range blocks {
		if b.Type != "tool_result" {
			return false
		}
	}
	return true
}

// writeInput covers the input shapes of the code-writing tools.
type writeInput struct {
	FilePath     string `json:"file_path"`
	NotebookPath string `json:"notebook_path"`
	Content      string `json:"content"`
	NewString    string `json:"new_string"`
	NewSource    string `json:"new_source"`
	Edits        []struct {
		NewString string `json:"new_string"`
	} `json:"edits"`
}

func toolUses(blocks []claude.ContentBlock) []ToolUse {
	var tools []ToolUse
	for _, b := range blocks {
		if b.Type != "tool_use" {
			continue
		}
		tu := ToolUse{ID: b.ID, Name: b.Name}
		if codeWriters[b.Name] && len(b.Input) > 0 {
			var in writeInput
			if err := json.Unmarshal(b.Input, &in); err == nil {
				tu.FilePath = in.FilePath
				if tu.FilePath == "" {
					tu.FilePath = in.NotebookPath
				}
				tu.Content = writtenContent(in)
				tu.Lines = CountLines(tu.Content)
			}
		}
		tools = append(tools, tu)
	}
	return tools
}

func writtenContent(in writeInput) string {
	switch {
	case in.Content != "":
		return in.Content
	case in.NewString != "":
		return in.NewString
	case in.NewSource != "":
		return in.NewSource
	}
	parts := make([]string, 0, len(in.Edits))
	for _, e := range in.Edits {
		parts = append(parts, e.NewString)
	}
	return strings.Join(parts, "\n")
}

// CountLines counts newline-separated lines. A trailing newline does not
// start a new line and empty content has none.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(content, "\n"), "\n") + 1
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func containsAny(text string, lowered []string) bool {
	if len(lowered) == 0 || text == "" {
		return false
	}
	lt := strings.ToLower(text)
	for _, k := range lowered {
		if containsWord(lt, k) {
			return true
		}
	}
	return false
}

// containsWord reports whether k occurs in text without a letter or digit
// directly against either end. Keywords that start or end in a non-Latin
// script skip that side's check, since those scripts do not separate
// words with spaces.
func containsWord(text, k string) bool {
	first, _ := utf8.DecodeRuneInString(k)
	last, _ := utf8.DecodeLastRuneInString(k)
	for from := 0; from <= len(text)-len(k); {
		i := strings.Index(text[from:], k)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(k)
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (!isLatinWord(first) || start == 0 || !isLatinWord(before)) &&
			(!isLatinWord(last) || end == len(text) || !isLatinWord(after)) {
			return true
		}
		from = start + 1
	}
	return false
}

func isLatinWord(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}
