package claude

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// maxLineSize bounds a single JSONL line. Tool results embedding whole files
// routinely exceed bufio's 64KB default.
const maxLineSize = 10 * 1024 * 1024

// TranscriptEntry is the top-level structure of a JSONL line.
type TranscriptEntry struct {
	Type        string          `json:"type"`
	UUID        string          `json:"uuid,omitempty"`
	ParentUUID  string          `json:"parentUuid,omitempty"`
	SessionID   string          `json:"sessionId,omitempty"`
	AgentID     string          `json:"agentId,omitempty"`
	IsSidechain bool            `json:"isSidechain,omitempty"`
	IsMeta      bool            `json:"isMeta,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
	Cwd         string          `json:"cwd,omitempty"`
	Message     json.RawMessage `json:"message,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	DurationMs  *float64        `json:"durationMs,omitempty"`
}

// Message is the role/content payload carried by user and assistant entries.
// Content is either a plain string or an array of content blocks.
type Message struct {
	Role    string          `json:"role"`
	Model   string          `json:"model,omitempty"`
	Content json.RawMessage `json:"content"`
}

// ContentBlock represents a single content block (tool_use, tool_result, text).
type ContentBlock struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	Text      string          `json:"text,omitempty"`
}

// DecodeMessage unmarshals the entry's message payload. Entries without a
// message yield the zero Message.
func (e TranscriptEntry) DecodeMessage() (Message, error) {
	var msg Message
	if len(e.Message) == 0 || string(e.Message) == "null" {
		return msg, nil
	}
	if err := json.Unmarshal(e.Message, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// Blocks returns the message content as blocks. A string content becomes a
// single text block.
func (m Message) Blocks() []ContentBlock {
	if len(m.Content) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return []ContentBlock{{Type: "text", Text: s}}
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(m.Content, &blocks); err == nil {
		return blocks
	}
	return nil
}

// Text concatenates the text blocks of the message.
func (m Message) Text() string {
	var parts []string
	for _, b := range m.Blocks() {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// DecodeError reports a transcript line that is not valid JSON.
// Line is the zero-based index of the offending record.
type DecodeError struct {
	Path string
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: record %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("record %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeTranscript reads JSONL entries from r. Blank lines are ignored; the
// first undecodable line aborts with a *DecodeError.
func DecodeTranscript(r io.Reader) ([]TranscriptEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var entries []TranscriptEntry
	line := 0
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		var entry TranscriptEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, &DecodeError{Line: line, Err: err}
		}
		entries = append(entries, entry)
		line++
	}
	if err := scanner.Err(); err != nil {
		return nil, &DecodeError{Line: line, Err: err}
	}
	return entries, nil
}

// ReadTranscript opens and decodes the JSONL file at path.
func ReadTranscript(path string) ([]TranscriptEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := DecodeTranscript(f)
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			de.Path = path
		}
		return nil, err
	}
	return entries, nil
}

// firstEntry decodes only the first non-blank line of a transcript.
func firstEntry(path string) (TranscriptEntry, error) {
	var entry TranscriptEntry
	f, err := os.Open(path)
	if err != nil {
		return entry, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		err := json.Unmarshal(raw, &entry)
		return entry, err
	}
	return entry, scanner.Err()
}

// ParseTimestamp parses an ISO 8601 timestamp string. It tries RFC3339Nano,
// RFC3339, and a plain datetime format without timezone. Returns the zero time
// if the string is empty or cannot be parsed by any supported format.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
