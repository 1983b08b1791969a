package claude

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// DefaultListLimit is the number of sessions List returns when limit <= 0.
const DefaultListLimit = 10

// summaryPreviewLen is the rune length of a summary taken from the first prompt.
const summaryPreviewLen = 50

var (
	// ErrSessionNotFound is returned when no transcript matches an ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAmbiguousSession is returned when an ID prefix matches several transcripts.
	ErrAmbiguousSession = errors.New("session id prefix is ambiguous")
)

// SessionFile locates one main transcript on disk.
type SessionFile struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	ProjectDir string    `json:"project_dir"`
	Modified   time.Time `json:"modified"`
	Size       int64     `json:"size"`
}

// SessionSummary is the listing view of a session.
type SessionSummary struct {
	SessionFile
	ProjectPath string `json:"project_path"`
	Summary     string `json:"summary"`
}

// Transcript is a session's records, main stream merged with any
// sub-agent streams.
type Transcript struct {
	SessionID   string
	ProjectPath string
	Path        string
	AgentFiles  []string
	Entries     []TranscriptEntry
}

// Registry resolves session identifiers to transcripts under claudeHome/projects.
type Registry struct {
	claudeHome string
}

// NewRegistry returns a Registry rooted at claudeHome (usually ~/.claude).
func NewRegistry(claudeHome string) *Registry {
	return &Registry{claudeHome: claudeHome}
}

// ProjectsDir returns the directory holding per-project transcript folders.
func (r *Registry) ProjectsDir() string {
	return filepath.Join(r.claudeHome, "projects")
}

// sessionFiles returns every main transcript, optionally scoped to one project.
// Agent transcripts are excluded.
func (r *Registry) sessionFiles(projectPath string) ([]SessionFile, error) {
	projects, err := projectsFor(r.claudeHome, projectPath)
	if err != nil {
		return nil, err
	}

	var files []SessionFile
	for _, p := range projects {
		matches, err := doublestar.Glob(os.DirFS(p.Path), "*.jsonl")
		if err != nil {
			return nil, fmt.Errorf("globbing %s: %w", p.Path, err)
		}
		for _, m := range matches {
			if strings.HasPrefix(m, "agent-") {
				continue
			}
			full := filepath.Join(p.Path, m)
			info, err := os.Stat(full)
			if err != nil {
				continue
			}
			files = append(files, SessionFile{
				ID:         strings.TrimSuffix(m, ".jsonl"),
				Path:       full,
				ProjectDir: p.Name,
				Modified:   info.ModTime(),
				Size:       info.Size(),
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// List returns up to limit sessions, most recently modified first.
func (r *Registry) List(limit int, projectPath string) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	files, err := r.sessionFiles(projectPath)
	if err != nil {
		return nil, err
	}
	if len(files) > limit {
		files = files[:limit]
	}

	summaries := make([]SessionSummary, 0, len(files))
	for _, f := range files {
		path, summary := peekSummary(f.Path)
		if path == "" {
			path = DecodeProjectDir(f.ProjectDir)
		}
		summaries = append(summaries, SessionSummary{
			SessionFile: f,
			ProjectPath: path,
			Summary:     summary,
		})
	}
	return summaries, nil
}

// Latest returns the most recently modified session.
func (r *Registry) Latest(projectPath string) (SessionFile, error) {
	files, err := r.sessionFiles(projectPath)
	if err != nil {
		return SessionFile{}, err
	}
	if len(files) == 0 {
		return SessionFile{}, ErrSessionNotFound
	}
	return files[0], nil
}

// Find resolves a full session ID or a unique ID prefix.
func (r *Registry) Find(id, projectPath string) (SessionFile, error) {
	id = strings.TrimSpace(strings.TrimSuffix(id, ".jsonl"))
	if id == "" {
		return r.Latest(projectPath)
	}
	files, err := r.sessionFiles(projectPath)
	if err != nil {
		return SessionFile{}, err
	}

	_, perr := uuid.Parse(id)
	exact := perr == nil

	var matches []SessionFile
	for _, f := range files {
		if f.ID == id {
			return f, nil
		}
		if !exact && strings.HasPrefix(f.ID, id) {
			matches = append(matches, f)
		}
	}
	switch len(matches) {
	case 0:
		return SessionFile{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return SessionFile{}, fmt.Errorf("%w: %s matches %d sessions", ErrAmbiguousSession, id, len(matches))
	}
}

// Load reads a session transcript. With includeAgents, sub-agent transcripts
// belonging to the session are merged into the entry stream by timestamp.
func (r *Registry) Load(f SessionFile, includeAgents bool) (*Transcript, error) {
	t, err := LoadFile(f.Path)
	if err != nil {
		return nil, err
	}
	if t.ProjectPath == "" {
		t.ProjectPath = DecodeProjectDir(f.ProjectDir)
	}
	if !includeAgents {
		return t, nil
	}

	agentFiles, err := findAgentFiles(filepath.Dir(f.Path), t.SessionID)
	if err != nil {
		return nil, err
	}
	streams := [][]TranscriptEntry{t.Entries}
	for _, path := range agentFiles {
		entries, err := ReadTranscript(path)
		if err != nil {
			return nil, err
		}
		agentID := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "agent-"), ".jsonl")
		for i := range entries {
			entries[i].IsSidechain = true
			if entries[i].AgentID == "" {
				entries[i].AgentID = agentID
			}
		}
		streams = append(streams, entries)
	}
	t.AgentFiles = agentFiles
	t.Entries = MergeStreams(streams...)
	return t, nil
}

// LoadFile reads a single transcript file with no agent merging. The
// session ID is taken from the records, falling back to the file name.
func LoadFile(path string) (*Transcript, error) {
	entries, err := ReadTranscript(path)
	if err != nil {
		return nil, err
	}
	t := &Transcript{
		SessionID: strings.TrimSuffix(filepath.Base(path), ".jsonl"),
		Path:      path,
		Entries:   entries,
	}
	for _, e := range entries {
		if e.SessionID != "" {
			t.SessionID = e.SessionID
			break
		}
	}
	for _, e := range entries {
		if e.Cwd != "" {
			t.ProjectPath = e.Cwd
			break
		}
	}
	return t, nil
}

// findAgentFiles returns agent transcripts for sessionID: top-level
// agent-*.jsonl files whose first record names the session, plus anything
// under <sessionID>/subagents/.
func findAgentFiles(projectDir, sessionID string) ([]string, error) {
	fsys := os.DirFS(projectDir)
	var out []string

	top, err := doublestar.Glob(fsys, "agent-*.jsonl")
	if err != nil {
		return nil, err
	}
	for _, m := range top {
		full := filepath.Join(projectDir, m)
		first, err := firstEntry(full)
		if err != nil || first.SessionID != sessionID {
			continue
		}
		out = append(out, full)
	}

	nested, err := doublestar.Glob(fsys, sessionID+"/subagents/*.jsonl")
	if err != nil {
		return nil, err
	}
	for _, m := range nested {
		out = append(out, filepath.Join(projectDir, m))
	}
	sort.Strings(out)
	return out, nil
}

// MergeStreams interleaves entry streams by timestamp. Each stream keeps its
// own order; ties go to the earlier stream. Entries without a parseable
// timestamp sort with the last timestamp seen in their stream.
func MergeStreams(streams ...[]TranscriptEntry) []TranscriptEntry {
	if len(streams) == 0 {
		return nil
	}
	merged := streams[0]
	for _, s := range streams[1:] {
		merged = mergeTwo(merged, s)
	}
	return merged
}

func mergeTwo(a, b []TranscriptEntry) []TranscriptEntry {
	out := make([]TranscriptEntry, 0, len(a)+len(b))
	var lastA, lastB time.Time
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ta := sortKey(a[i], lastA)
		tb := sortKey(b[j], lastB)
		if !tb.Before(ta) {
			out = append(out, a[i])
			lastA = ta
			i++
		} else {
			out = append(out, b[j])
			lastB = tb
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func sortKey(e TranscriptEntry, last time.Time) time.Time {
	if t := ParseTimestamp(e.Timestamp); !t.IsZero() {
		return t
	}
	return last
}

// peekSummary scans a transcript for its cwd and a one-line summary: the
// first summary record, else the opening of the first human prompt.
func peekSummary(path string) (cwd, summary string) {
	entries, err := ReadTranscript(path)
	if err != nil {
		return "", ""
	}
	var firstPrompt string
	for _, e := range entries {
		if cwd == "" && e.Cwd != "" {
			cwd = e.Cwd
		}
		if e.Type == "summary" && e.Summary != "" {
			return cwd, e.Summary
		}
		if firstPrompt != "" || e.Type != "user" || e.IsSidechain {
			continue
		}
		msg, err := e.DecodeMessage()
		if err != nil {
			continue
		}
		// Only plain string content is a typed prompt; block content here is
		// tool results.
		var s string
		if raw := msg.Content; len(raw) > 0 && raw[0] == '"' {
			s = msg.Text()
		}
		if s != "" {
			firstPrompt = truncateRunes(s, summaryPreviewLen)
		}
	}
	return cwd, firstPrompt
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
