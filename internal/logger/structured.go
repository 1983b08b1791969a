package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// sink is the writer shared by a StructuredLogger and its WithFields
// children. A closed sink drops entries.
type sink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// StructuredLogger writes one JSON object per entry with "time", "level"
// and "event" keys followed by the fields.
type StructuredLogger struct {
	level  Level
	fields []Field
	out    *sink
}

// NewStructured appends JSON lines to path, creating its directory.
func NewStructured(path string, level Level) (*StructuredLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &StructuredLogger{level: level, out: &sink{w: f, closer: f}}, nil
}

// NewStructuredWriter writes JSON lines to w.
func NewStructuredWriter(w io.Writer, level Level) *StructuredLogger {
	return &StructuredLogger{level: level, out: &sink{w: w}}
}

func (s *StructuredLogger) Debug(msg string, fields ...Field) { s.write(LevelDebug, msg, fields) }
func (s *StructuredLogger) Info(msg string, fields ...Field)  { s.write(LevelInfo, msg, fields) }
func (s *StructuredLogger) Warn(msg string, fields ...Field)  { s.write(LevelWarn, msg, fields) }
func (s *StructuredLogger) Error(msg string, fields ...Field) { s.write(LevelError, msg, fields) }

func (s *StructuredLogger) WithFields(fields ...Field) Logger {
	return &StructuredLogger{level: s.level, fields: merge(s.fields, fields), out: s.out}
}

func (s *StructuredLogger) Close() error {
	s.out.mu.Lock()
	defer s.out.mu.Unlock()
	c := s.out.closer
	s.out.w, s.out.closer = nil, nil
	if c == nil {
		return nil
	}
	return c.Close()
}

func (s *StructuredLogger) write(level Level, event string, fields []Field) {
	if level < s.level {
		return
	}
	entry := map[string]any{
		"time":  time.Now().UTC().Format(time.RFC3339Nano),
		"level": level.String(),
		"event": event,
	}
	for _, f := range merge(s.fields, fields) {
		if _, reserved := entry[f.Key]; reserved {
			continue
		}
		entry[f.Key] = f.Value
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}

	s.out.mu.Lock()
	defer s.out.mu.Unlock()
	if s.out.w != nil {
		_, _ = s.out.w.Write(append(line, '\n'))
	}
}
