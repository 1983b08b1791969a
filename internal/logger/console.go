package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var levelStyles = map[Level]lipgloss.Style{
	LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("#66bb6a")),
	LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#fff59d")),
	LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("#ef5350")).Bold(true),
}

// ConsoleLogger writes human-readable log lines, stderr by default.
type ConsoleLogger struct {
	level      Level
	color      bool
	baseFields []Field
	mu         *sync.Mutex
	w          io.Writer
}

// NewConsole creates a console logger writing to stderr.
func NewConsole(level Level, color bool) *ConsoleLogger {
	return NewConsoleWriter(os.Stderr, level, color)
}

// NewConsoleWriter creates a console logger writing to w.
func NewConsoleWriter(w io.Writer, level Level, color bool) *ConsoleLogger {
	return &ConsoleLogger{level: level, color: color, mu: &sync.Mutex{}, w: w}
}

func (c *ConsoleLogger) Debug(msg string, fields ...Field) { c.log(LevelDebug, msg, fields) }
func (c *ConsoleLogger) Info(msg string, fields ...Field)  { c.log(LevelInfo, msg, fields) }
func (c *ConsoleLogger) Warn(msg string, fields ...Field)  { c.log(LevelWarn, msg, fields) }
func (c *ConsoleLogger) Error(msg string, fields ...Field) { c.log(LevelError, msg, fields) }

func (c *ConsoleLogger) WithFields(fields ...Field) Logger {
	return &ConsoleLogger{level: c.level, color: c.color, baseFields: merge(c.baseFields, fields), mu: c.mu, w: c.w}
}

func (c *ConsoleLogger) Close() error { return nil }

func (c *ConsoleLogger) log(level Level, msg string, fields []Field) {
	if level < c.level {
		return
	}
	ts := time.Now().Format("15:04:05")
	line := fmt.Sprintf("%s %s %s%s\n", ts, c.levelString(level), msg, formatFields(merge(c.baseFields, fields)))

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.w, line)
}

func (c *ConsoleLogger) levelString(level Level) string {
	label := fmt.Sprintf("[%-5s]", level.String())
	if !c.color {
		return label
	}
	return levelStyles[level].Render(label)
}
