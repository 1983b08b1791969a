// Package prompt asks the user for the completion judgements that cannot be
// read from a transcript.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user aborts the prompt.
var ErrCancelled = errors.New("prompt cancelled")

// Answers are the user's judgements of a session.
type Answers struct {
	FirstCompleted bool
	// CompletionRate is 0-100.
	CompletionRate float64
}

// ParseYesNo accepts y/yes/n/no and their Chinese equivalents.
func ParseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "是":
		return true, nil
	case "n", "no", "false", "否":
		return false, nil
	default:
		return false, fmt.Errorf("answer y or n, not %q", s)
	}
}

// ParseRate accepts a percentage between 0 and 100, with or without a
// trailing %. Empty means 100.
func ParseRate(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return 100, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("completion rate must be between 0 and 100, got %v", v)
	}
	return v, nil
}

type step int

const (
	stepFirstCompleted step = iota
	stepRate
	stepDone
)

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef5350"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

type model struct {
	step      step
	input     textinput.Model
	answers   Answers
	err       string
	cancelled bool
}

func newModel() model {
	ti := textinput.New()
	ti.Placeholder = "y/n"
	ti.CharLimit = 8
	ti.Width = 12
	ti.Focus()
	return model{input: ti}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) submit() (tea.Model, tea.Cmd) {
	value := m.input.Value()
	switch m.step {
	case stepFirstCompleted:
		ok, err := ParseYesNo(value)
		if err != nil {
			m.err = err.Error()
			m.input.Reset()
			return m, nil
		}
		m.answers.FirstCompleted = ok
		m.step = stepRate
		m.input.Reset()
		m.input.Placeholder = "100"
	case stepRate:
		rate, err := ParseRate(value)
		if err != nil {
			m.err = err.Error()
			m.input.Reset()
			return m, nil
		}
		m.answers.CompletionRate = rate
		m.step = stepDone
		return m, tea.Quit
	}
	m.err = ""
	return m, nil
}

func (m model) View() string {
	if m.step == stepDone || m.cancelled {
		return ""
	}
	var q string
	switch m.step {
	case stepFirstCompleted:
		q = "Was the first request completed without a follow-up fix? (y/n)"
	case stepRate:
		q = "Final completion rate, 0-100 " + hintStyle.Render("(enter for 100)")
	}
	var sb strings.Builder
	sb.WriteString(questionStyle.Render(q) + "\n")
	sb.WriteString(m.input.View() + "\n")
	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err) + "\n")
	}
	sb.WriteString(hintStyle.Render("esc to cancel") + "\n")
	return sb.String()
}

// Ask runs the interactive prompt on the given terminal streams.
func Ask(in io.Reader, out io.Writer) (Answers, error) {
	p := tea.NewProgram(newModel(), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return Answers{}, fmt.Errorf("running prompt: %w", err)
	}
	m := final.(model)
	if m.cancelled || m.step != stepDone {
		return Answers{}, ErrCancelled
	}
	return m.answers, nil
}
