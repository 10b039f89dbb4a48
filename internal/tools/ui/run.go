// Package ui renders interactive progress for the operator tools.
package ui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ActionTimeout bounds a single tool action started through Run.
const ActionTimeout = 2 * time.Minute

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	detailStyle = lipgloss.NewStyle().PaddingLeft(2)
)

type doneMsg struct {
	details []string
	err     error
}

type tickMsg time.Time

type model struct {
	title   string
	action  func(context.Context) ([]string, error)
	started time.Time
	elapsed time.Duration
	details []string
	err     error
	done    bool
}

func (m model) Init() tea.Cmd {
	run := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ActionTimeout)
		defer cancel()
		details, err := m.action(ctx)
		return doneMsg{details: details, err: err}
	}
	return tea.Batch(run, tick())
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = context.Canceled
			m.done = true
			return m, tea.Quit
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.elapsed = time.Time(msg).Sub(m.started)
		return m, tick()
	case doneMsg:
		m.details = msg.details
		m.err = msg.err
		m.done = true
		m.elapsed = time.Since(m.started)
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	return render(m.title, m.done, m.elapsed, m.details, m.err)
}

func render(title string, done bool, elapsed time.Duration, details []string, err error) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	took := mutedStyle.Render("(" + elapsed.Round(10*time.Millisecond).String() + ")")
	switch {
	case !done:
		b.WriteString("running " + took + "\n")
		return b.String()
	case err != nil:
		b.WriteString(failStyle.Render("FAILED") + " " + took + ": " + err.Error() + "\n")
	default:
		b.WriteString(okStyle.Render("OK") + " " + took + "\n")
	}
	for _, d := range details {
		b.WriteString(detailStyle.Render("- "+d) + "\n")
	}
	return b.String()
}

// Run executes action under a bubbletea program and returns its details.
// Interrupting with ctrl+c reports context.Canceled.
func Run(title string, action func(context.Context) ([]string, error)) ([]string, error) {
	final, err := tea.NewProgram(model{title: title, action: action, started: time.Now()}).Run()
	if err != nil {
		return nil, err
	}
	res := final.(model)
	return res.details, res.err
}
