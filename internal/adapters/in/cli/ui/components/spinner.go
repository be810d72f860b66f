// Package components provides reusable terminal UI components for the CLI.
package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ltuffery/Octopus/internal/adapters/in/cli/ui/styles"
)

type doneMsg struct{ err error }

// SpinnerModel shows a spinner while a task runs.
type SpinnerModel struct {
	spinner spinner.Model
	message string
	task    func() error
	err     error
	done    bool
}

// NewSpinner creates a spinner model that runs task when started.
func NewSpinner(message string, task func() error) SpinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.ColorPrimary)
	return SpinnerModel{spinner: s, message: message, task: task}
}

// Init implements tea.Model.
func (m SpinnerModel) Init() tea.Cmd {
	task := m.task
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return doneMsg{err: task()}
	})
}

// Update implements tea.Model.
func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done, m.err = true, msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		// The task keeps running server side; only the wait is abandoned.
		if msg.String() == "ctrl+c" {
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m SpinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + styles.Theme.Body.Render(m.message)
}

// RunWithSpinner runs task while showing message. When interactive is false
// the task runs without any terminal UI.
func RunWithSpinner(interactive bool, message string, task func() error) error {
	if !interactive {
		return task()
	}
	final, err := tea.NewProgram(NewSpinner(message, task)).Run()
	if err != nil {
		return err
	}
	return final.(SpinnerModel).err
}
