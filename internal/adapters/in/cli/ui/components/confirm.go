package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ltuffery/Octopus/internal/adapters/in/cli/ui/styles"
)

// ConfirmModel is a Yes/No dialog. No is focused by default.
type ConfirmModel struct {
	question    string
	description string
	yes         bool
	answered    bool
}

// NewConfirm creates a confirmation dialog.
func NewConfirm(question, description string) ConfirmModel {
	return ConfirmModel{question: question, description: description}
}

// Init implements tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "left", "right", "h", "l", "tab", "shift+tab":
		m.yes = !m.yes
	case "y", "Y":
		m.yes, m.answered = true, true
		return m, tea.Quit
	case "n", "N", "esc", "q", "ctrl+c":
		m.yes, m.answered = false, true
		return m, tea.Quit
	case "enter":
		m.answered = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m ConfirmModel) View() string {
	if m.answered {
		return ""
	}
	button := lipgloss.NewStyle().Padding(0, 2).Foreground(styles.ColorText)
	focused := lipgloss.NewStyle().Padding(0, 2).Bold(true).
		Foreground(styles.ColorBg).Background(styles.ColorPrimary)

	yes, no := button.Render("Yes"), focused.Render("No")
	if m.yes {
		yes, no = focused.Render("Yes"), button.Render("No")
	}

	var b strings.Builder
	b.WriteString(styles.Theme.Bold.Render(m.question) + "\n")
	if m.description != "" {
		b.WriteString(styles.Theme.Muted.Render(m.description) + "\n")
	}
	b.WriteString("\n" + lipgloss.JoinHorizontal(lipgloss.Center, yes, "  ", no) + "\n\n")
	b.WriteString(styles.RenderKeyHelp("y/n", "answer") + "  " + styles.RenderKeyHelp("enter", "confirm"))
	return b.String()
}

// Confirmed reports whether the user answered yes.
func (m ConfirmModel) Confirmed() bool {
	return m.answered && m.yes
}

// RunConfirm shows the dialog and blocks until the user answers.
func RunConfirm(question, description string) (bool, error) {
	final, err := tea.NewProgram(NewConfirm(question, description)).Run()
	if err != nil {
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	return final.(ConfirmModel).Confirmed(), nil
}
