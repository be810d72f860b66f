package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ltuffery/Octopus/internal/adapters/in/cli/ui/styles"
)

// Tone is the visual category of a status word.
type Tone int

const (
	ToneInfo Tone = iota
	ToneSuccess
	ToneError
	ToneWarning
	TonePending
)

// ToneOf maps site, execution and unit status words to a tone.
func ToneOf(status string) Tone {
	switch strings.ToLower(status) {
	case "running", "success", "healthy", "enabled", "active":
		return ToneSuccess
	case "error", "failed", "unhealthy":
		return ToneError
	case "stopped", "stopping", "disabled":
		return ToneWarning
	case "pending", "building", "starting":
		return TonePending
	default:
		return ToneInfo
	}
}

func (t Tone) badge() lipgloss.Style {
	switch t {
	case ToneSuccess:
		return styles.Theme.BadgeSuccess
	case ToneError:
		return styles.Theme.BadgeError
	case ToneWarning:
		return styles.Theme.BadgeWarning
	case TonePending:
		return styles.Theme.BadgePending
	default:
		return styles.Theme.BadgeInfo
	}
}

func (t Tone) text() (lipgloss.Style, string) {
	switch t {
	case ToneSuccess:
		return styles.Theme.Success, styles.IconSuccess
	case ToneError:
		return styles.Theme.Error, styles.IconError
	case ToneWarning:
		return styles.Theme.Warning, styles.IconWarning
	case TonePending:
		return styles.Theme.Muted, styles.IconPending
	default:
		return styles.Theme.Info, styles.IconInfo
	}
}

// StatusBadge renders a status word as a badge with background.
func StatusBadge(status string) string {
	if status == "" {
		return styles.Theme.Muted.Render("-")
	}
	return ToneOf(status).badge().Render(status)
}

// StatusIndicator renders a status word with its icon.
func StatusIndicator(status string) string {
	style, icon := ToneOf(status).text()
	return style.Render(icon + " " + status)
}
