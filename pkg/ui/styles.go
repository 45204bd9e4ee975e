package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Tournament palette.
const (
	ColorPrimary     = lipgloss.Color("#008751")
	ColorPrimaryDark = lipgloss.Color("#006B3F")
	ColorSecondary   = lipgloss.Color("#FFD700")
	ColorError       = lipgloss.Color("#D32F2F")
	ColorSuccess     = lipgloss.Color("#2E7D32")
	ColorWarning     = lipgloss.Color("#F57C00")
	ColorMuted       = lipgloss.Color("245")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(ColorPrimary).
			Padding(0, 1)
	headerActionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(ColorPrimaryDark).
				Padding(0, 1)

	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimaryDark)
	assistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	errorLabelStyle     = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	timestampStyle      = lipgloss.NewStyle().Foreground(ColorMuted)
	metaStyle           = lipgloss.NewStyle().Foreground(ColorMuted)
	suggestionStyle     = lipgloss.NewStyle().Foreground(ColorPrimary)
	loadingStyle        = lipgloss.NewStyle().Italic(true).Foreground(ColorPrimary)
	statusStyle         = lipgloss.NewStyle().Foreground(ColorMuted)

	spinnerStyle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
)

// ConfidenceColor is success above 0.7, warning above 0.4 and error otherwise.
func ConfidenceColor(c float64) lipgloss.Color {
	switch {
	case c > 0.7:
		return ColorSuccess
	case c > 0.4:
		return ColorWarning
	default:
		return ColorError
	}
}
