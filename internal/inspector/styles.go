package inspector

import "github.com/charmbracelet/lipgloss"

// Color palette, carried over from the operator console this TUI is
// patterned on.
var (
	primaryColor = lipgloss.Color("#00D9FF")
	accentColor  = lipgloss.Color("#A855F7")
	successColor = lipgloss.Color("#4ADE80")
	warningColor = lipgloss.Color("#FBBF24")
	errorColor   = lipgloss.Color("#F87171")
	dimColor     = lipgloss.Color("#6B7280")
	surfaceColor = lipgloss.Color("#1E293B")
	borderColor  = lipgloss.Color("#334155")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Background(surfaceColor).
			Padding(0, 2).
			MarginBottom(1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Background(surfaceColor).
			Padding(0, 1)

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E2E8F0")).
			Padding(0, 1)

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Background(surfaceColor).
				Bold(true).
				Padding(0, 1)

	successStatusStyle = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	warningStatusStyle = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	errorStatusStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Background(surfaceColor).
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(dimColor).
				Padding(0, 2).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(borderColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Padding(0, 1)

	viewportStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)
)

// statusStyle colours a status code by its class, mirroring the
// operator console's pending/complete/error palette generalised from
// LLM call states to HTTP status classes.
func statusStyle(code int) lipgloss.Style {
	switch {
	case code == 0:
		return warningStatusStyle
	case code >= 200 && code < 400:
		return successStatusStyle
	default:
		return errorStatusStyle
	}
}
