package cssync

import "github.com/charmbracelet/lipgloss"

// Terminal styles for consistent CLI output. Lipgloss degrades colors
// automatically based on terminal capabilities.
var (
	// StyleCyan is used for file paths and section headers.
	StyleCyan = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	// StyleRed is used for failed patches.
	StyleRed = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	// StyleGreen is used for successful patches and index summaries.
	StyleGreen = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	// StyleGray is used for selectors and secondary detail.
	StyleGray = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderStyle applies a lipgloss style when colors are enabled and returns
// the text unmodified otherwise.
func RenderStyle(style lipgloss.Style, text string, useColors bool) string {
	if !useColors {
		return text
	}
	return style.Render(text)
}
