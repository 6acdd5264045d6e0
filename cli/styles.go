// Terminal styling for CLI output.

package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accentColor  = lipgloss.Color("#f97316")
	successColor = lipgloss.Color("#22c55e")
	errorColor   = lipgloss.Color("#ef4444")
	dimColor     = lipgloss.Color("#5a5a70")

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(successColor)
	dimStyle     = lipgloss.NewStyle().Foreground(dimColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(dimColor)
)

// row renders cells padded to widths.
func row(widths []int, cells ...string) string {
	rendered := make([]string, len(cells))
	for i, cell := range cells {
		style := lipgloss.NewStyle().PaddingRight(2)
		if i < len(widths) {
			style = style.Width(widths[i] + 2)
		}
		rendered[i] = style.Render(cell)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// columnWidths returns the widest cell per column.
func columnWidths(rows [][]string) []int {
	var widths []int
	for _, r := range rows {
		for i, cell := range r {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}
