package components

import (
	"charm.land/lipgloss/v2"

	"github.com/hackdojo/hackdojo/internal/ui/theme"
)

// ContentWidth returns the inner width screens lay their sections out in.
func ContentWidth(frameWidth int) int {
	return max(20, min(frameWidth-6, 96))
}

// Card wraps content in a rounded-border card with an optional title.
func Card(title, content string, width int) string {
	if title != "" {
		content = theme.Title.Render(title) + "\n" + content
	}
	return theme.Card.Width(width).Render(content)
}

// ErrorLine renders a one-line error message.
func ErrorLine(msg string) string {
	return lipgloss.NewStyle().Foreground(theme.Error).Render("✗ " + msg)
}

// SuccessLine renders a one-line success message.
func SuccessLine(msg string) string {
	return lipgloss.NewStyle().Foreground(theme.Success).Render("✓ " + msg)
}
