package theme

import (
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"
)

// Color palette: dojo red and ink on a dark mat
var (
	Primary   = lipgloss.Color("#DC2626") // Dojo Red
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F59E0B") // Amber
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgDark    = lipgloss.Color("#0F172A") // Deep Navy
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// beltColors maps curriculum belt colors to terminal colors.
var beltColors = map[string]color.Color{
	"white":  lipgloss.Color("#F8FAFC"),
	"yellow": lipgloss.Color("#FACC15"),
	"orange": lipgloss.Color("#FB923C"),
	"green":  lipgloss.Color("#4ADE80"),
	"blue":   lipgloss.Color("#60A5FA"),
	"purple": lipgloss.Color("#C084FC"),
	"brown":  lipgloss.Color("#A16207"),
	"red":    lipgloss.Color("#EF4444"),
	"black":  lipgloss.Color("#64748B"),
}

// Belt returns the style for a belt's color name, falling back to Text.
func Belt(colorName string) lipgloss.Style {
	c, ok := beltColors[strings.ToLower(strings.TrimSpace(colorName))]
	if !ok {
		c = Text
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Code = lipgloss.NewStyle().
		Foreground(Secondary)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// States
var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)

	Locked = lipgloss.NewStyle().
		Foreground(TextDim)

	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)

// Components
var (
	ProgressFilled = lipgloss.NewStyle().
			Background(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
			Background(Border)
)
