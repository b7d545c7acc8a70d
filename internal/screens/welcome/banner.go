package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/hackdojo/hackdojo/internal/ui/theme"
)

const bannerArt = `
 ██╗  ██╗ █████╗  ██████╗██╗  ██╗██████╗  ██████╗      ██╗ ██████╗
 ██║  ██║██╔══██╗██╔════╝██║ ██╔╝██╔══██╗██╔═══██╗     ██║██╔═══██╗
 ███████║███████║██║     █████╔╝ ██║  ██║██║   ██║     ██║██║   ██║
 ██╔══██║██╔══██║██║     ██╔═██╗ ██║  ██║██║   ██║██   ██║██║   ██║
 ██║  ██║██║  ██║╚██████╗██║  ██╗██████╔╝╚██████╔╝╚█████╔╝╚██████╔╝
 ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═════╝  ╚═════╝  ╚════╝  ╚═════╝`

const bannerCompact = "H A C K D O J O"

// RenderBanner returns the HackDojo banner styled in the primary color.
// Uses a compact fallback for terminals narrower than 70 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 70 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
