package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

//go:embed banner.txt
var bannerRaw string

// RenderBanner returns the startup art centred for the current terminal.
func RenderBanner() string {
	return renderBanner(bannerRaw, termWidth())
}

// renderBanner centres the block as a whole so the art keeps its shape.
// Widths are measured in cells; the tagline carries accented runes.
func renderBanner(raw string, width int) string {
	raw = strings.TrimRight(raw, "\n")
	if raw == "" {
		return ""
	}
	lines := strings.Split(raw, "\n")

	block := 0
	for _, l := range lines {
		block = max(block, lipgloss.Width(l))
	}
	pad := 0
	if width > block {
		pad = (width - block) / 2
	}
	indent := strings.Repeat(" ", pad)

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(indent)
		b.WriteString(BannerStyle.Render(l))
		b.WriteByte('\n')
	}
	return b.String()
}

// termWidth returns the terminal column count, or 80 when stdout is not a
// terminal.
func termWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}
