package monitor

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles contains styling for match output
type Styles struct {
	Header     lipgloss.Style
	Round      lipgloss.Style
	Attribute  lipgloss.Style
	Winner     lipgloss.Style
	Tie        lipgloss.Style
	Eliminated lipgloss.Style
	Info       lipgloss.Style
	Separator  lipgloss.Style
}

// NewStyles creates styles rendered for w. Colour is disabled when noColor
// is set or w is not a terminal.
func NewStyles(w io.Writer, noColor bool) *Styles {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Styles{
		Header: r.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true),
		Round: r.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true),
		Attribute: r.NewStyle().
			Foreground(lipgloss.Color("#74B9FF")),
		Winner: r.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true),
		Tie: r.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true),
		Eliminated: r.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true),
		Info: r.NewStyle().
			Foreground(lipgloss.Color("#626262")),
		Separator: r.NewStyle().
			Foreground(lipgloss.Color("#626262")),
	}
}
