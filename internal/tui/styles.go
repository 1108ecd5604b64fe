package tui

import "github.com/charmbracelet/lipgloss"

// Color palette - keeping it minimal and accessible.
var (
	ColorPrimary   = lipgloss.Color("39")  // Blue
	ColorSecondary = lipgloss.Color("245") // Gray
	ColorSuccess   = lipgloss.Color("34")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorError     = lipgloss.Color("196") // Red
	ColorMuted     = lipgloss.Color("240") // Dark gray
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSecondary).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)
)

// Symbols for visual feedback.
const (
	SymbolCheck  = "✓"
	SymbolCross  = "✗"
	SymbolBullet = "•"
)

// Palette applies styles only when color output is enabled, so the same
// rendering code produces plain text for pipes and log files.
type Palette struct {
	Color bool
}

func (p Palette) render(style lipgloss.Style, s string) string {
	if !p.Color {
		return s
	}
	return style.Render(s)
}

func (p Palette) Title(s string) string   { return p.render(TitleStyle, s) }
func (p Palette) Label(s string) string   { return p.render(LabelStyle, s) }
func (p Palette) Muted(s string) string   { return p.render(MutedStyle, s) }
func (p Palette) Success(s string) string { return p.render(SuccessStyle, s) }
func (p Palette) Error(s string) string   { return p.render(ErrorStyle, s) }
func (p Palette) Warning(s string) string { return p.render(WarningStyle, s) }

// Box frames s with a rounded border when color is enabled.
func (p Palette) Box(s string) string {
	return p.render(BoxStyle, s)
}
