// Package ui provides the visual styling for the examen terminal interface,
// with light/dark mode support.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light mode colors
	LightForeground = lipgloss.Color("#1f2430")
	LightPrimary    = lipgloss.Color("#3b5bdb")
	LightAccent     = lipgloss.Color("#b8860b") // category labels
	LightMuted      = lipgloss.Color("#8a8f98")
	LightBorder     = lipgloss.Color("#d5d9e0")

	// Dark mode colors
	DarkForeground = lipgloss.Color("#e8e8e8")
	DarkPrimary    = lipgloss.Color("#7aa2f7")
	DarkAccent     = lipgloss.Color("#ffc107") // amber category labels
	DarkMuted      = lipgloss.Color("#5c6370")
	DarkBorder     = lipgloss.Color("#3b4261")

	// Semantic colors (same in both modes)
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8bc34a")
	Warning     = lipgloss.Color("#ffc107")

	// Chart colors for the progress view
	ChartSins    = lipgloss.Color("#e57373")
	ChartVirtues = lipgloss.Color("#4db6ac")
)

// Theme holds the current color scheme.
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// ThemeByName resolves "light"/"dark", honoring EXAMEN_THEME as a fallback.
func ThemeByName(name string) Theme {
	if name == "" {
		name = os.Getenv("EXAMEN_THEME")
	}
	if name == "light" {
		return LightTheme()
	}
	return DarkTheme()
}

// Styles bundles the lipgloss styles used by the chat view.
type Styles struct {
	Theme Theme

	Bold       lipgloss.Style
	Muted      lipgloss.Style
	UserLabel  lipgloss.Style
	UserText   lipgloss.Style
	Category   lipgloss.Style
	Assistant  lipgloss.Style
	ErrorText  lipgloss.Style
	InputFrame lipgloss.Style
	Popup      lipgloss.Style
	FooterHint lipgloss.Style
}

// NewStyles builds the style set for a theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Bold:  lipgloss.NewStyle().Bold(true).Foreground(theme.Foreground),
		Muted: lipgloss.NewStyle().Foreground(theme.Muted),
		UserLabel: lipgloss.NewStyle().Bold(true).
			Foreground(theme.Primary).MarginTop(1),
		UserText: lipgloss.NewStyle().Foreground(theme.Foreground),
		Category: lipgloss.NewStyle().Bold(true).
			Foreground(theme.Accent),
		Assistant: lipgloss.NewStyle().Bold(true).
			Foreground(theme.Accent).MarginTop(1),
		ErrorText: lipgloss.NewStyle().Foreground(Destructive),
		InputFrame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
		Popup: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(theme.Accent).
			Padding(1, 3),
		FooterHint: lipgloss.NewStyle().Foreground(theme.Muted),
	}
}

// Bar renders a horizontal chart bar of the given width and color.
func Bar(width int, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	s := make([]rune, width)
	for i := range s {
		s[i] = '█'
	}
	return lipgloss.NewStyle().Foreground(color).Render(string(s))
}
