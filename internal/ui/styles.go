// Package ui implements the interactive storefront chat interface.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light mode colors
	lightForeground = lipgloss.Color("#1c2431")
	lightPrimary    = lipgloss.Color("#1c2431")
	lightAccent     = lipgloss.Color("#e67e22")
	lightSecondary  = lipgloss.Color("#e1e4e8")
	lightMuted      = lipgloss.Color("#9aa3ad")
	lightBorder     = lipgloss.Color("#dce0e5")
	lightCard       = lipgloss.Color("#ffffff")

	// Dark mode colors
	darkForeground = lipgloss.Color("#f2f2f2")
	darkPrimary    = lipgloss.Color("#e67e22")
	darkAccent     = lipgloss.Color("#f39c12")
	darkSecondary  = lipgloss.Color("#1e2a3d")
	darkMuted      = lipgloss.Color("#5c6a7d")
	darkBorder     = lipgloss.Color("#2a3850")
	darkCard       = lipgloss.Color("#1a2536")

	// Semantic colors, same in both modes
	colorError   = lipgloss.Color("#e53935")
	colorSuccess = lipgloss.Color("#43a047")
	colorWarning = lipgloss.Color("#FFC107")
)

// Theme holds the current color scheme.
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Foreground: lightForeground,
		Primary:    lightPrimary,
		Accent:     lightAccent,
		Secondary:  lightSecondary,
		Muted:      lightMuted,
		Border:     lightBorder,
		Card:       lightCard,
		IsDark:     false,
	}
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Foreground: darkForeground,
		Primary:    darkPrimary,
		Accent:     darkAccent,
		Secondary:  darkSecondary,
		Muted:      darkMuted,
		Border:     darkBorder,
		Card:       darkCard,
		IsDark:     true,
	}
}

// DetectTheme picks a theme from terminal hints, defaulting to light.
func DetectTheme() Theme {
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		// Format is "foreground;background"; low ANSI indices mean a
		// dark background.
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
			}
		}
	}

	if os.Getenv("VOICECART_DARK_MODE") == "1" {
		return DarkTheme()
	}

	return LightTheme()
}

// Styles holds all the styled components.
type Styles struct {
	Theme Theme

	Header  lipgloss.Style
	Content lipgloss.Style

	Title     lipgloss.Style
	Muted     lipgloss.Style
	Bold      lipgloss.Style
	Prompt    lipgloss.Style
	UserInput lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style

	Spinner lipgloss.Style
	Divider lipgloss.Style
	Badge   lipgloss.Style
}

// NewStyles creates a Styles instance with the given theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Prompt: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		UserInput: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Success: lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),
	}
}

// DefaultStyles returns styles with the auto-detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// RenderDivider returns a horizontal divider of the given width.
func (s Styles) RenderDivider(width int) string {
	if width <= 0 {
		width = 80
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
