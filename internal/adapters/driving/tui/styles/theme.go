// Package styles holds the chat palette and the lipgloss styles built from it.
package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the colour palette of the chat screen.
type Theme struct {
	Accent   lipgloss.Color // questions and the spinner
	Link     lipgloss.Color // chunk identifiers
	Text     lipgloss.Color
	Dim      lipgloss.Color // excerpts, hints and status text
	Number   lipgloss.Color // distance scores
	Alert    lipgloss.Color // errors
	Frame    lipgloss.Color // the input box outline
	StatusBg lipgloss.Color
}

// DefaultTheme returns the dark palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:   lipgloss.Color("#06B6D4"),
		Link:     lipgloss.Color("#7C3AED"),
		Text:     lipgloss.Color("#CDD6F4"),
		Dim:      lipgloss.Color("#6C7086"),
		Number:   lipgloss.Color("#F9E2AF"),
		Alert:    lipgloss.Color("#F38BA8"),
		Frame:    lipgloss.Color("#45475A"),
		StatusBg: lipgloss.Color("#181825"),
	}
}

// Styles are the rendered roles used by the chat components.
type Styles struct {
	theme *Theme

	Title      lipgloss.Style // input label
	Normal     lipgloss.Style
	Muted      lipgloss.Style
	Error      lipgloss.Style
	Spinner    lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style

	Question lipgloss.Style
	Answer   lipgloss.Style
	SourceID lipgloss.Style
	Score    lipgloss.Style
}

// NewStyles builds styles from theme, or from DefaultTheme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	fg := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}

	return &Styles{
		theme: theme,

		Title:   fg(theme.Link).Bold(true),
		Normal:  fg(theme.Text),
		Muted:   fg(theme.Dim),
		Error:   fg(theme.Alert),
		Spinner: fg(theme.Accent),
		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Frame).
			Padding(0, 1),
		StatusBar: fg(theme.Dim).Background(theme.StatusBg).Padding(0, 1),

		Question: fg(theme.Accent).Bold(true),
		Answer:   fg(theme.Text).PaddingLeft(2),
		SourceID: fg(theme.Link).PaddingLeft(2),
		Score:    fg(theme.Number),
	}
}

// DefaultStyles returns NewStyles(DefaultTheme()).
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}
