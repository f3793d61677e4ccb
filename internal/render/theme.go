package render

import "github.com/charmbracelet/lipgloss"

// Theme holds the lipgloss styles used for terminal output.
type Theme struct {
	Name string

	// Tables
	Border lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Title  lipgloss.Style

	// JSON / YAML highlighting
	Key         lipgloss.Style
	String      lipgloss.Style
	Number      lipgloss.Style
	Constant    lipgloss.Style
	Punctuation lipgloss.Style
	Comment     lipgloss.Style

	// General
	SuccessText lipgloss.Style
	MutedText   lipgloss.Style
}

// ---------------------------------------------------------------------------
// Theme definitions
// ---------------------------------------------------------------------------

// newDefaultTheme builds the Default dark theme.
func newDefaultTheme() *Theme {
	return &Theme{
		Name: "default",

		Border: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3C3C3C")),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#569CD6")).
			PaddingLeft(1).
			PaddingRight(1),
		Cell: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D4D4D4")).
			PaddingLeft(1).
			PaddingRight(1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#DCDCAA")),

		Key: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CDCFE")),
		String: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CE9178")),
		Number: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B5CEA8")),
		Constant: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#569CD6")),
		Punctuation: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D4D4D4")),
		Comment: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#6A9955")),

		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6A9955")),
		MutedText: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#808080")),
	}
}

// newLightTheme builds the Light theme suitable for light terminal backgrounds.
func newLightTheme() *Theme {
	return &Theme{
		Name: "light",

		Border: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D4D4D4")),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0451A5")).
			PaddingLeft(1).
			PaddingRight(1),
		Cell: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1E1E1E")).
			PaddingLeft(1).
			PaddingRight(1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#795E26")),

		Key: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#001080")),
		String: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A31515")),
		Number: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#098658")),
		Constant: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0000FF")),
		Punctuation: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1E1E1E")),
		Comment: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#008000")),

		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#16825D")),
		MutedText: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#A0A0A0")),
	}
}

// newMonokaiTheme builds a Monokai-inspired dark theme.
func newMonokaiTheme() *Theme {
	return &Theme{
		Name: "monokai",

		Border: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#49483E")),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F92672")).
			PaddingLeft(1).
			PaddingRight(1),
		Cell: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2")).
			PaddingLeft(1).
			PaddingRight(1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E6DB74")),

		Key: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#66D9EF")),
		String: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E6DB74")),
		Number: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AE81FF")),
		Constant: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F92672")),
		Punctuation: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2")),
		Comment: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#75715E")),

		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E22E")),
		MutedText: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#75715E")),
	}
}

// ---------------------------------------------------------------------------
// Registry and accessors
// ---------------------------------------------------------------------------

// Themes maps theme names to their Theme definitions.
var Themes = map[string]*Theme{
	"default": newDefaultTheme(),
	"light":   newLightTheme(),
	"monokai": newMonokaiTheme(),
}

// DefaultTheme returns the default dark theme.
func DefaultTheme() *Theme {
	return Themes["default"]
}

// GetTheme returns the theme identified by name. If no theme with that name
// exists it falls back to the default theme.
func GetTheme(name string) *Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return DefaultTheme()
}

// plainTheme has no colours or attributes; it keeps the cell padding so
// uncoloured tables line up the same way.
var plainTheme = &Theme{
	Name:   "plain",
	Header: lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1),
	Cell:   lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1),
}
