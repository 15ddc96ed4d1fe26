package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the palette of the live view.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
}

var (
	ThemeFrost = Theme{
		Name:      "frost",
		Primary:   lipgloss.Color("#e8f4ff"),
		Secondary: lipgloss.Color("#7fb8e6"),
		Accent:    lipgloss.Color("#b4e1ff"),
		Text:      lipgloss.Color("#dce8f2"),
		Muted:     lipgloss.Color("#5a6b7c"),
		Success:   lipgloss.Color("#8fe3c0"),
		Warning:   lipgloss.Color("#ffd27f"),
		Error:     lipgloss.Color("#ff6b6b"),
	}

	ThemeAurora = Theme{
		Name:      "aurora",
		Primary:   lipgloss.Color("#7cffcb"),
		Secondary: lipgloss.Color("#b07cff"),
		Accent:    lipgloss.Color("#ff7cd9"),
		Text:      lipgloss.Color("#f0f0ff"),
		Muted:     lipgloss.Color("#5c5a80"),
		Success:   lipgloss.Color("#7cffcb"),
		Warning:   lipgloss.Color("#ffe07c"),
		Error:     lipgloss.Color("#ff5c7c"),
	}

	ThemeGlacier = Theme{
		Name:      "glacier",
		Primary:   lipgloss.Color("#0077be"),
		Secondary: lipgloss.Color("#00a8cc"),
		Accent:    lipgloss.Color("#9be7ff"),
		Text:      lipgloss.Color("#e0f0ff"),
		Muted:     lipgloss.Color("#4488aa"),
		Success:   lipgloss.Color("#00ff88"),
		Warning:   lipgloss.Color("#ffcc00"),
		Error:     lipgloss.Color("#ff4444"),
	}

	ThemeDune = Theme{
		Name:      "dune",
		Primary:   lipgloss.Color("#e0b060"),
		Secondary: lipgloss.Color("#c08040"),
		Accent:    lipgloss.Color("#fff0c0"),
		Text:      lipgloss.Color("#fff5e6"),
		Muted:     lipgloss.Color("#806850"),
		Success:   lipgloss.Color("#a0d070"),
		Warning:   lipgloss.Color("#ffc048"),
		Error:     lipgloss.Color("#ff4757"),
	}

	ThemeMono = Theme{
		Name:      "mono",
		Primary:   lipgloss.Color("#ffffff"),
		Secondary: lipgloss.Color("#cccccc"),
		Accent:    lipgloss.Color("#aaaaaa"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#777777"),
		Success:   lipgloss.Color("#dddddd"),
		Warning:   lipgloss.Color("#bbbbbb"),
		Error:     lipgloss.Color("#ff0000"),
	}

	Themes = []Theme{
		ThemeFrost,
		ThemeAurora,
		ThemeGlacier,
		ThemeDune,
		ThemeMono,
	}
)

// GetTheme returns a theme by name, falling back to frost.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeFrost
}

// NextTheme returns the theme after name in Themes, wrapping around.
func NextTheme(name string) Theme {
	for i, t := range Themes {
		if t.Name == name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// themeForScheme picks the terminal theme matching a render color scheme.
func themeForScheme(scheme string) Theme {
	switch scheme {
	case "sand":
		return ThemeDune
	case "water":
		return ThemeGlacier
	case "bright":
		return ThemeAurora
	case "dark":
		return ThemeMono
	}
	return ThemeFrost
}
