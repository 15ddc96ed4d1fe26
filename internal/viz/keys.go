package viz

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Pause key.Binding
	Theme key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Pause: key.NewBinding(key.WithKeys(" ", "space", "p"), key.WithHelp("space", "pause")),
		Theme: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:  key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Theme, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Theme},
		{k.Help, k.Quit},
	}
}
