package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Intake   key.Binding
	Labs     key.Binding
	Review   key.Binding
	Final    key.Binding
	Reset    key.Binding
	Download key.Binding
	Retry    key.Binding
	Scroll   key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Intake:   key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "new report")),
		Labs:     key.NewBinding(key.WithKeys("f2"), key.WithHelp("f2", "labs")),
		Review:   key.NewBinding(key.WithKeys("f3"), key.WithHelp("f3", "review")),
		Final:    key.NewBinding(key.WithKeys("f4"), key.WithHelp("f4", "download")),
		Reset:    key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "start over")),
		Download: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download pdf")),
		Retry:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload report")),
		Scroll:   key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll report")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Intake, k.Labs, k.Review, k.Final, k.Reset, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Intake, k.Labs, k.Review, k.Final},
		{k.Download, k.Retry, k.Scroll},
		{k.Reset, k.Quit},
	}
}

