package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard keybindings.
type KeyMap struct {
	Down key.Binding
	Up   key.Binding

	Add       key.Binding
	Edit      key.Binding
	EditImage key.Binding
	Mark      key.Binding
	Remove    key.Binding
	Open     key.Binding
	Settings key.Binding

	Show    key.Binding
	Close   key.Binding
	Refresh key.Binding

	Help key.Binding
	Quit key.Binding
}

func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit message"),
		),
		EditImage: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "change image"),
		),
		Mark: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "mark"),
		),
		Remove: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "remove marked or selected"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "view image"),
		),
		Settings: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "settings"),
		),
		Show: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "show notification"),
		),
		Close: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "close notification"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown under the list.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Remove, k.Settings, k.Show, k.Close, k.Help, k.Quit}
}

// FullHelp returns every binding grouped for the expanded help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open},
		{k.Add, k.Edit, k.EditImage, k.Mark, k.Remove},
		{k.Settings, k.Show, k.Close, k.Refresh},
		{k.Help, k.Quit},
	}
}
