package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the watch view.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Cancel  key.Binding // Cancel the selected booking.
	Refresh key.Binding // Reload the full list.
	Quit    key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("↓", "down"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "cancel booking"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k KeyMap) help() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Cancel, k.Refresh, k.Quit}
}
