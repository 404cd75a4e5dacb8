package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	yes     key.Binding
	no      key.Binding
	login   key.Binding
	logout  key.Binding
	create  key.Binding
	edit    key.Binding
	remove  key.Binding
	data    key.Binding
	reload  key.Binding
	next    key.Binding
	prev    key.Binding
	toggle  key.Binding
	save    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:     key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		login:  key.NewBinding(key.WithKeys("l", "enter"), key.WithHelp("l", "sign in")),
		logout: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sign out")),
		create: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new job")),
		edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		remove: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		data:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "main data")),
		reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		toggle: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "toggle active")),
		save:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.create, k.edit, k.remove, k.reload},
		{k.data, k.login, k.logout, k.quit},
	}
}
