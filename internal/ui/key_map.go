package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	next   key.Binding
	submit key.Binding
	reload key.Binding
	logout key.Binding
	quit   key.Binding
	abort  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		next:   key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "sign in")),
		reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		logout: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		abort:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down},
		{k.next, k.submit},
		{k.reload, k.logout, k.quit},
	}
}
