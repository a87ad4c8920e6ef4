package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap is the list screen's bindings. It implements help.KeyMap.
type keyMap struct {
	Search      key.Binding
	Escape      key.Binding
	Enter       key.Binding
	Up          key.Binding
	Down        key.Binding
	NextPage    key.Binding
	PrevPage    key.Binding
	MorePerPage key.Binding
	LessPerPage key.Binding
	SortColumn  key.Binding
	SortFlip    key.Binding
	Clear       key.Binding
	Refresh     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

var keys = keyMap{
	Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Escape:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear search")),
	Enter:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply search")),
	Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
	NextPage:    key.NewBinding(key.WithKeys("n", "right", "pgdown"), key.WithHelp("n/→", "next page")),
	PrevPage:    key.NewBinding(key.WithKeys("p", "left", "pgup"), key.WithHelp("p/←", "prev page")),
	MorePerPage: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more per page")),
	LessPerPage: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "fewer per page")),
	SortColumn:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort column")),
	SortFlip:    key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "flip sort")),
	Clear:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
	Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.NextPage, k.PrevPage, k.SortColumn, k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextPage, k.PrevPage},
		{k.Search, k.Enter, k.Escape, k.Clear},
		{k.SortColumn, k.SortFlip, k.MorePerPage, k.LessPerPage},
		{k.Refresh, k.Help, k.Quit},
	}
}
