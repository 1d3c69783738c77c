package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding. Screens pick the subset they show in help.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Home      key.Binding
	End       key.Binding
	Open      key.Binding
	New       key.Binding
	Edit      key.Binding
	Delete    key.Binding
	Decrement key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
	Back      key.Binding
	Save      key.Binding
	NextField key.Binding
	PrevField key.Binding
	Debug     key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Home:      key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
	End:       key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
	Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	New:       key.NewBinding(key.WithKeys("n", "+"), key.WithHelp("n", "new post")),
	Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Decrement: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "decrement")),
	Confirm:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
	Cancel:    key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
	NextField: key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
	PrevField: key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
	Debug:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "debug")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) homeHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.New, k.Debug, k.Quit}
}

func (k keyMap) detailsHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Delete, k.Decrement, k.Back}
}

func (k keyMap) confirmHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

func (k keyMap) formHelp() []key.Binding {
	return []key.Binding{k.NextField, k.PrevField, k.Save, k.Back}
}
