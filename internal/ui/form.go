package ui

import (
	"strings"

	"github.com/abelbrown/postbook/internal/controller"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	fieldTitle = iota
	fieldDescription
	fieldAuthor
	fieldCount
)

var fieldLabels = [fieldCount]string{"Title", "Description", "Author"}

// form is the three-field editor used by the entry and edit screens.
type form struct {
	inputs [fieldCount]textinput.Model
	focus  int
}

func newForm(d controller.PostDetails) form {
	var f form
	values := [fieldCount]string{d.Title, d.Description, d.Author}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Placeholder = fieldLabels[i]
		ti.CharLimit = 512
		ti.Prompt = "> "
		ti.SetValue(values[i])
		f.inputs[i] = ti
	}
	f.inputs[fieldTitle].Focus()
	return f
}

// details reads the inputs back into a PostDetails with the given id.
func (f form) details(id int64) controller.PostDetails {
	return controller.PostDetails{
		ID:          id,
		Title:       f.inputs[fieldTitle].Value(),
		Description: f.inputs[fieldDescription].Value(),
		Author:      f.inputs[fieldAuthor].Value(),
	}
}

// update moves focus on tab/shift+tab and feeds everything else to the
// focused input.
func (f form) update(msg tea.Msg) (form, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.NextField):
			return f.setFocus((f.focus + 1) % fieldCount), nil
		case key.Matches(km, keys.PrevField):
			return f.setFocus((f.focus + fieldCount - 1) % fieldCount), nil
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f form) setFocus(i int) form {
	f.inputs[f.focus].Blur()
	f.focus = i
	f.inputs[f.focus].Focus()
	return f
}

func (f form) view(title string, valid bool, width int) string {
	var b strings.Builder
	b.WriteString(DetailValue.Render(title))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		label := FormLabel
		if i == f.focus {
			label = FormLabelFocused
		}
		b.WriteString(label.Render(fieldLabels[i]))
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}
	if valid {
		b.WriteString(NoticeSuccess.Render("ctrl+s to save"))
	} else {
		b.WriteString(StatusBarText.Render("Title, description and author are required"))
	}

	cardWidth := width - 4
	if cardWidth < 30 {
		cardWidth = 30
	}
	return Card.Width(cardWidth).Render(b.String())
}
