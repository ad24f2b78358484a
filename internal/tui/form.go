package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	blurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	noStyle      = lipgloss.NewStyle()
	helpStyle    = blurredStyle

	focusedButton = func(label string) string { return focusedStyle.Render("[ " + label + " ]") }
	blurredButton = func(label string) string { return fmt.Sprintf("[ %s ]", blurredStyle.Render(label)) }
)

type fieldSpec struct {
	label       string
	placeholder string
	secret      bool
	charLimit   int
}

// form is a column of text inputs followed by a submit button. Focus
// index len(inputs) is the button.
type form struct {
	labels []string
	inputs []textinput.Model
	focus  int
	button string
}

func newInput(placeholder string, limit int) textinput.Model {
	t := textinput.New()
	t.Cursor.Style = focusedStyle
	// A static cursor keeps the model free of blink timers.
	t.Cursor.SetMode(cursor.CursorStatic)
	t.Placeholder = placeholder
	t.CharLimit = limit
	t.Prompt = "> "
	return t
}

func newForm(button string, specs ...fieldSpec) *form {
	f := &form{button: button}
	for _, s := range specs {
		limit := s.charLimit
		if limit == 0 {
			limit = 256
		}
		t := newInput(s.placeholder, limit)
		if s.secret {
			t.EchoMode = textinput.EchoPassword
			t.EchoCharacter = '•'
		}
		f.labels = append(f.labels, s.label)
		f.inputs = append(f.inputs, t)
	}
	f.setFocus(0)
	return f
}

// setFocus moves focus to i, wrapping around the button.
func (f *form) setFocus(i int) {
	n := len(f.inputs) + 1
	f.focus = ((i % n) + n) % n
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
			f.inputs[j].PromptStyle = focusedStyle
			f.inputs[j].TextStyle = focusedStyle
			continue
		}
		f.inputs[j].Blur()
		f.inputs[j].PromptStyle = noStyle
		f.inputs[j].TextStyle = noStyle
	}
}

func (f *form) next() { f.setFocus(f.focus + 1) }
func (f *form) prev() { f.setFocus(f.focus - 1) }

// onLast reports whether enter should submit rather than advance.
func (f *form) onLast() bool {
	return f.focus >= len(f.inputs)-1
}

func (f *form) value(i int) string {
	return f.inputs[i].Value()
}

func (f *form) reset() {
	for i := range f.inputs {
		f.inputs[i].Reset()
	}
	f.setFocus(0)
}

// update forwards msg to the inputs; only the focused one reacts.
func (f *form) update(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(f.inputs))
	for i := range f.inputs {
		f.inputs[i], cmds[i] = f.inputs[i].Update(msg)
	}
	return tea.Batch(cmds...)
}

func (f *form) view(busy bool) string {
	var b strings.Builder
	for i, in := range f.inputs {
		fmt.Fprintf(&b, " %s\n %s\n\n", blurredStyle.Render(f.labels[i]+":"), in.View())
	}
	label := f.button
	if busy {
		label = "Please wait…"
	}
	if f.focus == len(f.inputs) {
		b.WriteString(" " + focusedButton(label) + "\n")
	} else {
		b.WriteString(" " + blurredButton(label) + "\n")
	}
	return b.String()
}
