package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/credawallet/internal/flow"
)

// form collects the fields of one flow. It holds no state the flow does not
// also hold once apply has run.
type form struct {
	flow       *flow.Flow
	fields     []string
	inputs     []textinput.Model
	focus      int
	submitting bool
	fieldErrs  map[string]string
	failure    string
}

func newForm(f *flow.Flow) *form {
	fm := &form{flow: f, fieldErrs: map[string]string{}}
	if f.Kind() == flow.KindSend {
		fm.add(flow.FieldTarget, "To: ", "0x recipient address", 64)
	}
	fm.add(flow.FieldAmount, "Amount: ", "0.00", 32)
	return fm
}

func (fm *form) add(field, prompt, placeholder string, limit int) {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.PromptStyle = lipgloss.NewStyle().Foreground(accent)
	in.CharLimit = limit
	in.Width = 48
	fm.fields = append(fm.fields, field)
	fm.inputs = append(fm.inputs, in)
}

func (fm *form) focusCmd() tea.Cmd {
	for i := range fm.inputs {
		fm.inputs[i].Blur()
	}
	return fm.inputs[fm.focus].Focus()
}

func (fm *form) move(delta int) tea.Cmd {
	n := len(fm.inputs)
	fm.focus = ((fm.focus+delta)%n + n) % n
	return fm.focusCmd()
}

func (fm *form) updateInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	fm.inputs[fm.focus], cmd = fm.inputs[fm.focus].Update(msg)
	delete(fm.fieldErrs, fm.fields[fm.focus])
	return cmd
}

// apply copies the input values into the flow's intent.
func (fm *form) apply() error {
	for i, field := range fm.fields {
		var err error
		switch field {
		case flow.FieldTarget:
			err = fm.flow.SetTarget(fm.inputs[i].Value())
		case flow.FieldAmount:
			err = fm.flow.SetAmount(fm.inputs[i].Value())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (fm *form) clearErrors() {
	fm.fieldErrs = map[string]string{}
	fm.failure = ""
}
