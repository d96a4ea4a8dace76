package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/compozy/flowctl/cli/tui/styles"
)

// FormDialog hosts a huh form inside a running screen.
type FormDialog struct {
	form     *huh.Form
	onSubmit func() tea.Cmd
}

func NewFormDialog() *FormDialog {
	return &FormDialog{}
}

// Open shows form; onSubmit runs once it completes. Aborting closes it.
func (d *FormDialog) Open(form *huh.Form, onSubmit func() tea.Cmd) tea.Cmd {
	d.form = form.WithShowHelp(true)
	d.onSubmit = onSubmit
	return d.form.Init()
}

func (d *FormDialog) Visible() bool {
	return d.form != nil
}

func (d *FormDialog) Update(msg tea.Msg) tea.Cmd {
	if d.form == nil {
		return nil
	}
	model, cmd := d.form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		d.form = f
	}
	switch d.form.State {
	case huh.StateCompleted:
		next := d.onSubmit
		d.form, d.onSubmit = nil, nil
		if next == nil {
			return nil
		}
		return next()
	case huh.StateAborted:
		d.form, d.onSubmit = nil, nil
		return nil
	}
	return cmd
}

func (d *FormDialog) View() string {
	if d.form == nil {
		return ""
	}
	return styles.DialogStyle.Render(d.form.View())
}
