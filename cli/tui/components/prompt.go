package components

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/flowctl/cli/tui/styles"
)

// PromptSubmittedMsg carries the value entered for the prompt Purpose.
type PromptSubmittedMsg struct {
	Purpose string
	Value   string
}

// InputPrompt is a one-line dialog, e.g. for renaming a row.
type InputPrompt struct {
	input   textinput.Model
	title   string
	purpose string
	visible bool
	Submit  key.Binding
	Cancel  key.Binding
}

func NewInputPrompt() *InputPrompt {
	in := textinput.New()
	in.CharLimit = 255
	in.Width = 40
	return &InputPrompt{
		input:  in,
		Submit: newBinding([]string{"enter"}, "submit", "enter"),
		Cancel: newBinding([]string{"esc"}, "cancel", "esc"),
	}
}

// Open shows the prompt; the submitted value is tagged with purpose.
func (p *InputPrompt) Open(purpose, title, initial string) tea.Cmd {
	p.purpose = purpose
	p.title = title
	p.visible = true
	p.input.SetValue(initial)
	p.input.CursorEnd()
	return p.input.Focus()
}

func (p *InputPrompt) Visible() bool {
	return p.visible
}

func (p *InputPrompt) close() {
	p.visible = false
	p.input.Blur()
}

func (p *InputPrompt) Update(msg tea.Msg) tea.Cmd {
	if !p.visible {
		return nil
	}
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, p.Submit):
			p.close()
			out := PromptSubmittedMsg{Purpose: p.purpose, Value: p.input.Value()}
			return func() tea.Msg { return out }
		case key.Matches(km, p.Cancel):
			p.close()
			return nil
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

func (p *InputPrompt) View() string {
	if !p.visible {
		return ""
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render(p.title),
		p.input.View(),
		"",
		styles.HelpStyle.Render("enter submit • esc cancel"),
	)
	return styles.DialogStyle.Render(body)
}
