package components

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/flowctl/cli/tui/styles"
)

type confirmRequest struct {
	prompt string
	reply  chan bool
}

// ConfirmRequestMsg asks the running program to show a confirmation.
type ConfirmRequestMsg struct {
	req confirmRequest
}

// PromptConfirmer bridges listing.Confirmer into a running tea program:
// Confirm blocks until the ConfirmDialog answers.
type PromptConfirmer struct {
	requests chan confirmRequest
}

func NewPromptConfirmer() *PromptConfirmer {
	return &PromptConfirmer{requests: make(chan confirmRequest)}
}

func (c *PromptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	req := confirmRequest{prompt: prompt, reply: make(chan bool, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// WaitForRequest delivers the next confirmation request as a message.
func (c *PromptConfirmer) WaitForRequest() tea.Cmd {
	return func() tea.Msg {
		return ConfirmRequestMsg{req: <-c.requests}
	}
}

// ConfirmDialog shows one pending confirmation at a time.
type ConfirmDialog struct {
	confirmer *PromptConfirmer
	pending   *confirmRequest
	Yes       key.Binding
	No        key.Binding
}

func NewConfirmDialog(confirmer *PromptConfirmer) *ConfirmDialog {
	return &ConfirmDialog{
		confirmer: confirmer,
		Yes:       newBinding([]string{"y", "Y", "enter"}, "confirm", "y"),
		No:        newBinding([]string{"n", "N", "esc"}, "cancel", "n"),
	}
}

func (d *ConfirmDialog) Init() tea.Cmd {
	return d.confirmer.WaitForRequest()
}

func (d *ConfirmDialog) Visible() bool {
	return d.pending != nil
}

func (d *ConfirmDialog) Prompt() string {
	if d.pending == nil {
		return ""
	}
	return d.pending.prompt
}

// Update consumes requests and, while visible, every key press.
func (d *ConfirmDialog) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ConfirmRequestMsg:
		req := msg.req
		d.pending = &req
		return nil
	case tea.KeyMsg:
		if d.pending == nil {
			return nil
		}
		switch {
		case key.Matches(msg, d.Yes):
			return d.answer(true)
		case key.Matches(msg, d.No):
			return d.answer(false)
		}
	}
	return nil
}

func (d *ConfirmDialog) answer(ok bool) tea.Cmd {
	d.pending.reply <- ok
	d.pending = nil
	return d.confirmer.WaitForRequest()
}

func (d *ConfirmDialog) View() string {
	if d.pending == nil {
		return ""
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		styles.WarningStyle.Render(d.pending.prompt),
		"",
		styles.HelpStyle.Render("y confirm • n cancel"),
	)
	return styles.DialogStyle.Render(body)
}
