package components

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/flowctl/cli/tui/styles"
	"github.com/compozy/flowctl/pkg/listing"
)

// FilterSetter is the part of a listing engine the filter bar drives.
type FilterSetter interface {
	SetFilter(key string, value listing.FilterValue) error
}

// FilterBar edits one text filter. Every keystroke is forwarded to the
// engine, which debounces the fetch.
type FilterBar struct {
	input  textinput.Model
	target FilterSetter
	key    string
	err    error

	Focus key.Binding
	Done  key.Binding
	Clear key.Binding
}

func NewFilterBar(target FilterSetter, filterKey, placeholder, initial string) *FilterBar {
	in := textinput.New()
	in.Prompt = "/ "
	in.Placeholder = placeholder
	in.CharLimit = 255
	in.SetValue(initial)
	return &FilterBar{
		input:  in,
		target: target,
		key:    filterKey,
		Focus:  newBinding([]string{"/"}, "filter", "/"),
		Done:   newBinding([]string{"enter", "tab"}, "apply", "enter"),
		Clear:  newBinding([]string{"esc"}, "clear filter", "esc"),
	}
}

func (f *FilterBar) Focused() bool {
	return f.input.Focused()
}

func (f *FilterBar) Value() string {
	return f.input.Value()
}

func (f *FilterBar) Err() error {
	return f.err
}

func (f *FilterBar) Activate() tea.Cmd {
	return f.input.Focus()
}

func (f *FilterBar) Blur() {
	f.input.Blur()
}

// Update handles keys while the bar is focused. Unfocused bars ignore
// every message.
func (f *FilterBar) Update(msg tea.Msg) tea.Cmd {
	if !f.input.Focused() {
		return nil
	}
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, f.Done):
			f.input.Blur()
			return nil
		case key.Matches(km, f.Clear):
			f.input.SetValue("")
			f.input.Blur()
			f.apply()
			return nil
		}
	}
	before := f.input.Value()
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	if f.input.Value() != before {
		f.apply()
	}
	return cmd
}

func (f *FilterBar) apply() {
	f.err = f.target.SetFilter(f.key, listing.Text(f.input.Value()))
}

func (f *FilterBar) View() string {
	style := lipgloss.NewStyle().Foreground(styles.Muted)
	if f.input.Focused() {
		style = lipgloss.NewStyle().Foreground(styles.Highlight)
	}
	view := style.Render(f.input.View())
	if f.err != nil {
		view = lipgloss.JoinHorizontal(lipgloss.Top, view, "  ", styles.ErrorStyle.Render(f.err.Error()))
	}
	return view
}
