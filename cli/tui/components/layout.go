package components

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/flowctl/cli/tui/styles"
)

// Layout arranges a screen: title, optional sidebar, content, toast line
// and help footer. A visible dialog replaces the content area.
type Layout struct {
	Width  int
	Height int
	Title  string

	SidebarWidth int
	Help         help.Model
}

func NewLayout(title string) *Layout {
	h := help.New()
	h.Styles.ShortKey = styles.HelpKeyStyle
	h.Styles.ShortDesc = styles.HelpDescStyle
	h.Styles.FullKey = styles.HelpKeyStyle
	h.Styles.FullDesc = styles.HelpDescStyle
	return &Layout{Title: title, SidebarWidth: 30, Help: h}
}

func (l *Layout) SetSize(width, height int) {
	l.Width = width
	l.Height = height
	l.Help.Width = width
}

func (l *Layout) ToggleHelp() {
	l.Help.ShowAll = !l.Help.ShowAll
}

// ContentSize returns the space left for the main content.
func (l *Layout) ContentSize(withSidebar bool) (width, height int) {
	width = l.Width - 2
	if withSidebar {
		width -= l.SidebarWidth
	}
	height = l.Height - 5
	if l.Help.ShowAll {
		height -= 4
	}
	return max(0, width), max(0, height)
}

// Parts are the rendered pieces of one frame.
type Parts struct {
	Sidebar string
	Filter  string
	Content string
	Dialog  string
	Toast   string
	Keys    help.KeyMap
}

func (l *Layout) View(p Parts) string {
	if l.Width <= 0 || l.Height <= 0 {
		return ""
	}
	width, height := l.ContentSize(p.Sidebar != "")
	body := p.Content
	if p.Filter != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, p.Filter, body)
	}
	if p.Dialog != "" {
		body = lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, p.Dialog)
	}
	main := lipgloss.NewStyle().Width(width).Height(height).Padding(0, 1).Render(body)
	if p.Sidebar != "" {
		main = lipgloss.JoinHorizontal(lipgloss.Top, p.Sidebar, main)
	}
	sections := []string{styles.RenderTitle(l.Title), main, p.Toast}
	if p.Keys != nil {
		sections = append(sections, l.Help.View(p.Keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// KeyMap combines groups of bindings for the help footer.
type KeyMap struct {
	Short []key.Binding
	Full  [][]key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return k.Short
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return k.Full
}
