package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/compozy/flowctl/cli/resources"
	"github.com/compozy/flowctl/cli/tui/styles"
)

// syntheticEntries is the number of entries SidebarItems prepends.
const syntheticEntries = 2

// FolderSelectedMsg is sent when a sidebar entry is chosen.
type FolderSelectedMsg struct {
	FolderID string
}

// FolderSidebar lists "All flows", "Uncategorized" and the folders of the
// current folders page.
type FolderSidebar struct {
	items   []resources.SidebarItem
	cursor  int
	active  string
	focused bool
	width   int
	Up      key.Binding
	Down    key.Binding
	Choose  key.Binding
}

func NewFolderSidebar() *FolderSidebar {
	return &FolderSidebar{
		items:  resources.SidebarItems(nil),
		width:  28,
		Up:     newBinding([]string{"up", "k"}, "up", "↑/k"),
		Down:   newBinding([]string{"down", "j"}, "down", "↓/j"),
		Choose: newBinding([]string{"enter"}, "open folder", "enter"),
	}
}

// SetItems replaces the entries, keeping the cursor on the same folder.
func (s *FolderSidebar) SetItems(items []resources.SidebarItem) {
	var current string
	if s.cursor < len(s.items) {
		current = s.items[s.cursor].FolderID
	}
	s.items = items
	s.cursor = 0
	for i, it := range items {
		if it.FolderID == current {
			s.cursor = i
			break
		}
	}
}

func (s *FolderSidebar) Items() []resources.SidebarItem {
	return s.items
}

// Active is the folder id currently applied to the flows listing.
func (s *FolderSidebar) Active() string {
	return s.active
}

func (s *FolderSidebar) SetActive(folderID string) {
	s.active = folderID
}

func (s *FolderSidebar) SetFocused(focused bool) {
	s.focused = focused
}

func (s *FolderSidebar) Focused() bool {
	return s.focused
}

func (s *FolderSidebar) SetWidth(width int) {
	s.width = width
}

func (s *FolderSidebar) Update(msg tea.Msg) tea.Cmd {
	km, ok := msg.(tea.KeyMsg)
	if !ok || !s.focused || len(s.items) == 0 {
		return nil
	}
	switch {
	case key.Matches(km, s.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(km, s.Down):
		if s.cursor < len(s.items)-1 {
			s.cursor++
		}
	case key.Matches(km, s.Choose):
		s.active = s.items[s.cursor].FolderID
		id := s.active
		return func() tea.Msg { return FolderSelectedMsg{FolderID: id} }
	}
	return nil
}

func (s *FolderSidebar) View() string {
	lines := make([]string, 0, len(s.items))
	for i, it := range s.items {
		label := it.Label
		if i >= syntheticEntries {
			label = fmt.Sprintf("%s (%d)", it.Label, it.Count)
		}
		style := styles.SidebarItemStyle
		if it.FolderID == s.active {
			style = styles.SidebarActiveStyle
		}
		prefix := "  "
		if s.focused && i == s.cursor {
			prefix = "> "
		}
		lines = append(lines, style.Render(prefix+label))
	}
	return styles.SidebarStyle.Width(s.width).Render(strings.Join(lines, "\n"))
}
