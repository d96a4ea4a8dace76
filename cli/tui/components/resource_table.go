package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/cli/tui/styles"
	"github.com/compozy/flowctl/pkg/listing"
)

// EngineChangedMsg is delivered after the listing named Listing changed.
type EngineChangedMsg struct {
	Listing string
}

// RowSelectedMsg is sent when enter is pressed on a row.
type RowSelectedMsg struct {
	Listing string
	ID      string
}

// TableKeyMap defines key bindings for a resource table
type TableKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Sort     key.Binding
	Reverse  key.Binding
	Refresh  key.Binding
	Retry    key.Binding
	Select   key.Binding
}

// DefaultTableKeyMap returns the default key bindings
func DefaultTableKeyMap() TableKeyMap {
	return TableKeyMap{
		Up:       newBinding([]string{"up", "k"}, "up", "↑/k"),
		Down:     newBinding([]string{"down", "j"}, "down", "↓/j"),
		NextPage: newBinding([]string{"n", "right"}, "next page", "n/→"),
		PrevPage: newBinding([]string{"p", "left"}, "prev page", "p/←"),
		Sort:     newBinding([]string{"s"}, "sort column", "s"),
		Reverse:  newBinding([]string{"S"}, "reverse sort", "S"),
		Refresh:  newBinding([]string{"ctrl+r"}, "refresh", "ctrl+r"),
		Retry:    newBinding([]string{"R"}, "retry", "R"),
		Select:   newBinding([]string{"enter"}, "select", "enter"),
	}
}

func newBinding(keys []string, help, display string) key.Binding {
	return key.NewBinding(
		key.WithKeys(keys...),
		key.WithHelp(display, help),
	)
}

func (k TableKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPage, k.PrevPage, k.Sort, k.Refresh}
}

func (k TableKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.NextPage, k.PrevPage},
		{k.Sort, k.Reverse, k.Refresh, k.Retry},
	}
}

// ResourceTable renders one listing engine as an interactive table. It
// holds no page state of its own; every redraw reads the engine snapshot.
type ResourceTable[T any] struct {
	engine  *listing.Engine[T]
	columns *listing.Columns[T]
	idOf    listing.IDFunc[T]
	empty   string

	table   table.Model
	spinner spinner.Model
	keyMap  TableKeyMap
	snap    listing.Snapshot[T]
	ids     []string
	width   int
	height  int
	focused bool

	changes <-chan struct{}
	release func()
}

func NewResourceTable[T any](
	engine *listing.Engine[T],
	columns *listing.Columns[T],
	idOf listing.IDFunc[T],
	empty string,
) *ResourceTable[T] {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)
	t := table.New(
		table.WithColumns(tableColumns(columns, 0)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(defaultTableStyles())
	changes, release := engine.Subscribe()
	rt := &ResourceTable[T]{
		engine:  engine,
		columns: columns,
		idOf:    idOf,
		empty:   empty,
		table:   t,
		spinner: s,
		keyMap:  DefaultTableKeyMap(),
		focused: true,
		changes: changes,
		release: release,
	}
	rt.sync()
	return rt
}

func defaultTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Border).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Primary)
	s.Selected = s.Selected.
		Foreground(styles.Highlight).
		Background(styles.Surface).
		Bold(true)
	return s
}

// tableColumns scales the declared widths down when width is too small.
func tableColumns[T any](columns *listing.Columns[T], width int) []table.Column {
	all := columns.All()
	total := 0
	for _, c := range all {
		total += c.Width + 2
	}
	out := make([]table.Column, 0, len(all))
	for _, c := range all {
		w := c.Width
		if width > 0 && total > width {
			w = max(4, c.Width*width/total)
		}
		out = append(out, table.Column{Title: c.Title, Width: w})
	}
	return out
}

// Init starts the spinner and the change listener.
func (rt *ResourceTable[T]) Init() tea.Cmd {
	return tea.Batch(rt.spinner.Tick, rt.WaitForChange())
}

// WaitForChange blocks until the engine publishes a change.
func (rt *ResourceTable[T]) WaitForChange() tea.Cmd {
	return WatchEngine(rt.changes, rt.engine.ID())
}

// WatchEngine turns the next signal of a Subscribe channel into an
// EngineChangedMsg. It yields nil once the channel is closed.
func WatchEngine(changes <-chan struct{}, listing string) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return EngineChangedMsg{Listing: listing}
	}
}

// Close releases the engine subscription.
func (rt *ResourceTable[T]) Close() {
	if rt.release != nil {
		rt.release()
		rt.release = nil
	}
}

func (rt *ResourceTable[T]) KeyMap() TableKeyMap {
	return rt.keyMap
}

func (rt *ResourceTable[T]) Snapshot() listing.Snapshot[T] {
	return rt.snap
}

func (rt *ResourceTable[T]) SetSize(width, height int) {
	rt.width = width
	rt.height = height
	rt.table.SetHeight(max(1, height-3))
	rt.table.SetColumns(tableColumns(rt.columns, width))
}

func (rt *ResourceTable[T]) SetFocused(focused bool) {
	rt.focused = focused
	if focused {
		rt.table.Focus()
		return
	}
	rt.table.Blur()
}

func (rt *ResourceTable[T]) Focused() bool {
	return rt.focused
}

// SelectedID returns the id of the highlighted row.
func (rt *ResourceTable[T]) SelectedID() (string, bool) {
	i := rt.table.Cursor()
	if i < 0 || i >= len(rt.ids) {
		return "", false
	}
	return rt.ids[i], true
}

// Selected returns the highlighted row of the current page.
func (rt *ResourceTable[T]) Selected() (T, bool) {
	id, ok := rt.SelectedID()
	if !ok {
		var zero T
		return zero, false
	}
	return rt.engine.Find(id, rt.idOf)
}

// sync copies the engine snapshot into the table, keeping the cursor on
// the same row id when it is still present.
func (rt *ResourceTable[T]) sync() {
	previous, _ := rt.SelectedID()
	rt.snap = rt.engine.Snapshot()
	rows := make([]table.Row, 0, len(rt.snap.Rows))
	rt.ids = rt.ids[:0]
	cursor := 0
	for i, item := range rt.snap.Rows {
		id := rt.idOf(item)
		if id == previous {
			cursor = i
		}
		rt.ids = append(rt.ids, id)
		rows = append(rows, table.Row(rt.columns.Row(item)))
	}
	rt.table.SetRows(rows)
	rt.table.SetCursor(cursor)
}

func (rt *ResourceTable[T]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case EngineChangedMsg:
		if msg.Listing != rt.engine.ID() {
			return nil
		}
		rt.sync()
		return rt.WaitForChange()
	case spinner.TickMsg:
		var cmd tea.Cmd
		rt.spinner, cmd = rt.spinner.Update(msg)
		return cmd
	case tea.KeyMsg:
		if !rt.focused {
			return nil
		}
		return rt.handleKey(msg)
	}
	return nil
}

func (rt *ResourceTable[T]) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, rt.keyMap.NextPage):
		rt.engine.NextPage()
		return nil
	case key.Matches(msg, rt.keyMap.PrevPage):
		rt.engine.PreviousPage()
		return nil
	case key.Matches(msg, rt.keyMap.Sort):
		rt.cycleSort(false)
		return nil
	case key.Matches(msg, rt.keyMap.Reverse):
		rt.cycleSort(true)
		return nil
	case key.Matches(msg, rt.keyMap.Refresh):
		rt.engine.Refresh()
		return nil
	case key.Matches(msg, rt.keyMap.Retry):
		if rt.snap.Err != nil {
			rt.engine.Retry()
		}
		return nil
	case key.Matches(msg, rt.keyMap.Select):
		id, ok := rt.SelectedID()
		if !ok {
			return nil
		}
		name := rt.engine.ID()
		return func() tea.Msg { return RowSelectedMsg{Listing: name, ID: id} }
	}
	var cmd tea.Cmd
	rt.table, cmd = rt.table.Update(msg)
	return cmd
}

// cycleSort moves to the next sortable column, or flips the direction of
// the current one when reverse is set.
func (rt *ResourceTable[T]) cycleSort(reverse bool) {
	keys := rt.columns.SortableKeys()
	if len(keys) == 0 {
		return
	}
	current := rt.snap.Sort
	if reverse {
		if current == nil {
			return
		}
		_ = rt.engine.SetSort(&listing.SortSpec{Key: current.Key, Desc: !current.Desc})
		return
	}
	next := keys[0]
	if current != nil {
		for i, k := range keys {
			if k == current.Key {
				if i+1 == len(keys) {
					_ = rt.engine.SetSort(nil)
					return
				}
				next = keys[i+1]
			}
		}
	}
	_ = rt.engine.SetSort(&listing.SortSpec{Key: next})
}

func (rt *ResourceTable[T]) View() string {
	sections := []string{rt.renderStatus()}
	if rt.snap.Err != nil && len(rt.snap.Rows) == 0 {
		sections = append(sections, rt.renderError())
	} else if !rt.snap.IsLoading && len(rt.snap.Rows) == 0 {
		sections = append(sections, styles.HelpStyle.Render(rt.empty))
	} else {
		sections = append(sections, rt.table.View())
	}
	sections = append(sections, rt.renderPagination())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (rt *ResourceTable[T]) renderStatus() string {
	var parts []string
	if rt.snap.IsLoading {
		parts = append(parts, rt.spinner.View()+" Loading...")
	}
	if s := rt.snap.Sort; s != nil {
		dir := "asc"
		if s.Desc {
			dir = "desc"
		}
		parts = append(parts, styles.InfoStyle.Render(fmt.Sprintf("Sort: %s %s", s.Key, dir)))
	}
	if q := rt.engine.QueryValues(); len(q) > 0 {
		parts = append(parts, styles.WarningStyle.Render("Filter: "+q.Encode()))
	}
	return strings.Join(parts, " • ")
}

func (rt *ResourceTable[T]) renderError() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.ErrorStyle.Render(listing.UserMessage(rt.snap.Err, "")),
		styles.HelpStyle.Render("Press R to retry"),
	)
}

func (rt *ResourceTable[T]) renderPagination() string {
	n := len(rt.snap.Rows)
	info := fmt.Sprintf("Page %d • %d %s", rt.snap.PageNumber, n, helpers.Pluralize(n, "row", "rows"))
	if rt.snap.HasPreviousPage {
		info = "← " + info
	}
	if rt.snap.HasNextPage {
		info += " →"
	}
	return styles.PaginationStyle.Render(info)
}
