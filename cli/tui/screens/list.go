// Package screens holds the interactive listing screens. Each screen is a
// view over one or more listing engines; all page state lives in the
// engines.
package screens

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/compozy/flowctl/cli/tui/components"
	"github.com/compozy/flowctl/cli/tui/models"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
)

// ActionBinding maps a key to a row action of the dispatcher. With a
// Prompt, the value is asked first and passed to the action through its
// context; see PromptValue.
type ActionBinding struct {
	Key    key.Binding
	Action string
	Prompt string
}

// Command is a screen-level operation that does not target a row. The
// returned message is shown as a success toast.
type Command struct {
	Key key.Binding
	Run func(ctx context.Context) (string, error)
}

// FormCommand opens a huh form inside the screen. The returned function
// runs when the form completes.
type FormCommand struct {
	Key  key.Binding
	Open func(ctx context.Context) (*huh.Form, func() tea.Cmd, error)
}

// OpenFormMsg chains a follow-up form, e.g. the second stage of a dialog.
type OpenFormMsg struct {
	Form     *huh.Form
	OnSubmit func() tea.Cmd
}

// DoneMsg reports the outcome of a command or form as a toast.
type DoneMsg struct {
	Message string
	Err     error
}

type promptValueKey struct{}

// WithPromptValue returns ctx carrying the value typed for one action run.
func WithPromptValue(ctx context.Context, value string) context.Context {
	return context.WithValue(ctx, promptValueKey{}, value)
}

// PromptValue returns the value typed for the action running under ctx.
func PromptValue(ctx context.Context) string {
	value, _ := ctx.Value(promptValueKey{}).(string)
	return value
}

// pendingPrompt is the action and row a visible prompt was opened for.
type pendingPrompt struct {
	action string
	rowID  string
}

type ListConfig[T any] struct {
	Title             string
	Engine            *listing.Engine[T]
	Columns           *listing.Columns[T]
	IDOf              listing.IDFunc[T]
	Empty             string
	FilterKey         string
	FilterPlaceholder string
	Dispatcher        *listing.Dispatcher[T]
	Actions           []ActionBinding
	Commands          []Command
	Forms             []FormCommand
	Toasts            *components.Toasts
	Confirmer         *components.PromptConfirmer
	Logger            logger.Logger
}

type actionDoneMsg struct {
	action string
	err    error
}

// List is a single-table screen with an optional filter bar, row actions
// and confirmation dialog.
type List[T any] struct {
	models.BaseModel
	cfg     ListConfig[T]
	layout  *components.Layout
	table   *components.ResourceTable[T]
	filter  *components.FilterBar
	confirm *components.ConfirmDialog
	prompt  *components.InputPrompt
	form    *components.FormDialog
	pending *pendingPrompt
	HelpKey key.Binding
	QuitKey key.Binding
}

func NewList[T any](ctx context.Context, cfg ListConfig[T]) *List[T] {
	if cfg.Toasts == nil {
		cfg.Toasts = components.NewToasts(0)
	}
	if cfg.Confirmer == nil {
		cfg.Confirmer = components.NewPromptConfirmer()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.FromContext(ctx)
	}
	l := &List[T]{
		BaseModel: models.NewBaseModel(ctx, models.ModeTUI),
		cfg:       cfg,
		layout:    components.NewLayout(cfg.Title),
		table:     components.NewResourceTable(cfg.Engine, cfg.Columns, cfg.IDOf, cfg.Empty),
		confirm:   components.NewConfirmDialog(cfg.Confirmer),
		prompt:    components.NewInputPrompt(),
		form:      components.NewFormDialog(),
		HelpKey:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		QuitKey:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
	if cfg.FilterKey != "" {
		initial := cfg.Engine.Snapshot().Filters.Text(cfg.FilterKey)
		l.filter = components.NewFilterBar(cfg.Engine, cfg.FilterKey, cfg.FilterPlaceholder, initial)
	}
	return l
}

func (l *List[T]) Table() *components.ResourceTable[T] {
	return l.table
}

func (l *List[T]) Layout() *components.Layout {
	return l.layout
}

func (l *List[T]) Init() tea.Cmd {
	return tea.Batch(l.table.Init(), l.confirm.Init(), l.cfg.Toasts.Tick())
}

// Modal reports whether a dialog or the filter bar owns the keyboard.
func (l *List[T]) Modal() bool {
	return l.confirm.Visible() || l.prompt.Visible() || l.form.Visible() ||
		(l.filter != nil && l.filter.Focused())
}

func (l *List[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := l.update(msg)
	if l.IsQuitting() {
		return l, tea.Quit
	}
	return l, cmd
}

func (l *List[T]) update(msg tea.Msg) tea.Cmd {
	var formCmd tea.Cmd
	if l.form.Visible() {
		if km, ok := msg.(tea.KeyMsg); ok && !l.confirm.Visible() {
			if km.String() == "ctrl+c" {
				l.Quit()
				return nil
			}
			return l.form.Update(msg)
		}
		formCmd = l.form.Update(msg)
	}
	return tea.Batch(formCmd, l.route(msg))
}

func (l *List[T]) route(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		l.SetSize(msg.Width, msg.Height)
		l.layout.SetSize(msg.Width, msg.Height)
		l.table.SetSize(l.layout.ContentSize(false))
		return nil
	case components.ToastTickMsg:
		return l.cfg.Toasts.Tick()
	case components.ConfirmRequestMsg:
		return l.confirm.Update(msg)
	case components.PromptSubmittedMsg:
		return l.onPromptSubmitted(msg)
	case actionDoneMsg:
		l.onActionDone(msg)
		return nil
	case OpenFormMsg:
		return l.form.Open(msg.Form, msg.OnSubmit)
	case DoneMsg:
		l.onDone(msg)
		return nil
	case tea.KeyMsg:
		return l.handleKey(msg)
	}
	return l.table.Update(msg)
}

// HandleKey routes a key press; screens that wrap a List call it for keys
// they do not consume themselves.
func (l *List[T]) HandleKey(msg tea.KeyMsg) tea.Cmd {
	return l.handleKey(msg)
}

func (l *List[T]) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case l.confirm.Visible():
		return l.confirm.Update(msg)
	case l.prompt.Visible():
		return l.prompt.Update(msg)
	case l.filter != nil && l.filter.Focused():
		return l.filter.Update(msg)
	case key.Matches(msg, l.QuitKey):
		l.Quit()
		return nil
	case key.Matches(msg, l.HelpKey):
		l.layout.ToggleHelp()
		l.table.SetSize(l.layout.ContentSize(false))
		return nil
	case l.filter != nil && key.Matches(msg, l.filter.Focus):
		return l.filter.Activate()
	}
	for i := range l.cfg.Actions {
		b := l.cfg.Actions[i]
		if key.Matches(msg, b.Key) {
			return l.startAction(b)
		}
	}
	for _, c := range l.cfg.Commands {
		if key.Matches(msg, c.Key) {
			return l.runCommand(c)
		}
	}
	for _, fc := range l.cfg.Forms {
		if key.Matches(msg, fc.Key) {
			return l.openForm(fc)
		}
	}
	return l.table.Update(msg)
}

func (l *List[T]) startAction(b ActionBinding) tea.Cmd {
	id, ok := l.table.SelectedID()
	if !ok || l.cfg.Dispatcher == nil {
		return nil
	}
	if b.Prompt != "" {
		l.pending = &pendingPrompt{action: b.Action, rowID: id}
		return l.prompt.Open(b.Action, b.Prompt, "")
	}
	return l.dispatch(l.Context(), b.Action, id)
}

func (l *List[T]) onPromptSubmitted(msg components.PromptSubmittedMsg) tea.Cmd {
	if l.pending == nil || l.pending.action != msg.Purpose {
		return nil
	}
	p := l.pending
	l.pending = nil
	return l.dispatch(WithPromptValue(l.Context(), msg.Value), p.action, p.rowID)
}

// dispatch runs the action off the update loop; the row is resolved by id
// when the command runs.
func (l *List[T]) dispatch(ctx context.Context, action, id string) tea.Cmd {
	d := l.cfg.Dispatcher
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: d.Dispatch(ctx, action, id)}
	}
}

func (l *List[T]) onActionDone(msg actionDoneMsg) {
	err := msg.err
	switch {
	case err == nil,
		errors.Is(err, listing.ErrActionCanceled),
		errors.Is(err, context.Canceled):
	case errors.Is(err, listing.ErrActionPending):
		l.cfg.Toasts.Error("Busy", "That action is already running")
	case errors.Is(err, listing.ErrUnknownRow):
		l.cfg.Toasts.Error("Error", "The row is no longer listed")
	default:
		// the dispatcher already notified failures of the action itself
		l.cfg.Logger.Debug("row action failed", "action", msg.action, "error", err)
	}
}

func (l *List[T]) runCommand(c Command) tea.Cmd {
	ctx := l.Context()
	return func() tea.Msg {
		message, err := c.Run(ctx)
		return DoneMsg{Message: message, Err: err}
	}
}

func (l *List[T]) openForm(fc FormCommand) tea.Cmd {
	form, onSubmit, err := fc.Open(l.Context())
	if err != nil {
		l.onDone(DoneMsg{Err: err})
		return nil
	}
	return l.form.Open(form, onSubmit)
}

func (l *List[T]) onDone(msg DoneMsg) {
	switch {
	case msg.Err != nil && listing.IsValidation(msg.Err):
		l.cfg.Toasts.Error("Error", msg.Err.Error())
	case msg.Err != nil:
		l.cfg.Toasts.Error("Error", listing.UserMessage(msg.Err, ""))
	case msg.Message != "":
		l.cfg.Toasts.Success("Success", msg.Message)
	}
}

// Keys lists the bindings for the help footer.
func (l *List[T]) Keys() components.KeyMap {
	tk := l.table.KeyMap()
	short := []key.Binding{tk.NextPage, tk.PrevPage}
	var screen []key.Binding
	if l.filter != nil {
		short = append(short, l.filter.Focus)
		screen = append(screen, l.filter.Focus)
	}
	for _, a := range l.cfg.Actions {
		screen = append(screen, a.Key)
	}
	for _, c := range l.cfg.Commands {
		screen = append(screen, c.Key)
	}
	for _, fc := range l.cfg.Forms {
		screen = append(screen, fc.Key)
	}
	short = append(short, l.HelpKey, l.QuitKey)
	full := append(tk.FullHelp(), screen, []key.Binding{l.HelpKey, l.QuitKey})
	return components.KeyMap{Short: short, Full: full}
}

// Parts renders the pieces of the screen for a Layout.
func (l *List[T]) Parts() components.Parts {
	p := components.Parts{
		Content: l.table.View(),
		Toast:   l.cfg.Toasts.View(),
		Keys:    l.Keys(),
	}
	if l.filter != nil {
		p.Filter = l.filter.View()
	}
	switch {
	case l.confirm.Visible():
		p.Dialog = l.confirm.View()
	case l.prompt.Visible():
		p.Dialog = l.prompt.View()
	case l.form.Visible():
		p.Dialog = l.form.View()
	}
	return p
}

func (l *List[T]) View() string {
	return l.layout.View(l.Parts())
}

// Close releases the engine subscription.
func (l *List[T]) Close() {
	l.table.Close()
}
