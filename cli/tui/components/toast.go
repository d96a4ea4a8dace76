package components

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/compozy/flowctl/cli/tui/styles"
)

const DefaultToastTTL = 4 * time.Second

type ToastKind int

const (
	ToastSuccess ToastKind = iota
	ToastError
)

type Toast struct {
	Kind    ToastKind
	Title   string
	Message string
	expires time.Time
}

// ToastTickMsg triggers a redraw so expired toasts disappear.
type ToastTickMsg time.Time

// Toasts collects notifications from row actions and dialogs. It is safe
// for use from the goroutines that run tea commands.
type Toasts struct {
	mu    sync.Mutex
	items []Toast
	ttl   time.Duration
	now   func() time.Time
}

func NewToasts(ttl time.Duration) *Toasts {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Toasts{ttl: ttl, now: time.Now}
}

func (t *Toasts) Success(title, message string) {
	t.push(ToastSuccess, title, message)
}

func (t *Toasts) Error(title, message string) {
	t.push(ToastError, title, message)
}

func (t *Toasts) push(kind ToastKind, title, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, Toast{Kind: kind, Title: title, Message: message, expires: t.now().Add(t.ttl)})
}

// Active returns the toasts that have not expired, oldest first.
func (t *Toasts) Active() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	live := t.items[:0]
	for _, it := range t.items {
		if now.Before(it.expires) {
			live = append(live, it)
		}
	}
	t.items = live
	out := make([]Toast, len(live))
	copy(out, live)
	return out
}

func (t *Toasts) Tick() tea.Cmd {
	return tea.Tick(time.Second, func(at time.Time) tea.Msg { return ToastTickMsg(at) })
}

// View renders the most recent toast.
func (t *Toasts) View() string {
	active := t.Active()
	if len(active) == 0 {
		return ""
	}
	last := active[len(active)-1]
	text := last.Title + ": " + last.Message
	if last.Kind == ToastError {
		return styles.ToastErrorStyle.Render("✗ " + text)
	}
	return styles.ToastSuccessStyle.Render("✓ " + text)
}
