package listing

import (
	"context"
	"fmt"
	"sync"

	"github.com/compozy/flowctl/pkg/logger"
)

// Action is a mutation that can be invoked on a single row.
type Action[T any] struct {
	Name  string
	Label string
	// Confirm returns the prompt shown before running. Nil skips confirmation.
	Confirm func(row T) string
	Run     func(ctx context.Context, row T) error
	// Success returns the notification shown after a successful run.
	Success func(row T) string
	// Conflict is shown instead of the generic message on HTTP 409.
	Conflict string
}

// Refresher is told to reload after a successful mutation.
type Refresher interface {
	Refresh()
}

// Notifier surfaces toast-style messages.
type Notifier interface {
	Success(title, message string)
	Error(title, message string)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// RowLookup resolves a row of the current page by id.
type RowLookup[T any] func(id string) (T, bool)

// DispatcherConfig wires a Dispatcher. Only Lookup is required.
type DispatcherConfig[T any] struct {
	Actions   []Action[T]
	Lookup    RowLookup[T]
	Refresher Refresher
	Notifier  Notifier
	Confirmer Confirmer
	Logger    logger.Logger
}

// Dispatcher runs row actions by name and row id. It is built once per
// listing; rows are resolved at dispatch time.
type Dispatcher[T any] struct {
	cfg     DispatcherConfig[T]
	actions map[string]Action[T]
	order   []string

	mu      sync.Mutex
	pending map[pendingKey]struct{}
}

type pendingKey struct {
	row    string
	action string
}

// NewDispatcher validates the declared actions and builds a dispatcher.
func NewDispatcher[T any](cfg DispatcherConfig[T]) (*Dispatcher[T], error) {
	if cfg.Lookup == nil {
		return nil, fmt.Errorf("dispatcher: row lookup is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewLogger(logger.TestConfig())
	}
	d := &Dispatcher[T]{
		cfg:     cfg,
		actions: make(map[string]Action[T], len(cfg.Actions)),
		pending: make(map[pendingKey]struct{}),
	}
	for _, a := range cfg.Actions {
		if a.Name == "" || a.Run == nil {
			return nil, fmt.Errorf("dispatcher: action %q must have a name and a run func", a.Name)
		}
		if _, dup := d.actions[a.Name]; dup {
			return nil, fmt.Errorf("dispatcher: duplicate action %q", a.Name)
		}
		d.actions[a.Name] = a
		d.order = append(d.order, a.Name)
	}
	return d, nil
}

// Actions lists the declared actions in order.
func (d *Dispatcher[T]) Actions() []Action[T] {
	out := make([]Action[T], 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.actions[name])
	}
	return out
}

// IsPending reports whether action is still running on rowID.
func (d *Dispatcher[T]) IsPending(rowID, action string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[pendingKey{row: rowID, action: action}]
	return ok
}

// Dispatch runs action on the row identified by rowID. A successful run
// refreshes the listing; a failed one leaves it untouched.
func (d *Dispatcher[T]) Dispatch(ctx context.Context, action, rowID string) error {
	a, ok := d.actions[action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	row, ok := d.cfg.Lookup(rowID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRow, rowID)
	}
	key := pendingKey{row: rowID, action: action}
	d.mu.Lock()
	if _, busy := d.pending[key]; busy {
		d.mu.Unlock()
		return ErrActionPending
	}
	d.pending[key] = struct{}{}
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.pending, key)
		d.mu.Unlock()
	}()

	if a.Confirm != nil && d.cfg.Confirmer != nil {
		ok, err := d.cfg.Confirmer.Confirm(ctx, a.Confirm(row))
		if err != nil {
			return fmt.Errorf("failed to confirm %s: %w", action, err)
		}
		if !ok {
			return ErrActionCanceled
		}
	}

	log := d.cfg.Logger.With("action", action, "row", rowID)
	if err := a.Run(ctx, row); err != nil {
		log.Warn("row action failed", "error", err)
		if d.cfg.Notifier != nil {
			d.cfg.Notifier.Error("Error", UserMessage(err, a.Conflict))
		}
		return err
	}
	log.Debug("row action succeeded")
	if d.cfg.Refresher != nil {
		d.cfg.Refresher.Refresh()
	}
	if d.cfg.Notifier != nil && a.Success != nil {
		d.cfg.Notifier.Success("Success", a.Success(row))
	}
	return nil
}
