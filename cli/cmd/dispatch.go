package cmd

import (
	"context"
	"sync"

	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/cli/tui/components"
	"github.com/compozy/flowctl/cli/tui/models"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
	"github.com/spf13/cobra"
)

// lastMessage keeps the most recent dispatcher notification so a command
// can print it.
type lastMessage struct {
	mu      sync.Mutex
	success string
	failure string
}

func (m *lastMessage) Success(_, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.success = message
}

func (m *lastMessage) Error(_, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = message
}

func (m *lastMessage) get() (success, failure string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.success, m.failure
}

// refuseConfirmer fails destructive actions in non-interactive runs.
type refuseConfirmer struct{}

func (refuseConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	return false, helpers.NewCliError("CONFIRMATION_REQUIRED", "pass --yes to confirm", prompt)
}

// AddYesFlag registers --yes on commands that run destructive actions.
func AddYesFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}

// Confirmer picks how a command confirms destructive actions: --yes
// approves, TUI mode asks with a form and other modes refuse.
func (e *CommandExecutor) Confirmer(cmd *cobra.Command) listing.Confirmer {
	yes, err := cmd.Flags().GetBool("yes")
	if err == nil && yes {
		return components.FormConfirmer{AssumeYes: true}
	}
	if e.mode == models.ModeTUI {
		return components.FormConfirmer{}
	}
	return refuseConfirmer{}
}

// DispatchRow runs one row action outside a screen and returns its success
// message. row must already be resolved; the dispatcher still guards it by
// id.
func DispatchRow[T any](
	ctx context.Context,
	actions []listing.Action[T],
	action string,
	id string,
	row T,
	confirmer listing.Confirmer,
) (string, error) {
	notes := &lastMessage{}
	d, err := listing.NewDispatcher(listing.DispatcherConfig[T]{
		Actions: actions,
		Lookup: func(rowID string) (T, bool) {
			return row, rowID == id
		},
		Notifier:  notes,
		Confirmer: confirmer,
		Logger:    logger.FromContext(ctx),
	})
	if err != nil {
		return "", err
	}
	err = helpers.LogOperation(ctx, "dispatch "+action+" "+id, func() error {
		return d.Dispatch(ctx, action, id)
	})
	success, failure := notes.get()
	if err != nil {
		if listing.IsConflict(err) {
			return "", helpers.NewCliError("CONFLICT", failure).WithCause(err)
		}
		return "", err
	}
	return success, nil
}

// WriteAction prints the outcome of a mutating command.
func WriteAction(out *helpers.OutputWriter, data any, message string) error {
	if out.Format() == helpers.OutputFormatTable {
		return out.WriteLine("%s", message)
	}
	return out.WriteData(models.ActionResponse{Data: data, Message: message})
}
