package screens

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/compozy/flowctl/cli/api"
	"github.com/compozy/flowctl/cli/resources"
	"github.com/compozy/flowctl/cli/tui/components"
	"github.com/compozy/flowctl/pkg/dialogs"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
)

type ConnectionsConfig struct {
	ProjectID   string
	Client      resources.ConnectionsAPI
	Connections *listing.Engine[api.AppConnection]
	Toasts      *components.Toasts
	Confirmer   *components.PromptConfirmer
	Logger      logger.Logger
}

// NewConnections builds the connections screen. "a" walks the two-stage
// new-connection dialog: pick an app, then fill in its fields.
func NewConnections(ctx context.Context, cfg ConnectionsConfig) (*List[api.AppConnection], error) {
	if cfg.Toasts == nil {
		cfg.Toasts = components.NewToasts(0)
	}
	if cfg.Confirmer == nil {
		cfg.Confirmer = components.NewPromptConfirmer()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.FromContext(ctx)
	}
	dispatcher, err := listing.NewDispatcher(listing.DispatcherConfig[api.AppConnection]{
		Actions: resources.ConnectionActions(cfg.Client),
		Lookup: func(id string) (api.AppConnection, bool) {
			return cfg.Connections.Find(id, resources.ConnectionID)
		},
		Refresher: cfg.Connections,
		Notifier:  cfg.Toasts,
		Confirmer: cfg.Confirmer,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	svc := resources.ConnectionService{Client: cfg.Client, ProjectID: cfg.ProjectID}
	dialog, err := dialogs.NewNewConnectionDialog(dialogs.NewConnectionConfig{
		Catalog:   svc,
		Creator:   svc,
		OnCreated: func(dialogs.Created) { cfg.Connections.Refresh() },
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	return NewList(ctx, ListConfig[api.AppConnection]{
		Title:             "Connections",
		Engine:            cfg.Connections,
		Columns:           resources.ConnectionColumns(),
		IDOf:              resources.ConnectionID,
		Empty:             "No connections yet",
		FilterKey:         resources.FilterPieceName,
		FilterPlaceholder: "Filter by app",
		Dispatcher:        dispatcher,
		Toasts:            cfg.Toasts,
		Confirmer:         cfg.Confirmer,
		Logger:            cfg.Logger,
		Actions: []ActionBinding{
			{Key: binding("d", "delete"), Action: resources.ActionDelete},
		},
		Forms: []FormCommand{
			{Key: binding("a", "add connection"), Open: newConnectionFlow(dialog)},
		},
	}), nil
}

func newConnectionFlow(dialog *dialogs.NewConnectionDialog) func(context.Context) (*huh.Form, func() tea.Cmd, error) {
	return func(ctx context.Context) (*huh.Form, func() tea.Cmd, error) {
		if err := dialog.Open(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to load apps: %w", err)
		}
		data := &components.ConnectionFormData{}
		submit := func() tea.Cmd {
			return func() tea.Msg {
				created, err := dialog.Submit(ctx, data.Input())
				if err != nil {
					return DoneMsg{Err: err}
				}
				return DoneMsg{Message: fmt.Sprintf("Connection %s created", created.Name)}
			}
		}
		selectPiece := func() tea.Cmd {
			if err := dialog.Select(data.Piece); err != nil {
				dialog.Cancel()
				return func() tea.Msg { return DoneMsg{Err: err} }
			}
			next := OpenFormMsg{Form: components.NewConnectionFieldsForm(data), OnSubmit: submit}
			return func() tea.Msg { return next }
		}
		return components.NewPieceSelectForm(dialog, data), selectPiece, nil
	}
}
