package screens

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/compozy/flowctl/cli/api"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/cli/resources"
	"github.com/compozy/flowctl/cli/tui/components"
	"github.com/compozy/flowctl/pkg/dialogs"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
)

type PiecesConfig struct {
	Client resources.PiecesAPI
	Pieces *listing.Engine[api.PieceSummary]
	// Invalidate drops the cached catalog after an install.
	Invalidate func()
	Toasts     *components.Toasts
	Logger     logger.Logger
}

// NewPieces builds the pieces catalog screen with the install dialog on
// "i". A failed install reopens the form with its values and the error.
func NewPieces(ctx context.Context, cfg PiecesConfig) (*List[api.PieceSummary], error) {
	if cfg.Toasts == nil {
		cfg.Toasts = components.NewToasts(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.FromContext(ctx)
	}
	svc := resources.PieceService{Client: cfg.Client}
	form, err := dialogs.NewInstallPieceForm(dialogs.InstallConfig{
		Installer: svc,
		Flags:     svc,
		Notifier:  cfg.Toasts,
		OnInstalled: func() {
			if cfg.Invalidate != nil {
				cfg.Invalidate()
			}
			cfg.Pieces.Refresh()
		},
		FileExists: helpers.FileExists,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	return NewList(ctx, ListConfig[api.PieceSummary]{
		Title:             "Pieces",
		Engine:            cfg.Pieces,
		Columns:           resources.PieceColumns(),
		IDOf:              resources.PieceID,
		Empty:             "No pieces match",
		FilterKey:         resources.FilterSearch,
		FilterPlaceholder: "Search pieces",
		Toasts:            cfg.Toasts,
		Logger:            cfg.Logger,
		Forms: []FormCommand{
			{Key: binding("i", "install piece"), Open: installFlow(form, cfg.Toasts)},
		},
	}), nil
}

func installFlow(form *dialogs.InstallPieceForm, toasts *components.Toasts) func(context.Context) (*huh.Form, func() tea.Cmd, error) {
	var open func(ctx context.Context) (*huh.Form, func() tea.Cmd, error)
	open = func(ctx context.Context) (*huh.Form, func() tea.Cmd, error) {
		if !form.IsOpen() {
			form.Open(ctx)
		}
		data := &dialogs.InstallInput{}
		fields := components.NewInstallPieceFields(form, data)
		submit := func() tea.Cmd {
			return func() tea.Msg {
				err := form.Submit(ctx, *data)
				if err == nil {
					return nil
				}
				if listing.IsValidation(err) {
					toasts.Error("Error", err.Error())
				}
				retry, onSubmit, _ := open(ctx)
				return OpenFormMsg{Form: retry, OnSubmit: onSubmit}
			}
		}
		return fields, submit, nil
	}
	return open
}
