package connections

import (
	"context"
	"fmt"
	"net/url"

	"github.com/compozy/flowctl/cli/api"
	"github.com/compozy/flowctl/cli/cmd"
	"github.com/compozy/flowctl/cli/resources"
	"github.com/compozy/flowctl/cli/tui/components"
	"github.com/compozy/flowctl/cli/tui/screens"
	"github.com/compozy/flowctl/pkg/dialogs"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
	"github.com/spf13/cobra"
)

// NewConnectionsCommand creates the connections command group
func NewConnectionsCommand() *cobra.Command {
	c := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "List and manage app connections",
	}
	c.AddCommand(ListCmd(), CreateCmd(), DeleteCmd())
	return c
}

// ListCmd creates the connections list command
func ListCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "list",
		Short: "List app connections",
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireProject: true}, cmd.ModeHandlers{
				JSON: listJSONHandler,
				TUI:  listTUIHandler,
			}, args)
		},
	}
	c.Flags().String("app", "", "Filter by app (piece) name")
	cmd.AddListFlags(c)
	return c
}

func listQuery(cobraCmd *cobra.Command) (cmd.ListQuery, error) {
	filters := url.Values{}
	app, err := cobraCmd.Flags().GetString("app")
	if err != nil {
		return cmd.ListQuery{}, fmt.Errorf("failed to get app flag: %w", err)
	}
	if app != "" {
		filters.Set(resources.FilterPieceName, app)
	}
	return cmd.ParseListQuery(cobraCmd, filters)
}

func listJSONHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	query, err := listQuery(cobraCmd)
	if err != nil {
		return err
	}
	engine, err := resources.NewConnectionsEngine(executor.GetClient(), executor.Settings(ctx))
	if err != nil {
		return err
	}
	snap, err := cmd.LoadPage(ctx, engine, query)
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}
	return cmd.WriteListing(
		executor.Output(cobraCmd),
		snap,
		resources.ConnectionColumns(),
		engine.Filters(),
		"",
		"No connections yet",
	)
}

func listTUIHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	query, err := listQuery(cobraCmd)
	if err != nil {
		return err
	}
	settings := executor.Settings(ctx)
	engine, err := resources.NewConnectionsEngine(executor.GetClient(), settings)
	if err != nil {
		return err
	}
	if err := cmd.StrictFilters(engine.Filters(), query.Filters); err != nil {
		return err
	}
	engine.Initialize(query.Filters)
	screen, err := screens.NewConnections(ctx, screens.ConnectionsConfig{
		ProjectID:   settings.ProjectID,
		Client:      executor.GetClient(),
		Connections: engine,
		Logger:      logger.FromContext(ctx),
	})
	if err != nil {
		return err
	}
	defer screen.Close()
	return cmd.RunScreen(ctx, screen, engine)
}

// CreateCmd creates the connections create command
func CreateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "create",
		Short: "Create an app connection",
		Long: `Create a connection for an app.
Without --app the command asks for the app and its fields interactively.`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireProject: true}, cmd.ModeHandlers{
				JSON: createJSONHandler,
				TUI:  createTUIHandler,
			}, args)
		},
	}
	c.Flags().String("app", "", "App (piece) name, e.g. @activepieces/piece-slack")
	c.Flags().String("name", "", "Connection name")
	c.Flags().String("type", dialogs.AuthSecretText, "Auth type (SECRET_TEXT, BASIC_AUTH, CUSTOM_AUTH, OAUTH2, NO_AUTH)")
	c.Flags().StringToString("value", nil, "Auth fields as key=value, e.g. secret_text=...")
	return c
}

func newDialog(ctx context.Context, executor *cmd.CommandExecutor) (*dialogs.NewConnectionDialog, error) {
	svc := resources.ConnectionService{Client: executor.GetClient(), ProjectID: executor.Config().Server.ProjectID}
	return dialogs.NewNewConnectionDialog(dialogs.NewConnectionConfig{
		Catalog: svc,
		Creator: svc,
		Logger:  logger.FromContext(ctx),
	})
}

// connectionInput reads the app and the connection fields from the flags.
func connectionInput(cobraCmd *cobra.Command) (string, dialogs.ConnectionInput, error) {
	var in dialogs.ConnectionInput
	app, err := cobraCmd.Flags().GetString("app")
	if err != nil {
		return "", in, fmt.Errorf("failed to get app flag: %w", err)
	}
	if in.Name, err = cobraCmd.Flags().GetString("name"); err != nil {
		return "", in, fmt.Errorf("failed to get name flag: %w", err)
	}
	if in.Type, err = cobraCmd.Flags().GetString("type"); err != nil {
		return "", in, fmt.Errorf("failed to get type flag: %w", err)
	}
	if in.Value, err = cobraCmd.Flags().GetStringToString("value"); err != nil {
		return "", in, fmt.Errorf("failed to get value flag: %w", err)
	}
	return app, in, nil
}

func createJSONHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	if err := cmd.ValidateRequiredFlags(cobraCmd, []string{"app", "name"}); err != nil {
		return err
	}
	app, in, err := connectionInput(cobraCmd)
	if err != nil {
		return err
	}
	dialog, err := newDialog(ctx, executor)
	if err != nil {
		return err
	}
	if err := dialog.Open(ctx); err != nil {
		return fmt.Errorf("failed to load apps: %w", err)
	}
	if err := dialog.Select(app); err != nil {
		return err
	}
	created, err := dialog.Submit(ctx, in)
	if err != nil {
		return err
	}
	return cmd.WriteAction(executor.Output(cobraCmd), created, fmt.Sprintf("Connection %s created", created.Name))
}

// createTUIHandler walks the same dialog through two huh forms unless the
// app was given as a flag.
func createTUIHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	if cobraCmd.Flags().Changed("app") {
		return createJSONHandler(ctx, cobraCmd, executor, args)
	}
	dialog, err := newDialog(ctx, executor)
	if err != nil {
		return err
	}
	if err := dialog.Open(ctx); err != nil {
		return fmt.Errorf("failed to load apps: %w", err)
	}
	data := &components.ConnectionFormData{}
	if err := components.NewFormWrapper(ctx, components.NewPieceSelectForm(dialog, data)).Run(ctx); err != nil {
		dialog.Cancel()
		return err
	}
	if err := dialog.Select(data.Piece); err != nil {
		dialog.Cancel()
		return err
	}
	if err := components.NewFormWrapper(ctx, components.NewConnectionFieldsForm(data)).Run(ctx); err != nil {
		dialog.Cancel()
		return err
	}
	created, err := dialog.Submit(ctx, data.Input())
	if err != nil {
		return err
	}
	return cmd.WriteAction(executor.Output(cobraCmd), created, fmt.Sprintf("Connection %s created", created.Name))
}

// DeleteCmd creates the connections delete command
func DeleteCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "delete <connection-id>",
		Short: "Delete an app connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireProject: true}, cmd.ModeHandlers{
				JSON: deleteHandler,
			}, args)
		},
	}
	cmd.AddYesFlag(c)
	return c
}

// deleteHandler resolves the connection from the project's listing; the
// API has no single-connection endpoint.
func deleteHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	client := executor.GetClient()
	conn, err := findConnection(ctx, client, executor.Config().Server.ProjectID, args[0])
	if err != nil {
		return err
	}
	message, err := cmd.DispatchRow(
		ctx,
		resources.ConnectionActions(client),
		resources.ActionDelete,
		conn.ID,
		conn,
		executor.Confirmer(cobraCmd),
	)
	if err != nil {
		return err
	}
	return cmd.WriteAction(executor.Output(cobraCmd), nil, message)
}

const maxLookupPages = 50

func findConnection(ctx context.Context, client resources.ConnectionsAPI, projectID, id string) (api.AppConnection, error) {
	req := listing.FetchRequest{ProjectID: projectID, Limit: 100}
	for range maxLookupPages {
		page, err := client.ListConnections(ctx, req)
		if err != nil {
			return api.AppConnection{}, err
		}
		for _, c := range page.Items {
			if c.ID == id {
				return c, nil
			}
		}
		if !page.HasNext() {
			break
		}
		req.Cursor = page.NextCursor
	}
	return api.AppConnection{}, listing.NewValidationError("connection", "connection %s not found", id)
}
