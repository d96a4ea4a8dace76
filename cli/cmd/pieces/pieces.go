package pieces

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/compozy/flowctl/cli/cmd"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/cli/resources"
	"github.com/compozy/flowctl/cli/tui/components"
	"github.com/compozy/flowctl/cli/tui/screens"
	"github.com/compozy/flowctl/pkg/dialogs"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
	"github.com/spf13/cobra"
)

// maxInstallAttempts bounds how often the interactive form is reopened
// after a failed install.
const maxInstallAttempts = 3

// NewPiecesCommand creates the pieces command group
func NewPiecesCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "pieces",
		Short: "Browse and install pieces",
	}
	c.AddCommand(ListCmd(), InstallCmd())
	return c
}

// ListCmd creates the pieces list command
func ListCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "list",
		Short: "List the piece catalog",
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireClient: true}, cmd.ModeHandlers{
				JSON: listJSONHandler,
				TUI:  listTUIHandler,
			}, args)
		},
	}
	c.Flags().String("search", "", "Match display or package name")
	cmd.AddListFlags(c)
	return c
}

func listQuery(cobraCmd *cobra.Command) (cmd.ListQuery, error) {
	filters := url.Values{}
	search, err := cobraCmd.Flags().GetString("search")
	if err != nil {
		return cmd.ListQuery{}, fmt.Errorf("failed to get search flag: %w", err)
	}
	if search != "" {
		filters.Set(resources.FilterSearch, search)
	}
	return cmd.ParseListQuery(cobraCmd, filters)
}

func listJSONHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	query, err := listQuery(cobraCmd)
	if err != nil {
		return err
	}
	engine, err := resources.NewPiecesEngine(executor.GetClient(), executor.Settings(ctx))
	if err != nil {
		return err
	}
	snap, err := cmd.LoadPage(ctx, engine, query)
	if err != nil {
		return fmt.Errorf("failed to list pieces: %w", err)
	}
	return cmd.WriteListing(
		executor.Output(cobraCmd),
		snap,
		resources.PieceColumns(),
		engine.Filters(),
		"",
		"No pieces match",
	)
}

func listTUIHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	query, err := listQuery(cobraCmd)
	if err != nil {
		return err
	}
	client := executor.GetClient()
	engine, err := resources.NewPiecesEngine(client, executor.Settings(ctx))
	if err != nil {
		return err
	}
	if err := cmd.StrictFilters(engine.Filters(), query.Filters); err != nil {
		return err
	}
	engine.Initialize(query.Filters)
	screen, err := screens.NewPieces(ctx, screens.PiecesConfig{
		Client:     client,
		Pieces:     engine,
		Invalidate: client.InvalidatePieces,
		Logger:     logger.FromContext(ctx),
	})
	if err != nil {
		return err
	}
	defer screen.Close()
	return cmd.RunScreen(ctx, screen, engine)
}

// InstallCmd creates the pieces install command
func InstallCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "install",
		Short: "Install a piece from the registry or an archive",
		Long: `Install a piece for the project or the whole platform.
Without --name the command asks for the values interactively.`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireClient: true}, cmd.ModeHandlers{
				JSON: installJSONHandler,
				TUI:  installTUIHandler,
			}, args)
		},
	}
	c.Flags().String("name", "", "Piece package name, e.g. @activepieces/piece-slack")
	c.Flags().String("version", "", "Piece version, e.g. 0.3.1")
	c.Flags().String("type", dialogs.PackageRegistry, "Package type (REGISTRY or ARCHIVE)")
	c.Flags().String("scope", dialogs.ScopeProject, "Install scope (PROJECT or PLATFORM)")
	c.Flags().String("archive", "", "Path to a .tgz archive when --type is ARCHIVE")
	return c
}

func newInstallForm(ctx context.Context, executor *cmd.CommandExecutor) (*dialogs.InstallPieceForm, error) {
	client := executor.GetClient()
	svc := resources.PieceService{Client: client}
	return dialogs.NewInstallPieceForm(dialogs.InstallConfig{
		Installer:   svc,
		Flags:       svc,
		OnInstalled: client.InvalidatePieces,
		FileExists:  helpers.FileExists,
		Logger:      logger.FromContext(ctx),
	})
}

func installInput(cobraCmd *cobra.Command) (dialogs.InstallInput, error) {
	flags := cobraCmd.Flags()
	in := dialogs.InstallInput{}
	for flag, dst := range map[string]*string{
		"name":    &in.PieceName,
		"version": &in.PieceVersion,
		"type":    &in.PackageType,
		"scope":   &in.Scope,
		"archive": &in.ArchivePath,
	} {
		value, err := flags.GetString(flag)
		if err != nil {
			return in, fmt.Errorf("failed to get %s flag: %w", flag, err)
		}
		*dst = value
	}
	return in, nil
}

func installJSONHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	form, err := newInstallForm(ctx, executor)
	if err != nil {
		return err
	}
	form.Open(ctx)
	in, err := installInput(cobraCmd)
	if err != nil {
		return err
	}
	if err := form.Submit(ctx, in); err != nil {
		return installError(form, err)
	}
	return cmd.WriteAction(executor.Output(cobraCmd), in, dialogs.PieceInstalledMessage)
}

// installError keeps the message the form shows for server failures.
func installError(form *dialogs.InstallPieceForm, err error) error {
	if listing.IsValidation(err) {
		return err
	}
	msg := form.ServerError()
	if listing.IsConflict(err) {
		return helpers.NewCliError("CONFLICT", msg).WithCause(err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func installTUIHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	if cobraCmd.Flags().Changed("name") {
		return installJSONHandler(ctx, cobraCmd, executor, args)
	}
	form, err := newInstallForm(ctx, executor)
	if err != nil {
		return err
	}
	form.Open(ctx)
	defer form.Close()
	log := logger.FromContext(ctx)
	var lastErr error
	for attempt := 1; attempt <= maxInstallAttempts; attempt++ {
		data := &dialogs.InstallInput{}
		if err := components.NewFormWrapper(ctx, components.NewInstallPieceFields(form, data)).Run(ctx); err != nil {
			return err
		}
		lastErr = form.Submit(ctx, *data)
		if lastErr == nil {
			return cmd.WriteAction(executor.Output(cobraCmd), *data, dialogs.PieceInstalledMessage)
		}
		if errors.Is(lastErr, context.Canceled) {
			return lastErr
		}
		log.Debug("install attempt failed", "attempt", attempt, "error", lastErr)
		if listing.IsValidation(lastErr) {
			fmt.Fprintln(cobraCmd.ErrOrStderr(), lastErr.Error())
		}
	}
	return installError(form, lastErr)
}
