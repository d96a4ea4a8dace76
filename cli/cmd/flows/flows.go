package flows

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/compozy/flowctl/cli/api"
	"github.com/compozy/flowctl/cli/cmd"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/cli/resources"
	"github.com/compozy/flowctl/cli/tui/components"
	"github.com/compozy/flowctl/cli/tui/screens"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
	"github.com/spf13/cobra"
)

// NewFlowsCommand creates the flows command group
func NewFlowsCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "flows",
		Short: "List and manage flows",
		Long:  "List, filter and manage the flows of a project.",
	}
	c.AddCommand(
		ListCmd(),
		CreateCmd(),
		ImportCmd(),
		RenameCmd(),
		MoveCmd(),
		DuplicateCmd(),
		StatusCmd("enable", api.FlowStatusEnabled),
		StatusCmd("disable", api.FlowStatusDisabled),
		DeleteCmd(),
		ShareCmd(),
		OpenCmd(),
	)
	return c
}

func addFilterFlags(c *cobra.Command) {
	c.Flags().String("name", "", "Filter by flow name")
	c.Flags().StringSlice("status", nil, "Filter by status (ENABLED, DISABLED)")
	c.Flags().String("folder", "", "Filter by folder name, or \"Uncategorized\"")
}

// ListCmd creates the flows list command
func ListCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "list",
		Short: "List flows",
		Long: `List the flows of the project one page at a time.
In a terminal the list opens as an interactive table with a folder sidebar.`,
		RunE: runList,
	}
	addFilterFlags(c)
	c.Flags().Int("limit", 0, "Page size (defaults to listing.page_size)")
	cmd.AddListFlags(c)
	return c
}

func runList(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireProject: true}, cmd.ModeHandlers{
		JSON: listJSONHandler,
		TUI:  listTUIHandler,
	}, args)
}

// filterValues reads the filter flags. The folder name is resolved
// through names, which is loaded on demand.
func filterValues(
	ctx context.Context,
	cobraCmd *cobra.Command,
	client resources.FoldersAPI,
	projectID string,
	names *resources.FolderNames,
) (url.Values, error) {
	q := url.Values{}
	name, err := cobraCmd.Flags().GetString("name")
	if err != nil {
		return nil, fmt.Errorf("failed to get name flag: %w", err)
	}
	if name != "" {
		q.Set(resources.FilterName, name)
	}
	statuses, err := cobraCmd.Flags().GetStringSlice("status")
	if err != nil {
		return nil, fmt.Errorf("failed to get status flag: %w", err)
	}
	for _, s := range statuses {
		q.Add(resources.FilterStatus, s)
	}
	folder, err := cobraCmd.Flags().GetString("folder")
	if err != nil {
		return nil, fmt.Errorf("failed to get folder flag: %w", err)
	}
	if cobraCmd.Flags().Changed("folder") {
		id, err := resolveFolder(ctx, client, projectID, names, folder)
		if err != nil {
			return nil, err
		}
		q.Set(resources.FilterFolderID, id)
	}
	return q, nil
}

func resolveFolder(
	ctx context.Context,
	client resources.FoldersAPI,
	projectID string,
	names *resources.FolderNames,
	folder string,
) (string, error) {
	if id, ok := names.Lookup(folder); ok {
		return id, nil
	}
	if err := names.Load(ctx, client, projectID); err != nil {
		return "", err
	}
	if id, ok := names.Lookup(folder); ok {
		return id, nil
	}
	return "", listing.NewValidationError("folder", "unknown folder %q", folder)
}

func settingsWithLimit(cobraCmd *cobra.Command, s resources.Settings) (resources.Settings, error) {
	limit, err := cobraCmd.Flags().GetInt("limit")
	if err != nil {
		return s, fmt.Errorf("failed to get limit flag: %w", err)
	}
	if limit > 0 {
		s.PageSize = limit
	}
	return s, nil
}

func listJSONHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	log := logger.FromContext(ctx)
	client := executor.GetClient()
	settings, err := settingsWithLimit(cobraCmd, executor.Settings(ctx))
	if err != nil {
		return err
	}
	names := resources.NewFolderNames()
	filters, err := filterValues(ctx, cobraCmd, client, settings.ProjectID, names)
	if err != nil {
		return err
	}
	query, err := cmd.ParseListQuery(cobraCmd, filters)
	if err != nil {
		return err
	}
	engine, err := resources.NewFlowsEngine(client, settings)
	if err != nil {
		return err
	}
	snap, err := cmd.LoadPage(ctx, engine, query)
	if err != nil {
		return fmt.Errorf("failed to list flows: %w", err)
	}
	log.Debug("flows listed", "count", len(snap.Rows), "page", snap.PageNumber)
	out := executor.Output(cobraCmd)
	if out.Format() == helpers.OutputFormatTable {
		if err := names.Load(ctx, client, settings.ProjectID); err != nil {
			log.Warn("folder names unavailable", "error", err)
		}
	}
	return cmd.WriteListing(
		out,
		snap,
		resources.FlowColumns(names),
		engine.Filters(),
		resources.ShareURL(client, engine),
		"No flows found",
	)
}

func listTUIHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	log := logger.FromContext(ctx)
	client := executor.GetClient()
	settings, err := settingsWithLimit(cobraCmd, executor.Settings(ctx))
	if err != nil {
		return err
	}
	names := resources.NewFolderNames()
	if err := names.Load(ctx, client, settings.ProjectID); err != nil {
		log.Warn("folder names unavailable", "error", err)
	}
	filters, err := filterValues(ctx, cobraCmd, client, settings.ProjectID, names)
	if err != nil {
		return err
	}
	query, err := cmd.ParseListQuery(cobraCmd, filters)
	if err != nil {
		return err
	}
	flows, err := resources.NewFlowsEngine(client, settings)
	if err != nil {
		return err
	}
	if err := cmd.StrictFilters(flows.Filters(), query.Filters); err != nil {
		return err
	}
	folders, err := resources.NewFoldersEngine(client, settings)
	if err != nil {
		return err
	}
	flows.Initialize(query.Filters)
	if query.Sort != nil {
		if err := flows.SetSort(query.Sort); err != nil {
			return err
		}
	}
	folders.Initialize(nil)
	screen, err := screens.NewFlows(ctx, screens.FlowsConfig{
		ProjectID:   settings.ProjectID,
		Client:      client,
		Flows:       flows,
		Folders:     folders,
		FolderNames: names,
		Toasts:      components.NewToasts(0),
		Clipboard:   helpers.CopyToClipboard,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	defer screen.Close()
	return cmd.RunScreen(ctx, screen, flows, folders)
}

// CreateCmd creates the flows create command
func CreateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "create",
		Short: "Create an empty flow",
		Long: fmt.Sprintf(`Create a flow named %q and print the builder URL.
With --folder the flow is created inside that folder.`, resources.NewFlowName),
		Args: cobra.NoArgs,
		RunE: runCreate,
	}
	c.Flags().String("folder", "", "Folder name")
	return c
}

func runCreate(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireProject: true}, cmd.ModeHandlers{
		JSON: createHandler,
	}, args)
}

func createHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	client := executor.GetClient()
	projectID := executor.Config().Server.ProjectID
	folderID, err := targetFolder(ctx, cobraCmd, client, projectID)
	if err != nil {
		return err
	}
	res, err := resources.CreateFromScratch(ctx, client, projectID, folderID)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("Created %s: %s", res.Flow.Version.DisplayName, res.BuilderURL)
	return cmd.WriteAction(executor.Output(cobraCmd), res, message)
}

// targetFolder resolves --folder, or returns "" when it was not given.
func targetFolder(
	ctx context.Context,
	cobraCmd *cobra.Command,
	client resources.FoldersAPI,
	projectID string,
) (string, error) {
	if !cobraCmd.Flags().Changed("folder") {
		return "", nil
	}
	folder, err := cobraCmd.Flags().GetString("folder")
	if err != nil {
		return "", fmt.Errorf("failed to get folder flag: %w", err)
	}
	return resolveFolder(ctx, client, projectID, resources.NewFolderNames(), folder)
}

// ImportCmd creates the flows import command
func ImportCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a flow from an exported JSON file",
		Long: `Create a flow from an exported flow file and print the builder URL.
The file holds either a template envelope or a bare flow version.
With --folder the flow is created inside that folder.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
	c.Flags().String("folder", "", "Folder name")
	return c
}

func runImport(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireProject: true}, cmd.ModeHandlers{
		JSON: importHandler,
	}, args)
}

func importHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	if err := helpers.ValidateRequired(args[0], "file"); err != nil {
		return err
	}
	version, err := resources.ReadFlowTemplate(args[0])
	if err != nil {
		return err
	}
	client := executor.GetClient()
	projectID := executor.Config().Server.ProjectID
	folderID, err := targetFolder(ctx, cobraCmd, client, projectID)
	if err != nil {
		return err
	}
	res, err := resources.ImportFlow(ctx, client, projectID, folderID, version)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("Imported %s: %s", res.Flow.Version.DisplayName, res.BuilderURL)
	return cmd.WriteAction(executor.Output(cobraCmd), res, message)
}

type inputsFunc func(
	ctx context.Context,
	cobraCmd *cobra.Command,
	executor *cmd.CommandExecutor,
	args []string,
) (resources.FlowInputs, error)

// rowHandler runs one flow action on args[0]. The flow is fetched first so
// the dispatcher can resolve it by id.
func rowHandler(action string, inputs inputsFunc) cmd.HandlerFunc {
	return func(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
		client := executor.GetClient()
		var in resources.FlowInputs = resources.StaticFlowInputs{}
		if inputs != nil {
			var err error
			if in, err = inputs(ctx, cobraCmd, executor, args); err != nil {
				return err
			}
		}
		flow, err := client.GetFlow(ctx, args[0])
		if err != nil {
			return err
		}
		message, err := cmd.DispatchRow(
			ctx,
			resources.FlowActions(client, in),
			action,
			flow.ID,
			*flow,
			executor.Confirmer(cobraCmd),
		)
		if err != nil {
			return err
		}
		var data any
		if action != resources.ActionDelete {
			updated, err := client.GetFlow(ctx, flow.ID)
			if err != nil {
				return err
			}
			data = updated
		}
		return cmd.WriteAction(executor.Output(cobraCmd), data, message)
	}
}

func rowCommand(use, short string, args cobra.PositionalArgs, handler cmd.HandlerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireClient: true}, cmd.ModeHandlers{
				JSON: handler,
			}, args)
		},
	}
}

// RenameCmd creates the flows rename command
func RenameCmd() *cobra.Command {
	return rowCommand("rename <flow-id> <name>", "Rename a flow", cobra.ExactArgs(2),
		rowHandler(resources.ActionRename,
			func(_ context.Context, _ *cobra.Command, _ *cmd.CommandExecutor, args []string) (resources.FlowInputs, error) {
				return resources.StaticFlowInputs{Name: args[1]}, nil
			}))
}

// MoveCmd creates the flows move command
func MoveCmd() *cobra.Command {
	c := rowCommand("move <flow-id>", "Move a flow to another folder", cobra.ExactArgs(1),
		rowHandler(resources.ActionMove, moveInputs))
	c.Flags().String("folder", "", "Target folder name, or \"Uncategorized\"")
	_ = c.MarkFlagRequired("folder")
	return c
}

func moveInputs(
	ctx context.Context,
	cobraCmd *cobra.Command,
	executor *cmd.CommandExecutor,
	_ []string,
) (resources.FlowInputs, error) {
	folder, err := cobraCmd.Flags().GetString("folder")
	if err != nil {
		return nil, fmt.Errorf("failed to get folder flag: %w", err)
	}
	id, err := resolveFolder(
		ctx,
		executor.GetClient(),
		executor.Config().Server.ProjectID,
		resources.NewFolderNames(),
		folder,
	)
	if err != nil {
		return nil, err
	}
	return resources.StaticFlowInputs{FolderID: id}, nil
}

// DuplicateCmd creates the flows duplicate command
func DuplicateCmd() *cobra.Command {
	return rowCommand("duplicate <flow-id>", "Duplicate a flow into its folder", cobra.ExactArgs(1),
		rowHandler(resources.ActionDuplicate, nil))
}

// StatusCmd creates the enable or disable command. The toggle action only
// runs when the flow is not already in the wanted status.
func StatusCmd(use string, want api.FlowStatus) *cobra.Command {
	toggle := rowHandler(resources.ActionToggleStatus, nil)
	handler := func(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
		flow, err := executor.GetClient().GetFlow(ctx, args[0])
		if err != nil {
			return err
		}
		if flow.Status == want {
			message := fmt.Sprintf("Flow already %s", strings.ToLower(resources.StatusLabel(want)))
			return cmd.WriteAction(executor.Output(cobraCmd), flow, message)
		}
		return toggle(ctx, cobraCmd, executor, args)
	}
	return rowCommand(use+" <flow-id>", fmt.Sprintf("Set a flow %s", strings.ToLower(resources.StatusLabel(want))),
		cobra.ExactArgs(1), handler)
}

// DeleteCmd creates the flows delete command
func DeleteCmd() *cobra.Command {
	c := rowCommand("delete <flow-id>", "Delete a flow", cobra.ExactArgs(1), rowHandler(resources.ActionDelete, nil))
	cmd.AddYesFlag(c)
	return c
}

// ShareCmd creates the flows share command
func ShareCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "share",
		Short: "Print the browser URL of the flows page with filters",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireProject: true}, cmd.ModeHandlers{
				JSON: shareHandler,
			}, args)
		},
	}
	addFilterFlags(c)
	c.Flags().Bool("copy", false, "Copy the URL to the clipboard")
	return c
}

func shareHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	client := executor.GetClient()
	values, err := filterValues(ctx, cobraCmd, client, executor.Config().Server.ProjectID, resources.NewFolderNames())
	if err != nil {
		return err
	}
	filters := resources.FlowFilters()
	if err := cmd.StrictFilters(filters, values); err != nil {
		return err
	}
	link := resources.FlowsPageURL(client, filters.Encode(filters.Decode(values)))
	message := link
	if copyURL, _ := cobraCmd.Flags().GetBool("copy"); copyURL {
		if err := helpers.CopyToClipboard(link); err != nil {
			logger.FromContext(ctx).Warn("clipboard unavailable", "error", err)
		} else {
			message = "Link copied: " + link
		}
	}
	return cmd.WriteAction(executor.Output(cobraCmd), map[string]string{"url": link}, message)
}

// OpenCmd creates the flows open command
func OpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <flow-id>",
		Short: "Print the builder URL of a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireClient: true}, cmd.ModeHandlers{
				JSON: func(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
					client := executor.GetClient()
					flow, err := client.GetFlow(ctx, args[0])
					if err != nil {
						return err
					}
					link := resources.BuilderURL(client, flow.ID)
					return cmd.WriteAction(executor.Output(cobraCmd), map[string]string{"url": link}, link)
				},
			}, args)
		},
	}
}
