package folders

import (
	"context"
	"fmt"

	"github.com/compozy/flowctl/cli/cmd"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/cli/resources"
	"github.com/spf13/cobra"
)

// NewFoldersCommand creates the folders command group
func NewFoldersCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "folders",
		Short: "List flow folders",
	}
	c.AddCommand(ListCmd(), GetCmd())
	return c
}

// ListCmd creates the folders list command. The interactive folder view is
// the sidebar of "flows list".
func ListCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "list",
		Short: "List the folders of the project",
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireProject: true}, cmd.ModeHandlers{
				JSON: listHandler,
			}, args)
		},
	}
	cmd.AddListFlags(c)
	return c
}

func listHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	query, err := cmd.ParseListQuery(cobraCmd, nil)
	if err != nil {
		return err
	}
	engine, err := resources.NewFoldersEngine(executor.GetClient(), executor.Settings(ctx))
	if err != nil {
		return err
	}
	snap, err := cmd.LoadPage(ctx, engine, query)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}
	return cmd.WriteListing(
		executor.Output(cobraCmd),
		snap,
		resources.FolderColumns(),
		engine.Filters(),
		"",
		"No folders yet",
	)
}

// GetCmd creates the folders get command
func GetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <folder-id>",
		Short: "Show one folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireClient: true}, cmd.ModeHandlers{
				JSON: getHandler,
			}, args)
		},
	}
}

func getHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	folder, err := executor.GetClient().GetFolder(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get folder: %w", err)
	}
	out := executor.Output(cobraCmd)
	columns := resources.FolderColumns()
	if out.Format() == helpers.OutputFormatTable {
		return out.WriteTable(columns.Headers(), [][]string{columns.Row(*folder)}, "")
	}
	return out.WriteData(folder)
}
