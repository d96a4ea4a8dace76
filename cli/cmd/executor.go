package cmd

import (
	"context"
	"fmt"

	"github.com/compozy/flowctl/cli/api"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/cli/resources"
	"github.com/compozy/flowctl/cli/tui/models"
	"github.com/compozy/flowctl/pkg/config"
	"github.com/compozy/flowctl/pkg/logger"
	"github.com/spf13/cobra"
)

// CommandExecutor handles common setup and execution patterns for CLI commands.
// It eliminates boilerplate code by providing a single place for:
// - Client creation
// - Mode detection
// - Context cancellation
// - Error handling
type CommandExecutor struct {
	mode   models.Mode
	cfg    *config.Config
	client *api.Client
}

// HandlerFunc defines the signature for command handlers.
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, executor *CommandExecutor, args []string) error

// ModeHandlers contains handlers for different execution modes.
type ModeHandlers struct {
	JSON HandlerFunc
	TUI  HandlerFunc
}

// ExecutorOptions allows customization of the command executor
type ExecutorOptions struct {
	RequireClient  bool
	RequireProject bool
}

// NewCommandExecutor creates a new command executor with all necessary setup.
func NewCommandExecutor(cmd *cobra.Command, opts ExecutorOptions) (*CommandExecutor, error) {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	mode := helpers.DetectMode(cmd)
	log.Debug("detected execution mode", "mode", mode)
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("configuration manager not found in context")
	}
	executor := &CommandExecutor{mode: mode, cfg: cfg}
	if opts.RequireProject && cfg.Server.ProjectID == "" {
		return nil, helpers.NewCliError(
			"MISSING_PROJECT",
			"project is required",
			"set server.project_id in the config file, FLOWCTL_PROJECT_ID, or use --project",
		)
	}
	if opts.RequireClient || opts.RequireProject {
		client, err := api.NewClient(api.Options{
			BaseURL:    cfg.Server.URL,
			APIKey:     cfg.CLI.APIKey.Value(),
			Timeout:    cfg.CLI.Timeout,
			RetryCount: 2,
			CatalogTTL: cfg.Listing.CatalogTTL,
			Debug:      cfg.Runtime.LogLevel == "debug",
			Logger:     log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create API client: %w", err)
		}
		executor.client = client
	}
	return executor, nil
}

// Execute runs the appropriate handler based on the detected mode.
func (e *CommandExecutor) Execute(ctx context.Context, cmd *cobra.Command, handlers ModeHandlers, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	switch e.mode {
	case models.ModeJSON:
		if handlers.JSON == nil {
			return fmt.Errorf("JSON mode handler not implemented")
		}
		return handlers.JSON(ctx, cmd, e, args)
	case models.ModeTUI:
		if handlers.TUI == nil {
			// commands without a screen fall back to plain output
			if handlers.JSON != nil {
				return handlers.JSON(ctx, cmd, e, args)
			}
			return fmt.Errorf("TUI mode handler not implemented")
		}
		return handlers.TUI(ctx, cmd, e, args)
	default:
		return fmt.Errorf("unsupported mode: %s", e.mode)
	}
}

// GetClient returns the configured API client.
func (e *CommandExecutor) GetClient() *api.Client {
	return e.client
}

// GetMode returns the detected execution mode.
func (e *CommandExecutor) GetMode() models.Mode {
	return e.mode
}

func (e *CommandExecutor) Config() *config.Config {
	return e.cfg
}

// Settings returns the engine settings for this run. Non-interactive runs
// load once, so filters are applied without debouncing.
func (e *CommandExecutor) Settings(ctx context.Context) resources.Settings {
	s := resources.SettingsFromConfig(e.cfg, logger.FromContext(ctx))
	if e.mode != models.ModeTUI {
		s.Debounce = 0
	}
	return s
}

// Output returns a writer for the command's stdout in the configured format.
func (e *CommandExecutor) Output(cmd *cobra.Command) *helpers.OutputWriter {
	return helpers.NewOutputWriter(cmd.OutOrStdout(), helpers.GetOutputFormat(cmd), helpers.ShouldUseColor(cmd))
}

// ExecuteCommand is a convenience function that combines executor creation and execution.
func ExecuteCommand(cmd *cobra.Command, opts ExecutorOptions, handlers ModeHandlers, args []string) error {
	executor, err := NewCommandExecutor(cmd, opts)
	if err != nil {
		return HandleCommonErrors(cmd, err, helpers.DetectMode(cmd))
	}
	return HandleCommonErrors(cmd, executor.Execute(cmd.Context(), cmd, handlers, args), executor.GetMode())
}

// ValidateRequiredFlags checks that all required flags are present and valid.
func ValidateRequiredFlags(cmd *cobra.Command, required []string) error {
	for _, flag := range required {
		if !cmd.Flags().Changed(flag) {
			return helpers.NewCliError("MISSING_FLAG", fmt.Sprintf("required flag '%s' not specified", flag))
		}

		if value, err := cmd.Flags().GetString(flag); err == nil && value == "" {
			return helpers.NewCliError("EMPTY_FLAG", fmt.Sprintf("required flag '%s' cannot be empty", flag))
		}
	}
	return nil
}

// HandleCommonErrors provides consistent error handling across all commands.
func HandleCommonErrors(cmd *cobra.Command, err error, mode models.Mode) error {
	if err == nil {
		return nil
	}
	cliErr := helpers.CategorizeError(err)
	if cliErr == nil {
		cliErr = helpers.NewCliError("COMMAND_FAILED", err.Error()).WithCause(err)
	}
	helpers.WriteError(cmd.ErrOrStderr(), cliErr, mode)
	return cliErr
}
