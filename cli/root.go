package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/compozy/flowctl/cli/cmd/connections"
	configcmd "github.com/compozy/flowctl/cli/cmd/config"
	"github.com/compozy/flowctl/cli/cmd/flows"
	"github.com/compozy/flowctl/cli/cmd/folders"
	"github.com/compozy/flowctl/cli/cmd/pieces"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/cli/tui/models"
	"github.com/compozy/flowctl/pkg/config"
	"github.com/compozy/flowctl/pkg/logger"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

func RootCmd() *cobra.Command {
	var logSink io.Closer
	root := &cobra.Command{
		Use:   "flowctl",
		Short: "Browse and manage flows, connections and pieces from the terminal",
		Long: `flowctl lists the flows, app connections, folders and pieces of a project.
On an interactive terminal list commands open a full-screen table with filters,
paging and row actions; elsewhere they print one page as JSON or a table.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			closer, err := SetupGlobalConfig(cmd)
			logSink = closer
			return err
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if logSink != nil {
				return logSink.Close()
			}
			return nil
		},
	}

	addGlobalFlags(root)
	root.AddCommand(
		flows.NewFlowsCommand(),
		connections.NewConnectionsCommand(),
		folders.NewFoldersCommand(),
		pieces.NewPiecesCommand(),
		configcmd.NewConfigCommand(),
	)

	return root
}

func addGlobalFlags(root *cobra.Command) {
	defaults := config.Default()
	flags := root.PersistentFlags()
	flags.String("config", "flowctl.yaml", "Path to the config file")
	flags.String("env-file", ".env", "Path to the environment file")
	flags.String("server-url", defaults.Server.URL, "API base URL")
	flags.String("project", "", "Project ID every listing is scoped to")
	flags.String("api-key", "", "API key sent as a bearer token")
	flags.Duration("timeout", defaults.CLI.Timeout, "Request timeout")
	flags.String("format", defaults.CLI.DefaultFormat, "Output format (json, table, tui, auto)")
	flags.Bool("no-color", false, "Disable colored output")
	flags.Bool("interactive", false, "Force the interactive TUI")
	flags.Bool("quiet", false, "Suppress log output")
	flags.Int("page-size", defaults.Listing.PageSize, "Rows per page")
	flags.Duration("filter-debounce", defaults.Listing.FilterDebounce, "Delay before a filter change is fetched")
	flags.String("log-level", defaults.Runtime.LogLevel, "Log level (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Log as JSON")
	flags.Bool("log-source", false, "Include source locations in logs")
	flags.String("log-file", "", "Write logs to this file")
}

// SetupGlobalConfig loads the configuration, in precedence order defaults,
// config file, environment and flags, and stores it and a logger on the
// command context. The returned closer releases the log file, if any.
func SetupGlobalConfig(cmd *cobra.Command) (io.Closer, error) {
	if _, err := loadEnvFile(cmd); err != nil {
		return nil, fmt.Errorf("failed to load environment file: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cliFlags := extractCLIFlags(cmd)
	sources := []config.Source{}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config file: %w", err)
	}
	if configFile != "" {
		sources = append(sources, config.NewYAMLProvider(configFile))
	}
	if len(cliFlags) > 0 {
		sources = append(sources, config.NewCLIProvider(cliFlags))
	}

	manager := config.NewManager(config.NewService())
	cfg, err := manager.Load(ctx, sources...)
	if err != nil {
		return nil, err
	}
	ctx = config.ContextWithManager(ctx, manager)
	cmd.SetContext(ctx)

	level := cfg.Runtime.LogLevel
	if cfg.CLI.Quiet {
		level = logger.DisabledLevel.String()
	}
	sink, closer, err := logSink(cmd, cfg)
	if err != nil {
		return nil, err
	}
	log := logger.SetupLogger(level, cfg.Runtime.LogJSON, cfg.Runtime.LogSource, sink)
	cmd.SetContext(logger.ContextWithLogger(ctx, log))
	log.Debug("configuration loaded", "config_file", configFile, "project", cfg.Server.ProjectID)
	return closer, nil
}

// logSink sends logs to the configured file. Without one, a full-screen
// run discards logs so they cannot tear the screen.
func logSink(cmd *cobra.Command, cfg *config.Config) (io.Writer, io.Closer, error) {
	if cfg.Runtime.LogFile != "" {
		f, err := os.OpenFile(cfg.Runtime.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return f, f, nil
	}
	if helpers.DetectMode(cmd) == models.ModeTUI {
		return io.Discard, nil, nil
	}
	return cmd.ErrOrStderr(), nil, nil
}
