package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/compozy/flowctl/cli/cmd"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/pkg/config"
	"github.com/compozy/flowctl/pkg/logger"
)

const redacted = "[REDACTED]"

// Pre-compiled regex for URL token redaction
var tokenRegex = regexp.MustCompile(`token=[^&\s]+`)

// NewConfigCommand creates the config command using the unified command pattern
func NewConfigCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Configuration management and diagnostics",
		Long:  `Inspect the configuration flowctl resolved from flags, the config file, the environment and defaults.`,
	}

	c.AddCommand(
		NewConfigShowCommand(),
		NewConfigValidateCommand(),
		NewConfigEnvCommand(),
	)

	return c
}

// NewConfigShowCommand creates the config show subcommand
func NewConfigShowCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration values",
		Long: `Display the current configuration values in different formats.
Supports JSON, YAML, and table output formats. Secrets are redacted.`,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{}, cmd.ModeHandlers{
				JSON: handleConfigShow,
			}, args)
		},
	}

	c.Flags().StringP("output", "o", "table", "Output format (json, yaml, table)")
	c.Flags().BoolP("sources", "s", false, "Show which source provided each value")

	return c
}

func handleConfigShow(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	log := logger.FromContext(ctx)
	log.Debug("executing config show command")

	format := helpers.GetFlagStringWithDefault(cobraCmd, "output", "table")
	if err := helpers.ValidateEnum(format, []string{"json", "yaml", "table"}, "output"); err != nil {
		return err
	}
	showSources, err := cobraCmd.Flags().GetBool("sources")
	if err != nil {
		return fmt.Errorf("failed to get sources flag: %w", err)
	}
	var sources map[string]config.SourceType
	if showSources {
		sources = collectSources(config.ManagerFromContext(ctx).Service, flattenConfig(executor.Config()))
	}
	return formatConfigOutput(cobraCmd.OutOrStdout(), executor.Config(), sources, format)
}

// NewConfigValidateCommand creates the config validate subcommand
func NewConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the resolved configuration",
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{}, cmd.ModeHandlers{
				JSON: handleConfigValidate,
			}, args)
		},
	}
}

func handleConfigValidate(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	service := config.ManagerFromContext(ctx).Service
	if err := service.Validate(executor.Config()); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return cmd.WriteAction(executor.Output(cobraCmd), map[string]any{"valid": true}, "Configuration is valid")
}

// NewConfigEnvCommand creates the config env subcommand
func NewConfigEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the environment variables flowctl reads",
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			return outputEnvMappings(cobraCmd.OutOrStdout())
		},
	}
}

func outputEnvMappings(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENV\tKEY")
	for _, m := range config.GenerateEnvMappings() {
		fmt.Fprintf(w, "%s\t%s\n", m.EnvVar, m.ConfigPath)
	}
	return w.Flush()
}

// formatConfigOutput formats and outputs configuration based on requested format
func formatConfigOutput(
	out io.Writer,
	cfg *config.Config,
	sources map[string]config.SourceType,
	format string,
) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(configDocument(cfg, sources))
	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(configDocument(cfg, sources)); err != nil {
			return err
		}
		return encoder.Close()
	case "table":
		return outputTable(out, cfg, sources)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func configDocument(cfg *config.Config, sources map[string]config.SourceType) map[string]any {
	doc := map[string]any{"config": flattenConfig(cfg)}
	if len(sources) > 0 {
		doc["sources"] = sources
	}
	return doc
}

// outputTable outputs configuration as a table
func outputTable(out io.Writer, cfg *config.Config, sources map[string]config.SourceType) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	flatMap := flattenConfig(cfg)
	keys := make([]string, 0, len(flatMap))
	for k := range flatMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if sources != nil {
		fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
		fmt.Fprintln(w, "---\t-----\t------")
	} else {
		fmt.Fprintln(w, "KEY\tVALUE")
		fmt.Fprintln(w, "---\t-----")
	}
	for _, key := range keys {
		if sources != nil {
			fmt.Fprintf(w, "%s\t%s\t%s\n", key, flatMap[key], sources[key])
		} else {
			fmt.Fprintf(w, "%s\t%s\n", key, flatMap[key])
		}
	}
	return w.Flush()
}

func collectSources(service config.Service, flat map[string]string) map[string]config.SourceType {
	sources := make(map[string]config.SourceType, len(flat))
	for key := range flat {
		source := service.GetSource(key)
		if source == "" {
			source = config.SourceDefault
		}
		sources[key] = source
	}
	return sources
}

// flattenConfig converts nested config to a flat, redacted key-value map
func flattenConfig(cfg *config.Config) map[string]string {
	result := make(map[string]string)
	flattenServerConfig(cfg, result)
	flattenCLIConfig(cfg, result)
	flattenListingConfig(cfg, result)
	flattenRuntimeConfig(cfg, result)
	return result
}

func flattenServerConfig(cfg *config.Config, result map[string]string) {
	result["server.url"] = redactURL(cfg.Server.URL)
	result["server.project_id"] = cfg.Server.ProjectID
}

func flattenCLIConfig(cfg *config.Config, result map[string]string) {
	result["cli.api_key"] = redactSensitive(cfg.CLI.APIKey.Value())
	result["cli.timeout"] = cfg.CLI.Timeout.String()
	result["cli.default_format"] = cfg.CLI.DefaultFormat
	result["cli.no_color"] = strconv.FormatBool(cfg.CLI.NoColor)
	result["cli.interactive"] = strconv.FormatBool(cfg.CLI.Interactive)
	result["cli.quiet"] = strconv.FormatBool(cfg.CLI.Quiet)
}

func flattenListingConfig(cfg *config.Config, result map[string]string) {
	result["listing.page_size"] = strconv.Itoa(cfg.Listing.PageSize)
	result["listing.filter_debounce"] = cfg.Listing.FilterDebounce.String()
	result["listing.page_cache_size"] = strconv.Itoa(cfg.Listing.PageCacheSize)
	result["listing.catalog_ttl"] = cfg.Listing.CatalogTTL.String()
}

func flattenRuntimeConfig(cfg *config.Config, result map[string]string) {
	result["runtime.log_level"] = cfg.Runtime.LogLevel
	result["runtime.log_json"] = strconv.FormatBool(cfg.Runtime.LogJSON)
	result["runtime.log_source"] = strconv.FormatBool(cfg.Runtime.LogSource)
	result["runtime.log_file"] = cfg.Runtime.LogFile
}

// redactURL hides the password and token parameters of a URL
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return tokenRegex.ReplaceAllString(u.Redacted(), "token="+redacted)
}

// redactSensitive redacts sensitive string values
func redactSensitive(value string) string {
	if value == "" {
		return ""
	}
	return redacted
}
