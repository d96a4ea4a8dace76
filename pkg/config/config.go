package config

import (
	"context"
	"time"
)

// Config represents the complete configuration for flowctl.
type Config struct {
	Server  ServerConfig  `koanf:"server"  validate:"required"`
	CLI     CLIConfig     `koanf:"cli"     validate:"required"`
	Listing ListingConfig `koanf:"listing" validate:"required"`
	Runtime RuntimeConfig `koanf:"runtime" validate:"required"`
}

// ServerConfig identifies the platform instance and the project every
// listing is scoped to.
type ServerConfig struct {
	URL       string `koanf:"url"        validate:"required,url" env:"FLOWCTL_SERVER_URL"`
	ProjectID string `koanf:"project_id"                         env:"FLOWCTL_PROJECT_ID"`
}

// CLIConfig contains CLI-specific configuration.
type CLIConfig struct {
	APIKey        SensitiveString `koanf:"api_key"        env:"FLOWCTL_API_KEY"        sensitive:"true"`
	Timeout       time.Duration   `koanf:"timeout"        env:"FLOWCTL_TIMEOUT"        validate:"min=0"`
	DefaultFormat string          `koanf:"default_format" env:"FLOWCTL_DEFAULT_FORMAT" validate:"omitempty,oneof=json table tui auto"`
	NoColor       bool            `koanf:"no_color"       env:"FLOWCTL_NO_COLOR"`
	Interactive   bool            `koanf:"interactive"    env:"FLOWCTL_INTERACTIVE"`
	Quiet         bool            `koanf:"quiet"          env:"FLOWCTL_QUIET"`
}

// ListingConfig tunes the listing engine shared by every resource table.
type ListingConfig struct {
	PageSize       int           `koanf:"page_size"       env:"FLOWCTL_PAGE_SIZE"       validate:"min=1,max=100"`
	FilterDebounce time.Duration `koanf:"filter_debounce" env:"FLOWCTL_FILTER_DEBOUNCE" validate:"min=0"`
	PageCacheSize  int           `koanf:"page_cache_size" env:"FLOWCTL_PAGE_CACHE_SIZE" validate:"min=0"`
	CatalogTTL     time.Duration `koanf:"catalog_ttl"     env:"FLOWCTL_CATALOG_TTL"     validate:"min=0"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	LogLevel  string `koanf:"log_level"  validate:"oneof=debug info warn error disabled" env:"FLOWCTL_LOG_LEVEL"`
	LogJSON   bool   `koanf:"log_json"                                                   env:"FLOWCTL_LOG_JSON"`
	LogSource bool   `koanf:"log_source"                                                 env:"FLOWCTL_LOG_SOURCE"`
	LogFile   string `koanf:"log_file"                                                   env:"FLOWCTL_LOG_FILE"`
}

// Service defines the configuration management service interface.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type that provided a configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	Load() (map[string]any, error)
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL: "http://localhost:4200/api",
		},
		CLI: CLIConfig{
			Timeout:       30 * time.Second,
			DefaultFormat: "auto",
		},
		Listing: ListingConfig{
			PageSize:       10,
			FilterDebounce: 300 * time.Millisecond,
			PageCacheSize:  16,
			CatalogTTL:     5 * time.Minute,
		},
		Runtime: RuntimeConfig{
			LogLevel: "info",
		},
	}
}
