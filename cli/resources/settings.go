// Package resources binds the platform resources (flows, connections,
// folders, pieces) to the listing engine: fetch adapters, columns,
// filters and row actions.
package resources

import (
	"time"

	"github.com/compozy/flowctl/pkg/config"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
)

// Settings carries what every resource engine needs from configuration.
type Settings struct {
	ProjectID    string
	PageSize     int
	Debounce     time.Duration
	PageCache    int
	FetchTimeout time.Duration
	Logger       logger.Logger
}

func SettingsFromConfig(cfg *config.Config, log logger.Logger) Settings {
	return Settings{
		ProjectID:    cfg.Server.ProjectID,
		PageSize:     cfg.Listing.PageSize,
		Debounce:     cfg.Listing.FilterDebounce,
		PageCache:    cfg.Listing.PageCacheSize,
		FetchTimeout: cfg.CLI.Timeout,
		Logger:       log,
	}
}

func engineConfig[T any](name string, s Settings, fetcher listing.Fetcher[T], filters *listing.Filters) listing.Config[T] {
	return listing.Config[T]{
		Name:         name,
		ProjectID:    s.ProjectID,
		Fetcher:      fetcher,
		Filters:      filters,
		PageSize:     s.PageSize,
		Debounce:     s.Debounce,
		FetchTimeout: s.FetchTimeout,
		PageCache:    s.PageCache,
		Logger:       s.Logger,
	}
}
