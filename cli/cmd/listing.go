package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/cli/tui/models"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// ListQuery is what a non-interactive list command asks of an engine.
type ListQuery struct {
	Filters url.Values
	Sort    *listing.SortSpec
	Page    int
}

// AddListFlags registers the flags shared by every list command.
func AddListFlags(cmd *cobra.Command) {
	cmd.Flags().String("query", "", "Filters as a query string, e.g. \"name=sync&status=ENABLED\"")
	cmd.Flags().Int("page", 1, "Page to print, starting at 1")
	cmd.Flags().String("sort", "", "Sort by column key")
	cmd.Flags().Bool("desc", false, "Sort in descending order")
}

// ParseListQuery reads the shared list flags. Values already present in
// filters take precedence over --query.
func ParseListQuery(cmd *cobra.Command, filters url.Values) (ListQuery, error) {
	q := ListQuery{Filters: url.Values{}}
	raw, err := cmd.Flags().GetString("query")
	if err != nil {
		return q, fmt.Errorf("failed to get query flag: %w", err)
	}
	if raw != "" {
		parsed, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
		if err != nil {
			return q, listing.NewValidationError("query", "invalid query: %v", err)
		}
		q.Filters = parsed
	}
	for key, values := range filters {
		if len(values) > 0 {
			q.Filters[key] = values
		}
	}
	if q.Page, err = cmd.Flags().GetInt("page"); err != nil {
		return q, fmt.Errorf("failed to get page flag: %w", err)
	}
	if q.Page < 1 {
		return q, listing.NewValidationError("page", "must be at least 1")
	}
	sortKey, err := cmd.Flags().GetString("sort")
	if err != nil {
		return q, fmt.Errorf("failed to get sort flag: %w", err)
	}
	if sortKey != "" {
		desc, err := cmd.Flags().GetBool("desc")
		if err != nil {
			return q, fmt.Errorf("failed to get desc flag: %w", err)
		}
		q.Sort = &listing.SortSpec{Key: sortKey, Desc: desc}
	}
	return q, nil
}

// StrictFilters validates every declared key present in values. Keys the
// listing does not declare are rejected too.
func StrictFilters(filters *listing.Filters, values url.Values) error {
	for key, raw := range values {
		def, ok := filters.Def(key)
		if !ok {
			return listing.NewValidationError(key, "unknown filter")
		}
		parts := raw
		if def.Kind == listing.FilterSelect {
			parts = nil
			for _, v := range raw {
				parts = append(parts, strings.Split(v, ",")...)
			}
		}
		if err := filters.Validate(key, listing.Values(parts...)); err != nil {
			return err
		}
	}
	return nil
}

// LoadPage runs the engine until the requested page is loaded and returns
// its snapshot. A fetch failure is returned as the error.
func LoadPage[T any](ctx context.Context, e *listing.Engine[T], q ListQuery) (listing.Snapshot[T], error) {
	if err := StrictFilters(e.Filters(), q.Filters); err != nil {
		return listing.Snapshot[T]{}, err
	}
	var snap listing.Snapshot[T]
	err := helpers.LogOperation(ctx, "load "+e.ID()+" page", func() error {
		var err error
		snap, err = loadPage(ctx, e, q)
		return err
	})
	return snap, err
}

func loadPage[T any](ctx context.Context, e *listing.Engine[T], q ListQuery) (listing.Snapshot[T], error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = e.Run(runCtx)
	}()
	e.Initialize(q.Filters)
	if q.Sort != nil {
		if err := e.SetSort(q.Sort); err != nil {
			return listing.Snapshot[T]{}, err
		}
	}
	snap, err := e.WaitIdle(ctx)
	for err == nil && snap.Err == nil && snap.PageNumber < q.Page {
		if !e.NextPage() {
			break
		}
		snap, err = e.WaitIdle(ctx)
	}
	if err != nil {
		return snap, err
	}
	if snap.Err != nil {
		return snap, snap.Err
	}
	return snap, nil
}

// WriteListing prints one page as JSON or as a table.
func WriteListing[T any](
	out *helpers.OutputWriter,
	snap listing.Snapshot[T],
	columns *listing.Columns[T],
	filters *listing.Filters,
	shareURL string,
	empty string,
) error {
	if out.Format() == helpers.OutputFormatTable {
		rows := make([][]string, 0, len(snap.Rows))
		for _, r := range snap.Rows {
			rows = append(rows, tableRow(columns, r))
		}
		if err := out.WriteTable(columns.Headers(), rows, empty); err != nil {
			return err
		}
		if snap.HasNextPage {
			return out.WriteLine("Page %d, more results with --page %d", snap.PageNumber, snap.PageNumber+1)
		}
		return nil
	}
	active := map[string]any{}
	for key, values := range filters.Encode(snap.Filters) {
		if len(values) == 1 {
			active[key] = values[0]
		} else {
			active[key] = values
		}
	}
	data := snap.Rows
	if data == nil {
		data = []T{}
	}
	return out.WriteData(models.ListResponse{
		Data:     data,
		Page:     snap.PageNumber,
		HasNext:  snap.HasNextPage,
		Filters:  active,
		ShareURL: shareURL,
	})
}

// tableRow renders item with each cell cut to its column width.
func tableRow[T any](columns *listing.Columns[T], item T) []string {
	row := columns.Row(item)
	for i, col := range columns.All() {
		if col.Width > 0 {
			row[i] = helpers.Truncate(row[i], col.Width)
		}
	}
	return row
}

// RunScreen runs model full-screen next to the engines it displays and
// stops them when the program exits.
func RunScreen(ctx context.Context, model tea.Model, engines ...interface{ Run(context.Context) error }) error {
	log := logger.FromContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range engines {
		g.Go(func() error {
			if err := e.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	_, runErr := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	interrupted := ctx.Err() != nil
	cancel()
	if err := g.Wait(); err != nil {
		log.Debug("engine stopped with error", "error", err)
	}
	if runErr != nil && !interrupted {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}
