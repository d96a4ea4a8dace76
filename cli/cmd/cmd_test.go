package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/compozy/flowctl/cli/api"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/cli/resources"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
	"github.com/compozy/flowctl/test/fakeapi"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "list"}
	AddListFlags(c)
	require.NoError(t, c.ParseFlags(args))
	return c
}

func TestParseListQuery(t *testing.T) {
	t.Run("Should merge flag filters over --query", func(t *testing.T) {
		c := listCommand(t, "--query", "?name=a&status=ENABLED", "--page", "3", "--sort", "name", "--desc")
		q, err := ParseListQuery(c, url.Values{"name": {"b"}})
		require.NoError(t, err)
		assert.Equal(t, "b", q.Filters.Get("name"))
		assert.Equal(t, "ENABLED", q.Filters.Get("status"))
		assert.Equal(t, 3, q.Page)
		require.NotNil(t, q.Sort)
		assert.Equal(t, listing.SortSpec{Key: "name", Desc: true}, *q.Sort)
	})

	t.Run("Should default to the first page without sorting", func(t *testing.T) {
		q, err := ParseListQuery(listCommand(t), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, q.Page)
		assert.Nil(t, q.Sort)
		assert.Empty(t, q.Filters)
	})

	t.Run("Should reject a page below one", func(t *testing.T) {
		_, err := ParseListQuery(listCommand(t, "--page", "0"), nil)
		assert.True(t, listing.IsValidation(err))
	})

	t.Run("Should reject a malformed query", func(t *testing.T) {
		_, err := ParseListQuery(listCommand(t, "--query", "name=%zz"), nil)
		assert.True(t, listing.IsValidation(err))
	})
}

func TestStrictFilters(t *testing.T) {
	filters := resources.FlowFilters()

	t.Run("Should accept comma separated select options", func(t *testing.T) {
		err := StrictFilters(filters, url.Values{"status": {"ENABLED,DISABLED"}})
		assert.NoError(t, err)
	})

	t.Run("Should keep commas inside text filters", func(t *testing.T) {
		err := StrictFilters(filters, url.Values{"name": {"a,b"}})
		assert.NoError(t, err)
	})

	t.Run("Should reject unknown options and keys", func(t *testing.T) {
		err := StrictFilters(filters, url.Values{"status": {"PAUSED"}})
		assert.True(t, listing.IsValidation(err))
		err = StrictFilters(filters, url.Values{"owner": {"me"}})
		var ve *listing.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "owner", ve.Field)
	})
}

func flowsEngine(t *testing.T, srv *fakeapi.Server) *listing.Engine[api.Flow] {
	t.Helper()
	client, err := api.NewClient(api.Options{BaseURL: srv.URL()})
	require.NoError(t, err)
	e, err := resources.NewFlowsEngine(client, resources.Settings{ProjectID: "proj-1", PageSize: 5})
	require.NoError(t, err)
	return e
}

func TestLoadPage(t *testing.T) {
	t.Run("Should walk forward to the requested page", func(t *testing.T) {
		srv := fakeapi.New(t)
		srv.SeedFlows("proj-1", "sync", 12)
		snap, err := LoadPage(t.Context(), flowsEngine(t, srv), ListQuery{Filters: url.Values{}, Page: 3})
		require.NoError(t, err)
		assert.Equal(t, 3, snap.PageNumber)
		require.Len(t, snap.Rows, 2)
		assert.Equal(t, "sync 11", snap.Rows[0].Version.DisplayName)
		assert.False(t, snap.HasNextPage)
		assert.True(t, snap.HasPreviousPage)
	})

	t.Run("Should stop at the last page", func(t *testing.T) {
		srv := fakeapi.New(t)
		srv.SeedFlows("proj-1", "sync", 3)
		snap, err := LoadPage(t.Context(), flowsEngine(t, srv), ListQuery{Page: 4})
		require.NoError(t, err)
		assert.Equal(t, 1, snap.PageNumber)
		assert.Len(t, snap.Rows, 3)
	})

	t.Run("Should return the fetch failure", func(t *testing.T) {
		srv := fakeapi.New(t)
		srv.FailNext(http.MethodGet, "/flows", http.StatusBadRequest, `{"message":"nope"}`)
		_, err := LoadPage(t.Context(), flowsEngine(t, srv), ListQuery{Page: 1})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, listing.StatusCode(err))
	})

	t.Run("Should validate filters before fetching", func(t *testing.T) {
		srv := fakeapi.New(t)
		_, err := LoadPage(t.Context(), flowsEngine(t, srv), ListQuery{Filters: url.Values{"status": {"x"}}, Page: 1})
		assert.True(t, listing.IsValidation(err))
		assert.Empty(t, srv.RequestsTo(http.MethodGet, "/flows"))
	})
}

type named struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func namedColumns() *listing.Columns[named] {
	return listing.MustColumns(
		listing.Column[named]{Key: "name", Title: "Name", Width: 10, Cell: func(n named) string { return n.Name }},
	)
}

func TestWriteListing(t *testing.T) {
	snap := listing.Snapshot[named]{
		Rows:        []named{{ID: "1", Name: "alpha"}},
		PageNumber:  2,
		HasNextPage: true,
		Filters:     listing.FilterState{"name": listing.Text("al")},
	}
	filters := listing.MustFilters(listing.FilterDef{Key: "name", Title: "Name", Kind: listing.FilterText})

	t.Run("Should print a JSON envelope with active filters", func(t *testing.T) {
		var buf bytes.Buffer
		out := helpers.NewOutputWriter(&buf, helpers.OutputFormatJSON, false)
		require.NoError(t, WriteListing(out, snap, namedColumns(), filters, "http://x/flows?name=al", "none"))
		var got struct {
			Data     []named        `json:"data"`
			Page     int            `json:"page"`
			HasNext  bool           `json:"has_next_page"`
			Filters  map[string]any `json:"filters"`
			ShareURL string         `json:"share_url"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, []named{{ID: "1", Name: "alpha"}}, got.Data)
		assert.Equal(t, 2, got.Page)
		assert.True(t, got.HasNext)
		assert.Equal(t, "al", got.Filters["name"])
		assert.Equal(t, "http://x/flows?name=al", got.ShareURL)
	})

	t.Run("Should print a table with a paging hint", func(t *testing.T) {
		var buf bytes.Buffer
		out := helpers.NewOutputWriter(&buf, helpers.OutputFormatTable, false)
		require.NoError(t, WriteListing(out, snap, namedColumns(), filters, "", "none"))
		assert.Contains(t, buf.String(), "alpha")
		assert.Contains(t, buf.String(), "Page 2, more results with --page 3")
	})

	t.Run("Should cut table cells to the column width", func(t *testing.T) {
		var buf bytes.Buffer
		out := helpers.NewOutputWriter(&buf, helpers.OutputFormatTable, false)
		long := listing.Snapshot[named]{Rows: []named{{ID: "2", Name: "nightly customer sync"}}, PageNumber: 1}
		require.NoError(t, WriteListing(out, long, namedColumns(), filters, "", "none"))
		assert.Contains(t, buf.String(), "nightly...")
		assert.NotContains(t, buf.String(), "customer")
	})

	t.Run("Should print an empty array for an empty page", func(t *testing.T) {
		var buf bytes.Buffer
		out := helpers.NewOutputWriter(&buf, helpers.OutputFormatJSON, false)
		require.NoError(t, WriteListing(out, listing.Snapshot[named]{PageNumber: 1}, namedColumns(), filters, "", "none"))
		assert.Contains(t, buf.String(), `"data": []`)
	})
}

func TestDispatchRow(t *testing.T) {
	row := named{ID: "r1", Name: "alpha"}
	actions := func(runErr error) []listing.Action[named] {
		return []listing.Action[named]{
			{
				Name:     "rename",
				Run:      func(context.Context, named) error { return runErr },
				Success:  func(n named) string { return "Renamed " + n.Name },
				Conflict: "Name already taken",
			},
			{
				Name:    "delete",
				Confirm: func(n named) string { return "Delete " + n.Name + "?" },
				Run:     func(context.Context, named) error { return nil },
				Success: func(named) string { return "Deleted" },
			},
		}
	}

	t.Run("Should return the success message", func(t *testing.T) {
		msg, err := DispatchRow(t.Context(), actions(nil), "rename", "r1", row, refuseConfirmer{})
		require.NoError(t, err)
		assert.Equal(t, "Renamed alpha", msg)
	})

	t.Run("Should surface conflicts with the action message", func(t *testing.T) {
		_, err := DispatchRow(t.Context(), actions(&listing.ServerError{StatusCode: http.StatusConflict}), "rename", "r1", row, nil)
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "CONFLICT", cliErr.Code)
		assert.Equal(t, "Name already taken", cliErr.Message)
	})

	t.Run("Should refuse confirmation without --yes", func(t *testing.T) {
		_, err := DispatchRow(t.Context(), actions(nil), "delete", "r1", row, refuseConfirmer{})
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "CONFIRMATION_REQUIRED", cliErr.Code)
	})

	t.Run("Should log the dispatched operation at debug level", func(t *testing.T) {
		var logs bytes.Buffer
		ctx := logger.ContextWithLogger(t.Context(), logger.SetupLogger("debug", false, false, &logs))
		_, err := DispatchRow(ctx, actions(nil), "rename", "r1", row, nil)
		require.NoError(t, err)
		assert.Contains(t, logs.String(), "dispatch rename r1")
		assert.Contains(t, logs.String(), "operation completed")
	})

	t.Run("Should reject a row id that does not match", func(t *testing.T) {
		_, err := DispatchRow(t.Context(), actions(nil), "rename", "other", row, nil)
		assert.ErrorIs(t, err, listing.ErrUnknownRow)
	})
}

func TestWriteAction(t *testing.T) {
	t.Run("Should print only the message as a table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteAction(helpers.NewOutputWriter(&buf, helpers.OutputFormatTable, false), named{}, "Done"))
		assert.Equal(t, "Done\n", buf.String())
	})
}
