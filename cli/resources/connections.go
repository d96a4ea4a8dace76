package resources

import (
	"context"
	"fmt"

	"github.com/compozy/flowctl/cli/api"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/pkg/dialogs"
	"github.com/compozy/flowctl/pkg/listing"
)

const FilterPieceName = "pieceName"

type ConnectionsAPI interface {
	ListConnections(ctx context.Context, req listing.FetchRequest) (listing.Page[api.AppConnection], error)
	UpsertConnection(ctx context.Context, in api.UpsertConnectionRequest) (*api.AppConnection, error)
	DeleteConnection(ctx context.Context, id string) error
	ListPieces(ctx context.Context) ([]api.PieceSummary, error)
}

func ConnectionID(c api.AppConnection) string { return c.ID }

func ConnectionFilters() *listing.Filters {
	return listing.MustFilters(
		listing.FilterDef{Key: FilterPieceName, Title: "App", Kind: listing.FilterText},
	)
}

func ConnectionColumns() *listing.Columns[api.AppConnection] {
	return listing.MustColumns(
		listing.Column[api.AppConnection]{Key: "app", Title: "App", Width: 20, Cell: func(c api.AppConnection) string {
			return api.ShortName(c.PieceName)
		}},
		listing.Column[api.AppConnection]{Key: "name", Title: "Name", Width: 28, Cell: func(c api.AppConnection) string {
			return c.Name
		}},
		listing.Column[api.AppConnection]{Key: "status", Title: "Status", Width: 10, Cell: func(c api.AppConnection) string {
			return string(c.Status)
		}},
		listing.Column[api.AppConnection]{Key: "created", Title: "Created", Width: 12, Cell: func(c api.AppConnection) string {
			return helpers.FormatDate(c.Created)
		}},
		listing.Column[api.AppConnection]{Key: "updated", Title: "Updated", Width: 12, Cell: func(c api.AppConnection) string {
			return helpers.FormatDate(c.Updated)
		}},
	)
}

func NewConnectionsEngine(client ConnectionsAPI, s Settings) (*listing.Engine[api.AppConnection], error) {
	fetcher := listing.FetcherFunc[api.AppConnection](client.ListConnections)
	return listing.NewEngine(engineConfig("connections", s, fetcher, ConnectionFilters()))
}

func ConnectionActions(client ConnectionsAPI) []listing.Action[api.AppConnection] {
	return []listing.Action[api.AppConnection]{
		{
			Name:  ActionDelete,
			Label: "Delete",
			Confirm: func(c api.AppConnection) string {
				return fmt.Sprintf("Delete connection %q? Flows using it will stop working.", c.Name)
			},
			Run: func(ctx context.Context, c api.AppConnection) error {
				return client.DeleteConnection(ctx, c.ID)
			},
			Success: func(c api.AppConnection) string { return fmt.Sprintf("Deleted %s", c.Name) },
		},
	}
}

// ConnectionService adapts the API client to the new-connection dialog.
type ConnectionService struct {
	Client    ConnectionsAPI
	ProjectID string
}

func (s ConnectionService) ListPieceOptions(ctx context.Context) ([]dialogs.PieceOption, error) {
	pieces, err := s.Client.ListPieces(ctx)
	if err != nil {
		return nil, err
	}
	return PieceOptions(pieces), nil
}

func (s ConnectionService) CreateConnection(
	ctx context.Context,
	pieceName string,
	in dialogs.ConnectionInput,
) (dialogs.Created, error) {
	value := make(map[string]any, len(in.Value)+1)
	for k, v := range in.Value {
		value[k] = v
	}
	value["type"] = in.Type
	conn, err := s.Client.UpsertConnection(ctx, api.UpsertConnectionRequest{
		Name:      in.Name,
		PieceName: pieceName,
		ProjectID: s.ProjectID,
		Type:      in.Type,
		Value:     value,
	})
	if err != nil {
		return dialogs.Created{}, err
	}
	return dialogs.Created{Name: conn.Name, ID: conn.ID}, nil
}

// PieceOptions converts catalog entries for the type selector.
func PieceOptions(pieces []api.PieceSummary) []dialogs.PieceOption {
	out := make([]dialogs.PieceOption, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, dialogs.PieceOption{
			Name:        p.Name,
			DisplayName: p.DisplayName,
			LogoURL:     p.LogoURL,
			Version:     p.Version,
			HasAuth:     p.HasAuth(),
		})
	}
	return out
}
