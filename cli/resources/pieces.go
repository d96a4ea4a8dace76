package resources

import (
	"context"
	"strconv"
	"strings"

	"github.com/compozy/flowctl/cli/api"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/pkg/dialogs"
	"github.com/compozy/flowctl/pkg/listing"
)

const FilterSearch = "search"

type PiecesAPI interface {
	ListPieces(ctx context.Context) ([]api.PieceSummary, error)
	InstallPiece(ctx context.Context, in api.InstallPieceRequest) error
	FlagEnabled(ctx context.Context, flag string) (bool, error)
}

func PieceID(p api.PieceSummary) string { return p.Name }

func PieceFilters() *listing.Filters {
	return listing.MustFilters(
		listing.FilterDef{Key: FilterSearch, Title: "Search", Kind: listing.FilterText},
	)
}

func PieceColumns() *listing.Columns[api.PieceSummary] {
	return listing.MustColumns(
		listing.Column[api.PieceSummary]{Key: "name", Title: "Piece", Width: 24, Cell: func(p api.PieceSummary) string {
			return p.DisplayName
		}},
		listing.Column[api.PieceSummary]{Key: "package", Title: "Package", Width: 36, Cell: func(p api.PieceSummary) string {
			return p.Name
		}},
		listing.Column[api.PieceSummary]{Key: "version", Title: "Version", Width: 10, Cell: func(p api.PieceSummary) string {
			return p.Version
		}},
		listing.Column[api.PieceSummary]{Key: "auth", Title: "Auth", Width: 6, Cell: func(p api.PieceSummary) string {
			if p.HasAuth() {
				return "yes"
			}
			return "no"
		}},
	)
}

// CatalogFetcher pages the cached piece catalog locally. The catalog has
// no server pagination; cursors are offsets into the filtered list.
type CatalogFetcher struct {
	Client PiecesAPI
}

func (f CatalogFetcher) Fetch(ctx context.Context, req listing.FetchRequest) (listing.Page[api.PieceSummary], error) {
	pieces, err := f.Client.ListPieces(ctx)
	if err != nil {
		return listing.Page[api.PieceSummary]{}, err
	}
	matched := SearchPieces(pieces, req.Filters.Text(FilterSearch))
	offset := 0
	if req.Cursor != "" {
		if offset, err = strconv.Atoi(req.Cursor); err != nil || offset < 0 {
			return listing.Page[api.PieceSummary]{}, listing.NewValidationError("cursor", "invalid cursor %q", req.Cursor)
		}
	}
	limit := req.Limit
	if limit <= 0 {
		limit = listing.DefaultPageSize
	}
	start := min(offset, len(matched))
	end := min(start+limit, len(matched))
	page := listing.Page[api.PieceSummary]{Items: matched[start:end]}
	if end < len(matched) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

// SearchPieces keeps pieces whose display or package name contains term.
func SearchPieces(pieces []api.PieceSummary, term string) []api.PieceSummary {
	term = strings.TrimSpace(term)
	if term == "" {
		return pieces
	}
	out := make([]api.PieceSummary, 0, len(pieces))
	for _, p := range pieces {
		if helpers.Contains(p.DisplayName, term) || helpers.Contains(p.Name, term) {
			out = append(out, p)
		}
	}
	return out
}

func NewPiecesEngine(client PiecesAPI, s Settings) (*listing.Engine[api.PieceSummary], error) {
	return listing.NewEngine(engineConfig("pieces", s, CatalogFetcher{Client: client}, PieceFilters()))
}

// PieceService adapts the API client to the install-piece form.
type PieceService struct {
	Client PiecesAPI
}

func (s PieceService) InstallPiece(ctx context.Context, in dialogs.InstallInput) error {
	return s.Client.InstallPiece(ctx, api.InstallPieceRequest{
		PieceName:    in.PieceName,
		PieceVersion: in.PieceVersion,
		PackageType:  api.PackageType(in.PackageType),
		Scope:        api.PieceScope(in.Scope),
		ArchivePath:  in.ArchivePath,
	})
}

func (s PieceService) PrivatePiecesEnabled(ctx context.Context) (bool, error) {
	return s.Client.FlagEnabled(ctx, api.FlagPrivatePiecesEnabled)
}
