package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ListPieces returns the piece catalog. Results are cached for the
// configured TTL and concurrent loads share one request.
func (c *Client) ListPieces(ctx context.Context) ([]PieceSummary, error) {
	if pieces, ok := c.catalog.Get(catalogKey); ok {
		return pieces, nil
	}
	v, err, _ := c.group.Do(catalogKey, func() (any, error) {
		var pieces []PieceSummary
		req := c.request(ctx).SetResult(&pieces)
		if _, err := c.send(req, http.MethodGet, "/pieces", "list pieces"); err != nil {
			return nil, err
		}
		c.catalog.Add(catalogKey, pieces)
		return pieces, nil
	})
	if err != nil {
		return nil, err
	}
	pieces, ok := v.([]PieceSummary)
	if !ok {
		return nil, fmt.Errorf("unexpected piece catalog type %T", v)
	}
	return pieces, nil
}

// InvalidatePieces drops the cached catalog.
func (c *Client) InvalidatePieces() {
	c.catalog.Purge()
}

// InstallPiece submits the install form as multipart data. The archive is
// attached only for ARCHIVE packages.
func (c *Client) InstallPiece(ctx context.Context, in InstallPieceRequest) error {
	form := map[string]string{
		"pieceName":    in.PieceName,
		"pieceVersion": in.PieceVersion,
		"packageType":  string(in.PackageType),
		"scope":        string(in.Scope),
	}
	req := c.request(ctx).SetMultipartFormData(form)
	if in.PackageType == PackageArchive && in.ArchivePath != "" {
		req.SetFile("pieceArchive", in.ArchivePath)
	}
	if _, err := c.send(req, http.MethodPost, "/pieces", "install piece"); err != nil {
		return err
	}
	c.InvalidatePieces()
	return nil
}

// Flags returns the platform feature flags as raw JSON values.
func (c *Client) Flags(ctx context.Context) (map[string]gjson.Result, error) {
	resp, err := c.send(c.request(ctx), http.MethodGet, "/flags", "get flags")
	if err != nil {
		return nil, err
	}
	return gjson.ParseBytes(resp.Body()).Map(), nil
}

// FlagEnabled reports whether a boolean flag is on. Missing flags are off.
func (c *Client) FlagEnabled(ctx context.Context, flag string) (bool, error) {
	flags, err := c.Flags(ctx)
	if err != nil {
		return false, err
	}
	return flags[flag].Bool(), nil
}
