package api

import (
	"context"
	"net/http"

	"github.com/compozy/flowctl/pkg/listing"
)

func (c *Client) ListConnections(
	ctx context.Context,
	p listing.FetchRequest,
) (listing.Page[AppConnection], error) {
	var page SeekPage[AppConnection]
	req := c.request(ctx).SetResult(&page)
	setPaging(req, p)
	if piece := p.Filters.Text("pieceName"); piece != "" {
		req.SetQueryParam("pieceName", piece)
	}
	if status := p.Filters.Get("status"); !status.IsEmpty() {
		req.SetQueryParamsFromValues(map[string][]string{"status": status})
	}
	if _, err := c.send(req, http.MethodGet, "/app-connections", "list connections"); err != nil {
		return listing.Page[AppConnection]{}, err
	}
	return toPage(page), nil
}

func (c *Client) UpsertConnection(ctx context.Context, in UpsertConnectionRequest) (*AppConnection, error) {
	var conn AppConnection
	req := c.request(ctx).SetBody(in).SetResult(&conn)
	if _, err := c.send(req, http.MethodPost, "/app-connections", "upsert connection"); err != nil {
		return nil, err
	}
	return &conn, nil
}

func (c *Client) DeleteConnection(ctx context.Context, id string) error {
	_, err := c.send(c.request(ctx), http.MethodDelete, "/app-connections/"+id, "delete connection")
	return err
}
