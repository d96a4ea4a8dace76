package api

import (
	"context"
	"net/http"

	"github.com/compozy/flowctl/pkg/listing"
)

func (c *Client) ListFolders(ctx context.Context, p listing.FetchRequest) (listing.Page[Folder], error) {
	var page SeekPage[Folder]
	req := c.request(ctx).SetResult(&page)
	setPaging(req, p)
	if _, err := c.send(req, http.MethodGet, "/folders", "list folders"); err != nil {
		return listing.Page[Folder]{}, err
	}
	return toPage(page), nil
}

func (c *Client) GetFolder(ctx context.Context, id string) (*Folder, error) {
	var folder Folder
	req := c.request(ctx).SetResult(&folder)
	if _, err := c.send(req, http.MethodGet, "/folders/"+id, "get folder"); err != nil {
		return nil, err
	}
	return &folder, nil
}
