package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/compozy/flowctl/pkg/listing"
)

// ListFlows fetches one page of flows. Recognised filters: name, status
// (repeated), folderId.
func (c *Client) ListFlows(ctx context.Context, p listing.FetchRequest) (listing.Page[Flow], error) {
	var page SeekPage[Flow]
	req := c.request(ctx).SetResult(&page)
	setPaging(req, p)
	if name := p.Filters.Text("name"); name != "" {
		req.SetQueryParam("name", name)
	}
	if status := p.Filters.Get("status"); !status.IsEmpty() {
		req.SetQueryParamsFromValues(map[string][]string{"status": status})
	}
	if folder := p.Filters.Text("folderId"); folder != "" {
		req.SetQueryParam("folderId", folder)
	}
	if _, err := c.send(req, http.MethodGet, "/flows", "list flows"); err != nil {
		return listing.Page[Flow]{}, err
	}
	return toPage(page), nil
}

func (c *Client) GetFlow(ctx context.Context, id string) (*Flow, error) {
	var flow Flow
	req := c.request(ctx).SetResult(&flow)
	if _, err := c.send(req, http.MethodGet, "/flows/"+id, "get flow"); err != nil {
		return nil, err
	}
	return &flow, nil
}

type CreateFlowRequest struct {
	ProjectID   string `json:"projectId"`
	DisplayName string `json:"displayName"`
	FolderName  string `json:"folderName,omitempty"`
}

func (c *Client) CreateFlow(ctx context.Context, in CreateFlowRequest) (*Flow, error) {
	var flow Flow
	req := c.request(ctx).SetBody(in).SetResult(&flow)
	if _, err := c.send(req, http.MethodPost, "/flows", "create flow"); err != nil {
		return nil, err
	}
	return &flow, nil
}

// UpdateFlow applies one flow operation and returns the updated flow.
func (c *Client) UpdateFlow(ctx context.Context, id string, op FlowOperation) (*Flow, error) {
	var flow Flow
	req := c.request(ctx).SetBody(op).SetResult(&flow)
	if _, err := c.send(req, http.MethodPost, "/flows/"+id, fmt.Sprintf("update flow (%s)", op.Type)); err != nil {
		return nil, err
	}
	return &flow, nil
}

func (c *Client) RenameFlow(ctx context.Context, id, displayName string) (*Flow, error) {
	return c.UpdateFlow(ctx, id, FlowOperation{
		Type:    OpChangeName,
		Request: map[string]any{"displayName": displayName},
	})
}

func (c *Client) ChangeFlowStatus(ctx context.Context, id string, status FlowStatus) (*Flow, error) {
	return c.UpdateFlow(ctx, id, FlowOperation{
		Type:    OpChangeStatus,
		Request: map[string]any{"status": status},
	})
}

// MoveFlow moves a flow to folderID; UncategorizedFolder or "" removes it
// from its folder.
func (c *Client) MoveFlow(ctx context.Context, id, folderID string) (*Flow, error) {
	var target any = folderID
	if folderID == "" || folderID == UncategorizedFolder {
		target = nil
	}
	return c.UpdateFlow(ctx, id, FlowOperation{
		Type:    OpChangeFolder,
		Request: map[string]any{"folderId": target},
	})
}

// DuplicateFlow creates a copy of a flow in the same folder by importing
// the source version into a freshly created flow.
func (c *Client) DuplicateFlow(ctx context.Context, id string) (*Flow, error) {
	src, err := c.GetFlow(ctx, id)
	if err != nil {
		return nil, err
	}
	in := CreateFlowRequest{ProjectID: src.ProjectID, DisplayName: src.Version.DisplayName}
	if src.FolderID != "" {
		folder, err := c.GetFolder(ctx, src.FolderID)
		if err != nil {
			return nil, err
		}
		in.FolderName = folder.DisplayName
	}
	created, err := c.CreateFlow(ctx, in)
	if err != nil {
		return nil, err
	}
	return c.ImportFlow(ctx, created.ID, src.Version)
}

// ImportFlow replaces the display name and trigger chain of flow id with
// those of version.
func (c *Client) ImportFlow(ctx context.Context, id string, version FlowVersion) (*Flow, error) {
	return c.UpdateFlow(ctx, id, FlowOperation{
		Type: OpImportFlow,
		Request: map[string]any{
			"displayName": version.DisplayName,
			"trigger":     version.Trigger,
		},
	})
}

func (c *Client) DeleteFlow(ctx context.Context, id string) error {
	_, err := c.send(c.request(ctx), http.MethodDelete, "/flows/"+id, "delete flow")
	return err
}
