package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/compozy/flowctl/cli/api"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/tidwall/gjson"
)

const (
	FilterName     = "name"
	FilterStatus   = "status"
	FilterFolderID = "folderId"

	ActionRename       = "rename"
	ActionMove         = "move"
	ActionDuplicate    = "duplicate"
	ActionToggleStatus = "toggle-status"
	ActionDelete       = "delete"

	NewFlowName = "Untitled"
	// maxStepIcons is how many piece names the Steps column spells out.
	maxStepIcons = 2
)

type FlowsAPI interface {
	ListFlows(ctx context.Context, req listing.FetchRequest) (listing.Page[api.Flow], error)
	GetFlow(ctx context.Context, id string) (*api.Flow, error)
	CreateFlow(ctx context.Context, in api.CreateFlowRequest) (*api.Flow, error)
	RenameFlow(ctx context.Context, id, displayName string) (*api.Flow, error)
	ChangeFlowStatus(ctx context.Context, id string, status api.FlowStatus) (*api.Flow, error)
	MoveFlow(ctx context.Context, id, folderID string) (*api.Flow, error)
	DuplicateFlow(ctx context.Context, id string) (*api.Flow, error)
	ImportFlow(ctx context.Context, id string, version api.FlowVersion) (*api.Flow, error)
	DeleteFlow(ctx context.Context, id string) error
	GetFolder(ctx context.Context, id string) (*api.Folder, error)
	WebURL(path string) string
}

func FlowID(f api.Flow) string { return f.ID }

func StatusLabel(s api.FlowStatus) string {
	switch s {
	case api.FlowStatusEnabled:
		return "Enabled"
	case api.FlowStatusDisabled:
		return "Disabled"
	default:
		return string(s)
	}
}

func FlowFilters() *listing.Filters {
	return listing.MustFilters(
		listing.FilterDef{Key: FilterName, Title: "Flow name", Kind: listing.FilterText},
		listing.FilterDef{
			Key:   FilterStatus,
			Title: "Status",
			Kind:  listing.FilterSelect,
			Multi: true,
			Options: []listing.Option{
				{Label: StatusLabel(api.FlowStatusEnabled), Value: string(api.FlowStatusEnabled)},
				{Label: StatusLabel(api.FlowStatusDisabled), Value: string(api.FlowStatusDisabled)},
			},
		},
		listing.FilterDef{Key: FilterFolderID, Title: "Folder", Kind: listing.FilterText},
	)
}

// StepsCell lists the pieces of the trigger chain, at most two by name.
func StepsCell(f api.Flow) string {
	names := f.Version.PieceNames()
	short := make([]string, 0, maxStepIcons)
	for i, n := range names {
		if i == maxStepIcons {
			break
		}
		short = append(short, api.ShortName(n))
	}
	out := strings.Join(short, ", ")
	if extra := len(names) - maxStepIcons; extra > 0 {
		out += fmt.Sprintf(" +%d", extra)
	}
	if out == "" {
		return "-"
	}
	return out
}

func FlowColumns(folders *FolderNames) *listing.Columns[api.Flow] {
	if folders == nil {
		folders = NewFolderNames()
	}
	return listing.MustColumns(
		listing.Column[api.Flow]{Key: "name", Title: "Name", Width: 30, Sortable: true, Cell: func(f api.Flow) string {
			return f.Version.DisplayName
		}},
		listing.Column[api.Flow]{Key: "steps", Title: "Steps", Width: 24, Cell: StepsCell},
		listing.Column[api.Flow]{Key: "folder", Title: "Folder", Width: 18, Cell: func(f api.Flow) string {
			return folders.Name(f.FolderID)
		}},
		listing.Column[api.Flow]{Key: "created", Title: "Created", Width: 12, Sortable: true, Cell: func(f api.Flow) string {
			return helpers.FormatDate(f.Created)
		}},
		listing.Column[api.Flow]{Key: "status", Title: "Status", Width: 10, Cell: func(f api.Flow) string {
			return StatusLabel(f.Status)
		}},
	)
}

func NewFlowsEngine(client FlowsAPI, s Settings) (*listing.Engine[api.Flow], error) {
	cfg := engineConfig("flows", s, listing.FetcherFunc[api.Flow](client.ListFlows), FlowFilters())
	cfg.SortableKeys = FlowColumns(nil).SortableKeys()
	return listing.NewEngine(cfg)
}

// FlowInputs supplies the extra values some row actions need.
type FlowInputs interface {
	NewName(ctx context.Context, flow api.Flow) (string, error)
	TargetFolder(ctx context.Context, flow api.Flow) (string, error)
}

// StaticFlowInputs answers FlowInputs from fixed values, e.g. flags.
type StaticFlowInputs struct {
	Name     string
	FolderID string
}

func (s StaticFlowInputs) NewName(context.Context, api.Flow) (string, error) {
	return s.Name, nil
}

func (s StaticFlowInputs) TargetFolder(context.Context, api.Flow) (string, error) {
	return s.FolderID, nil
}

// FlowActions declares the row actions of the flows table.
func FlowActions(client FlowsAPI, inputs FlowInputs) []listing.Action[api.Flow] {
	if inputs == nil {
		inputs = StaticFlowInputs{}
	}
	return []listing.Action[api.Flow]{
		{
			Name:  ActionRename,
			Label: "Rename",
			Run: func(ctx context.Context, f api.Flow) error {
				name, err := inputs.NewName(ctx, f)
				if err != nil {
					return err
				}
				name = strings.TrimSpace(name)
				if name == "" {
					return listing.NewValidationError("name", "flow name is required")
				}
				_, err = client.RenameFlow(ctx, f.ID, name)
				return err
			},
			Success:  func(api.Flow) string { return "Flow renamed" },
			Conflict: "A flow with this name already exists",
		},
		{
			Name:  ActionMove,
			Label: "Move to...",
			Run: func(ctx context.Context, f api.Flow) error {
				folderID, err := inputs.TargetFolder(ctx, f)
				if err != nil {
					return err
				}
				_, err = client.MoveFlow(ctx, f.ID, folderID)
				return err
			},
			Success: func(api.Flow) string { return "Flow moved" },
		},
		{
			Name:  ActionDuplicate,
			Label: "Duplicate",
			Run: func(ctx context.Context, f api.Flow) error {
				_, err := client.DuplicateFlow(ctx, f.ID)
				return err
			},
			Success: func(f api.Flow) string { return fmt.Sprintf("Duplicated %s", f.Version.DisplayName) },
		},
		{
			Name:  ActionToggleStatus,
			Label: "Enable/Disable",
			Run: func(ctx context.Context, f api.Flow) error {
				_, err := client.ChangeFlowStatus(ctx, f.ID, toggled(f.Status))
				return err
			},
			Success: func(f api.Flow) string {
				return fmt.Sprintf("Flow %s", strings.ToLower(StatusLabel(toggled(f.Status))))
			},
		},
		{
			Name:  ActionDelete,
			Label: "Delete",
			Confirm: func(f api.Flow) string {
				return fmt.Sprintf("Delete %q? This cannot be undone.", f.Version.DisplayName)
			},
			Run: func(ctx context.Context, f api.Flow) error {
				return client.DeleteFlow(ctx, f.ID)
			},
			Success: func(api.Flow) string { return "Flow deleted" },
		},
	}
}

func toggled(s api.FlowStatus) api.FlowStatus {
	if s == api.FlowStatusEnabled {
		return api.FlowStatusDisabled
	}
	return api.FlowStatusEnabled
}

// NewFlowResult is returned by CreateFromScratch.
type NewFlowResult struct {
	Flow       api.Flow `json:"flow"`
	BuilderURL string   `json:"builder_url"`
}

// CreateFromScratch creates an "Untitled" flow in folderID. An empty or
// uncategorized folder creates it at the top level.
func CreateFromScratch(ctx context.Context, client FlowsAPI, projectID, folderID string) (*NewFlowResult, error) {
	flow, err := createInFolder(ctx, client, projectID, folderID, NewFlowName)
	if err != nil {
		return nil, err
	}
	return &NewFlowResult{Flow: *flow, BuilderURL: BuilderURL(client, flow.ID)}, nil
}

// ImportFlow creates a flow in folderID and loads version into it.
func ImportFlow(
	ctx context.Context,
	client FlowsAPI,
	projectID, folderID string,
	version api.FlowVersion,
) (*NewFlowResult, error) {
	created, err := createInFolder(ctx, client, projectID, folderID, version.DisplayName)
	if err != nil {
		return nil, err
	}
	flow, err := client.ImportFlow(ctx, created.ID, version)
	if err != nil {
		return nil, fmt.Errorf("failed to import flow: %w", err)
	}
	return &NewFlowResult{Flow: *flow, BuilderURL: BuilderURL(client, flow.ID)}, nil
}

// ParseFlowTemplate reads an exported flow. Both the template envelope
// ({"name", "template": {...}}) and a bare flow version are accepted.
func ParseFlowTemplate(data []byte) (api.FlowVersion, error) {
	if !gjson.ValidBytes(data) {
		return api.FlowVersion{}, listing.NewValidationError("file", "flow file is not valid JSON")
	}
	raw := data
	if tpl := gjson.GetBytes(data, "template"); tpl.IsObject() {
		raw = []byte(tpl.Raw)
	}
	var version api.FlowVersion
	if err := json.Unmarshal(raw, &version); err != nil {
		return api.FlowVersion{}, listing.NewValidationError("file", "invalid flow file: %v", err)
	}
	version.ID = ""
	version.DisplayName = strings.TrimSpace(version.DisplayName)
	if version.DisplayName == "" {
		return api.FlowVersion{}, listing.NewValidationError("file", "flow file has no displayName")
	}
	if version.Trigger == nil {
		return api.FlowVersion{}, listing.NewValidationError("file", "flow file has no trigger")
	}
	return version, nil
}

// ReadFlowTemplate loads and parses the flow file at path.
func ReadFlowTemplate(path string) (api.FlowVersion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.FlowVersion{}, listing.NewValidationError("file", "cannot read %s: %v", path, err)
	}
	return ParseFlowTemplate(data)
}

func createInFolder(ctx context.Context, client FlowsAPI, projectID, folderID, name string) (*api.Flow, error) {
	in := api.CreateFlowRequest{ProjectID: projectID, DisplayName: name}
	if folderID != "" && folderID != api.UncategorizedFolder {
		folder, err := client.GetFolder(ctx, folderID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up folder %s: %w", folderID, err)
		}
		in.FolderName = folder.DisplayName
	}
	flow, err := client.CreateFlow(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create flow: %w", err)
	}
	return flow, nil
}

// BuilderURL is the browser URL that opens a flow in the builder.
func BuilderURL(client FlowsAPI, flowID string) string {
	return client.WebURL("/flows/" + flowID)
}

// ShareURL is the browser URL of the flows page with the listing's filters.
func ShareURL(client FlowsAPI, flows *listing.Engine[api.Flow]) string {
	return FlowsPageURL(client, flows.QueryValues())
}

// FlowsPageURL is the browser URL of the flows page filtered by q.
func FlowsPageURL(client FlowsAPI, q url.Values) string {
	if len(q) == 0 {
		return client.WebURL("/flows")
	}
	return client.WebURL("/flows?" + q.Encode())
}
