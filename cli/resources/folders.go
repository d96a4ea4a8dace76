package resources

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/compozy/flowctl/cli/api"
	"github.com/compozy/flowctl/cli/helpers"
	"github.com/compozy/flowctl/pkg/listing"
)

const (
	AllFlowsLabel      = "All flows"
	UncategorizedLabel = "Uncategorized"
	// maxFolderPages bounds FolderNames.Load on very large projects.
	maxFolderPages = 50
)

type FoldersAPI interface {
	ListFolders(ctx context.Context, req listing.FetchRequest) (listing.Page[api.Folder], error)
	GetFolder(ctx context.Context, id string) (*api.Folder, error)
}

func FolderID(f api.Folder) string { return f.ID }

func FolderColumns() *listing.Columns[api.Folder] {
	return listing.MustColumns(
		listing.Column[api.Folder]{Key: "name", Title: "Name", Width: 28, Cell: func(f api.Folder) string {
			return f.DisplayName
		}},
		listing.Column[api.Folder]{Key: "flows", Title: "Flows", Width: 7, Cell: func(f api.Folder) string {
			return fmt.Sprintf("%d", f.NumberOfFlows)
		}},
		listing.Column[api.Folder]{Key: "created", Title: "Created", Width: 12, Cell: func(f api.Folder) string {
			return helpers.FormatDate(f.Created)
		}},
	)
}

// NewFoldersEngine builds the folder sidebar listing. It is independent of
// the flows listing; selection is forwarded with SelectFolder.
func NewFoldersEngine(client FoldersAPI, s Settings) (*listing.Engine[api.Folder], error) {
	return listing.NewEngine(engineConfig("folders", s, listing.FetcherFunc[api.Folder](client.ListFolders), nil))
}

// SidebarItem is one entry of the folder sidebar.
type SidebarItem struct {
	Label    string
	FolderID string
	Count    int
}

// SidebarItems prepends the synthetic "All flows" and "Uncategorized"
// entries to the folders of the current page.
func SidebarItems(folders []api.Folder) []SidebarItem {
	items := []SidebarItem{
		{Label: AllFlowsLabel, FolderID: ""},
		{Label: UncategorizedLabel, FolderID: api.UncategorizedFolder},
	}
	for _, f := range folders {
		items = append(items, SidebarItem{Label: f.DisplayName, FolderID: f.ID, Count: f.NumberOfFlows})
	}
	return items
}

// SelectFolder points the flows listing at folderID. "" shows all flows.
func SelectFolder(flows *listing.Engine[api.Flow], folderID string) error {
	return flows.SetFilter(FilterFolderID, listing.Text(folderID))
}

// FolderNames resolves folder ids to display names for the flows table.
type FolderNames struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewFolderNames() *FolderNames {
	return &FolderNames{names: map[string]string{}}
}

func (n *FolderNames) Add(folders ...api.Folder) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, f := range folders {
		n.names[f.ID] = f.DisplayName
	}
}

// Name returns the display name of id, "Uncategorized" for no folder and
// the id itself when unknown.
func (n *FolderNames) Name(id string) string {
	if id == "" || id == api.UncategorizedFolder {
		return UncategorizedLabel
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if name, ok := n.names[id]; ok {
		return name
	}
	return id
}

// Lookup resolves a folder display name, case-insensitively, to its id.
// "Uncategorized" and "" resolve to the uncategorized folder.
func (n *FolderNames) Lookup(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, UncategorizedLabel) {
		return api.UncategorizedFolder, true
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	for id, display := range n.names {
		if strings.EqualFold(display, name) {
			return id, true
		}
	}
	return "", false
}

// Load walks every folder page of the project.
func (n *FolderNames) Load(ctx context.Context, client FoldersAPI, projectID string) error {
	cursor := ""
	for range maxFolderPages {
		page, err := client.ListFolders(ctx, listing.FetchRequest{ProjectID: projectID, Cursor: cursor, Limit: 100})
		if err != nil {
			return fmt.Errorf("failed to load folders: %w", err)
		}
		n.Add(page.Items...)
		if !page.HasNext() {
			return nil
		}
		cursor = page.NextCursor
	}
	return nil
}
