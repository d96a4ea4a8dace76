package screens

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/compozy/flowctl/cli/api"
	"github.com/compozy/flowctl/cli/resources"
	"github.com/compozy/flowctl/cli/tui/components"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
)

type FlowsClient interface {
	resources.FlowsAPI
	resources.FoldersAPI
}

type FlowsConfig struct {
	ProjectID   string
	Client      FlowsClient
	Flows       *listing.Engine[api.Flow]
	Folders     *listing.Engine[api.Folder]
	FolderNames *resources.FolderNames
	Toasts      *components.Toasts
	Confirmer   *components.PromptConfirmer
	// Clipboard receives the share URL; nil only shows it.
	Clipboard func(string) error
	Logger    logger.Logger
}

// flowInputs answers rename and move prompts from the value typed for the
// running action.
type flowInputs struct {
	names *resources.FolderNames
}

func (f flowInputs) NewName(ctx context.Context, _ api.Flow) (string, error) {
	return PromptValue(ctx), nil
}

func (f flowInputs) TargetFolder(ctx context.Context, _ api.Flow) (string, error) {
	name := PromptValue(ctx)
	id, ok := f.names.Lookup(name)
	if !ok {
		return "", listing.NewValidationError("folder", "unknown folder %q", name)
	}
	return id, nil
}

// refreshAll refreshes several listings after one mutation.
type refreshAll []listing.Refresher

func (r refreshAll) Refresh() {
	for _, each := range r {
		each.Refresh()
	}
}

// Flows is the flows table with the folder sidebar. The two engines are
// independent; choosing a folder only sets the folderId filter.
type Flows struct {
	*List[api.Flow]
	cfg            FlowsConfig
	sidebar        *components.FolderSidebar
	folderChanges  <-chan struct{}
	releaseFolders func()
	FocusKey       key.Binding
}

func NewFlows(ctx context.Context, cfg FlowsConfig) (*Flows, error) {
	if cfg.Toasts == nil {
		cfg.Toasts = components.NewToasts(0)
	}
	if cfg.Confirmer == nil {
		cfg.Confirmer = components.NewPromptConfirmer()
	}
	if cfg.FolderNames == nil {
		cfg.FolderNames = resources.NewFolderNames()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.FromContext(ctx)
	}
	dispatcher, err := listing.NewDispatcher(listing.DispatcherConfig[api.Flow]{
		Actions: resources.FlowActions(cfg.Client, flowInputs{names: cfg.FolderNames}),
		Lookup: func(id string) (api.Flow, bool) {
			return cfg.Flows.Find(id, resources.FlowID)
		},
		Refresher: refreshAll{cfg.Flows, cfg.Folders},
		Notifier:  cfg.Toasts,
		Confirmer: cfg.Confirmer,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	sidebar := components.NewFolderSidebar()
	sidebar.SetActive(cfg.Flows.Snapshot().Filters.Text(resources.FilterFolderID))
	f := &Flows{cfg: cfg, sidebar: sidebar, FocusKey: binding("tab", "folders/flows")}
	f.List = NewList(ctx, ListConfig[api.Flow]{
		Title:             "Flows",
		Engine:            cfg.Flows,
		Columns:           resources.FlowColumns(cfg.FolderNames),
		IDOf:              resources.FlowID,
		Empty:             "No flows found",
		FilterKey:         resources.FilterName,
		FilterPlaceholder: "Filter by name",
		Dispatcher:        dispatcher,
		Toasts:            cfg.Toasts,
		Confirmer:         cfg.Confirmer,
		Logger:            cfg.Logger,
		Actions: []ActionBinding{
			{Key: binding("r", "rename"), Action: resources.ActionRename, Prompt: "New flow name"},
			{Key: binding("m", "move"), Action: resources.ActionMove, Prompt: "Move to folder"},
			{Key: binding("D", "duplicate"), Action: resources.ActionDuplicate},
			{Key: binding("e", "enable/disable"), Action: resources.ActionToggleStatus},
			{Key: binding("d", "delete"), Action: resources.ActionDelete},
		},
		Commands: []Command{
			{Key: binding("c", "new flow"), Run: f.createFlow},
			{Key: binding("y", "copy share link"), Run: f.share},
		},
		Forms: []FormCommand{
			{Key: binding("i", "import flow"), Open: f.openImport},
		},
	})
	f.folderChanges, f.releaseFolders = cfg.Folders.Subscribe()
	f.syncFolders()
	return f, nil
}

func binding(k, help string) key.Binding {
	return key.NewBinding(key.WithKeys(k), key.WithHelp(k, help))
}

func (f *Flows) Sidebar() *components.FolderSidebar {
	return f.sidebar
}

func (f *Flows) createFlow(ctx context.Context) (string, error) {
	res, err := resources.CreateFromScratch(ctx, f.cfg.Client, f.cfg.ProjectID, f.sidebar.Active())
	if err != nil {
		return "", err
	}
	f.cfg.Flows.Refresh()
	f.cfg.Folders.Refresh()
	return fmt.Sprintf("Created %s: %s", res.Flow.Version.DisplayName, res.BuilderURL), nil
}

func (f *Flows) openImport(ctx context.Context) (*huh.Form, func() tea.Cmd, error) {
	path := new(string)
	submit := func() tea.Cmd {
		return func() tea.Msg {
			message, err := f.importFile(ctx, strings.TrimSpace(*path))
			return DoneMsg{Message: message, Err: err}
		}
	}
	return components.NewImportFlowForm(path), submit, nil
}

// importFile creates a flow from the file at path in the active folder.
func (f *Flows) importFile(ctx context.Context, path string) (string, error) {
	version, err := resources.ReadFlowTemplate(path)
	if err != nil {
		return "", err
	}
	res, err := resources.ImportFlow(ctx, f.cfg.Client, f.cfg.ProjectID, f.sidebar.Active(), version)
	if err != nil {
		return "", err
	}
	f.cfg.Flows.Refresh()
	f.cfg.Folders.Refresh()
	return fmt.Sprintf("Imported %s: %s", res.Flow.Version.DisplayName, res.BuilderURL), nil
}

func (f *Flows) share(context.Context) (string, error) {
	url := resources.ShareURL(f.cfg.Client, f.cfg.Flows)
	if f.cfg.Clipboard == nil {
		return url, nil
	}
	if err := f.cfg.Clipboard(url); err == nil {
		return "Link copied: " + url, nil
	}
	return url, nil
}

func (f *Flows) syncFolders() {
	rows := f.cfg.Folders.Snapshot().Rows
	f.cfg.FolderNames.Add(rows...)
	f.sidebar.SetItems(resources.SidebarItems(rows))
}

func (f *Flows) Init() tea.Cmd {
	return tea.Batch(f.List.Init(), components.WatchEngine(f.folderChanges, f.cfg.Folders.ID()))
}

func (f *Flows) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.List.Update(msg)
		f.sidebar.SetWidth(f.Layout().SidebarWidth)
		f.Table().SetSize(f.Layout().ContentSize(true))
		return f, nil
	case components.EngineChangedMsg:
		if msg.Listing == f.cfg.Folders.ID() {
			f.syncFolders()
			return f, components.WatchEngine(f.folderChanges, msg.Listing)
		}
	case components.FolderSelectedMsg:
		if err := resources.SelectFolder(f.cfg.Flows, msg.FolderID); err != nil {
			f.cfg.Toasts.Error("Error", err.Error())
		}
		f.focusTable()
		return f, nil
	case tea.KeyMsg:
		if !f.Modal() {
			if key.Matches(msg, f.FocusKey) {
				if f.sidebar.Focused() {
					f.focusTable()
				} else {
					f.sidebar.SetFocused(true)
					f.Table().SetFocused(false)
				}
				return f, nil
			}
			if f.sidebar.Focused() && (key.Matches(msg, f.sidebar.Up) ||
				key.Matches(msg, f.sidebar.Down) ||
				key.Matches(msg, f.sidebar.Choose)) {
				return f, f.sidebar.Update(msg)
			}
		}
	}
	_, cmd := f.List.Update(msg)
	if f.IsQuitting() {
		return f, tea.Quit
	}
	return f, cmd
}

func (f *Flows) focusTable() {
	f.sidebar.SetFocused(false)
	f.Table().SetFocused(true)
}

func (f *Flows) View() string {
	parts := f.Parts()
	parts.Sidebar = f.sidebar.View()
	keys := f.Keys()
	keys.Short = append([]key.Binding{f.FocusKey}, keys.Short...)
	keys.Full = append(keys.Full, []key.Binding{f.FocusKey, f.sidebar.Up, f.sidebar.Down, f.sidebar.Choose})
	parts.Keys = keys
	return f.Layout().View(parts)
}

func (f *Flows) Close() {
	f.List.Close()
	if f.releaseFolders != nil {
		f.releaseFolders()
		f.releaseFolders = nil
	}
}
