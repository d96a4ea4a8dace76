package resources_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/compozy/flowctl/cli/api"
	"github.com/compozy/flowctl/cli/resources"
	"github.com/compozy/flowctl/pkg/dialogs"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/test/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const project = "proj-1"

func setup(t *testing.T) (*fakeapi.Server, *api.Client, resources.Settings) {
	t.Helper()
	srv := fakeapi.New(t)
	client, err := api.NewClient(api.Options{BaseURL: srv.URL(), APIKey: "token"})
	require.NoError(t, err)
	return srv, client, resources.Settings{ProjectID: project, PageSize: 10}
}

func run[T any](t *testing.T, e *listing.Engine[T]) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func idle[T any](t *testing.T, e *listing.Engine[T]) listing.Snapshot[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	snap, err := e.WaitIdle(ctx)
	require.NoError(t, err)
	return snap
}

func flowNames(rows []api.Flow) []string {
	out := make([]string, len(rows))
	for i, f := range rows {
		out[i] = f.Version.DisplayName
	}
	return out
}

func TestFlowsEngine(t *testing.T) {
	t.Run("Should page through the project's flows", func(t *testing.T) {
		srv, client, settings := setup(t)
		srv.SeedFlows(project, "Flow", 25)
		srv.SeedFlows("other", "Foreign", 5)
		e, err := resources.NewFlowsEngine(client, settings)
		require.NoError(t, err)
		run(t, e)

		e.Initialize(nil)
		first := idle(t, e)
		require.Len(t, first.Rows, 10)
		assert.Equal(t, "Flow 1", first.Rows[0].Version.DisplayName)

		require.True(t, e.NextPage())
		second := idle(t, e)
		assert.Equal(t, "Flow 11", second.Rows[0].Version.DisplayName)
		assert.True(t, second.HasPreviousPage)
		require.True(t, e.PreviousPage())
		back := idle(t, e)
		assert.Equal(t, 1, back.PageNumber)
		assert.Equal(t, "Flow 1", back.Rows[0].Version.DisplayName)
		for _, r := range srv.RequestsTo(http.MethodGet, "/flows") {
			assert.Equal(t, project, r.Query.Get("projectId"))
		}
	})

	t.Run("Should filter by name, status and folder", func(t *testing.T) {
		srv, client, settings := setup(t)
		folder := srv.AddFolder(api.Folder{ProjectID: project, DisplayName: "Billing"})
		srv.AddFlow(api.Flow{ProjectID: project, Status: api.FlowStatusEnabled, FolderID: folder.ID,
			Version: api.FlowVersion{DisplayName: "Invoice sync"}})
		srv.AddFlow(api.Flow{ProjectID: project, Status: api.FlowStatusDisabled,
			Version: api.FlowVersion{DisplayName: "Invoice archive"}})
		srv.AddFlow(api.Flow{ProjectID: project, Status: api.FlowStatusEnabled,
			Version: api.FlowVersion{DisplayName: "Slack digest"}})
		e, err := resources.NewFlowsEngine(client, settings)
		require.NoError(t, err)
		run(t, e)
		e.Initialize(nil)
		idle(t, e)

		require.NoError(t, e.SetFilter(resources.FilterName, listing.Text("invoice")))
		assert.Equal(t, []string{"Invoice sync", "Invoice archive"}, flowNames(idle(t, e).Rows))

		require.NoError(t, e.SetFilter(resources.FilterStatus, listing.Values("DISABLED")))
		assert.Equal(t, []string{"Invoice archive"}, flowNames(idle(t, e).Rows))

		require.NoError(t, e.SetFilter(resources.FilterStatus, nil))
		require.NoError(t, resources.SelectFolder(e, folder.ID))
		assert.Equal(t, []string{"Invoice sync"}, flowNames(idle(t, e).Rows))

		require.NoError(t, resources.SelectFolder(e, api.UncategorizedFolder))
		assert.Equal(t, []string{"Invoice archive"}, flowNames(idle(t, e).Rows))
	})

	t.Run("Should reject undeclared status values", func(t *testing.T) {
		_, client, settings := setup(t)
		e, err := resources.NewFlowsEngine(client, settings)
		require.NoError(t, err)
		assert.True(t, listing.IsValidation(e.SetFilter(resources.FilterStatus, listing.Values("ARCHIVED"))))
	})

	t.Run("Should sort on sortable columns only", func(t *testing.T) {
		srv, client, settings := setup(t)
		srv.SeedFlows(project, "Flow", 3)
		e, err := resources.NewFlowsEngine(client, settings)
		require.NoError(t, err)
		run(t, e)
		e.Initialize(nil)
		idle(t, e)

		require.NoError(t, e.SetSort(&listing.SortSpec{Key: "created", Desc: true}))
		assert.Equal(t, []string{"Flow 3", "Flow 2", "Flow 1"}, flowNames(idle(t, e).Rows))
		assert.Error(t, e.SetSort(&listing.SortSpec{Key: "steps"}))
	})

	t.Run("Should build a share URL from the filters", func(t *testing.T) {
		srv, client, settings := setup(t)
		e, err := resources.NewFlowsEngine(client, settings)
		require.NoError(t, err)
		e.Initialize(map[string][]string{"name": {"inv"}})

		url := resources.ShareURL(client, e)
		assert.Equal(t, strings.TrimSuffix(srv.URL(), "/api")+"/flows?name=inv", url)
	})
}

func TestFlowActions(t *testing.T) {
	newDispatcher := func(t *testing.T, client *api.Client, e *listing.Engine[api.Flow], inputs resources.FlowInputs) *listing.Dispatcher[api.Flow] {
		t.Helper()
		d, err := listing.NewDispatcher(listing.DispatcherConfig[api.Flow]{
			Actions:   resources.FlowActions(client, inputs),
			Lookup:    func(id string) (api.Flow, bool) { return e.Find(id, resources.FlowID) },
			Refresher: e,
		})
		require.NoError(t, err)
		return d
	}

	t.Run("Should rename and refresh", func(t *testing.T) {
		srv, client, settings := setup(t)
		flows := srv.SeedFlows(project, "Flow", 2)
		e, err := resources.NewFlowsEngine(client, settings)
		require.NoError(t, err)
		run(t, e)
		e.Initialize(nil)
		idle(t, e)
		d := newDispatcher(t, client, e, resources.StaticFlowInputs{Name: "Renamed"})

		require.NoError(t, d.Dispatch(t.Context(), resources.ActionRename, flows[0].ID))

		snap := idle(t, e)
		assert.Equal(t, []string{"Renamed", "Flow 2"}, flowNames(snap.Rows))
		assert.Equal(t, uint64(1), snap.RefreshToken)
	})

	t.Run("Should reject an empty name without calling the API", func(t *testing.T) {
		srv, client, settings := setup(t)
		flows := srv.SeedFlows(project, "Flow", 1)
		e, err := resources.NewFlowsEngine(client, settings)
		require.NoError(t, err)
		run(t, e)
		e.Initialize(nil)
		idle(t, e)
		d := newDispatcher(t, client, e, resources.StaticFlowInputs{Name: "   "})

		err = d.Dispatch(t.Context(), resources.ActionRename, flows[0].ID)

		assert.True(t, listing.IsValidation(err))
		assert.Empty(t, srv.RequestsTo(http.MethodPost, "/flows/"+flows[0].ID))
	})

	t.Run("Should toggle status and move between folders", func(t *testing.T) {
		srv, client, settings := setup(t)
		folder := srv.AddFolder(api.Folder{ProjectID: project, DisplayName: "Ops"})
		flows := srv.SeedFlows(project, "Flow", 1)
		e, err := resources.NewFlowsEngine(client, settings)
		require.NoError(t, err)
		run(t, e)
		e.Initialize(nil)
		idle(t, e)
		d := newDispatcher(t, client, e, resources.StaticFlowInputs{FolderID: folder.ID})

		require.NoError(t, d.Dispatch(t.Context(), resources.ActionToggleStatus, flows[0].ID))
		idle(t, e)
		require.NoError(t, d.Dispatch(t.Context(), resources.ActionMove, flows[0].ID))
		idle(t, e)

		got := srv.Flows()[0]
		assert.Equal(t, api.FlowStatusDisabled, got.Status)
		assert.Equal(t, folder.ID, got.FolderID)
	})

	t.Run("Should duplicate into the same folder", func(t *testing.T) {
		srv, client, settings := setup(t)
		folder := srv.AddFolder(api.Folder{ProjectID: project, DisplayName: "Ops"})
		src := srv.AddFlow(api.Flow{ProjectID: project, FolderID: folder.ID,
			Version: api.FlowVersion{DisplayName: "Nightly"}})
		e, err := resources.NewFlowsEngine(client, settings)
		require.NoError(t, err)
		run(t, e)
		e.Initialize(nil)
		idle(t, e)
		d := newDispatcher(t, client, e, nil)

		require.NoError(t, d.Dispatch(t.Context(), resources.ActionDuplicate, src.ID))

		all := srv.Flows()
		require.Len(t, all, 2)
		assert.Equal(t, "Nightly", all[1].Version.DisplayName)
		assert.Equal(t, folder.ID, all[1].FolderID)
	})

	t.Run("Should restart at page one after deleting on page three", func(t *testing.T) {
		srv, client, settings := setup(t)
		flows := srv.SeedFlows(project, "Flow", 25)
		e, err := resources.NewFlowsEngine(client, settings)
		require.NoError(t, err)
		run(t, e)
		e.Initialize(nil)
		idle(t, e)
		require.True(t, e.NextPage())
		idle(t, e)
		require.True(t, e.NextPage())
		require.Equal(t, 3, idle(t, e).PageNumber)
		d := newDispatcher(t, client, e, nil)

		require.NoError(t, d.Dispatch(t.Context(), resources.ActionDelete, flows[22].ID))

		snap := idle(t, e)
		assert.Equal(t, 1, snap.PageNumber)
		assert.Equal(t, "Flow 1", snap.Rows[0].Version.DisplayName)
		assert.Len(t, srv.Flows(), 24)
	})

	t.Run("Should notify the conflict message when the name is taken", func(t *testing.T) {
		srv, client, settings := setup(t)
		flows := srv.SeedFlows(project, "Flow", 1)
		srv.FailNext(http.MethodPost, "/flows/"+flows[0].ID, http.StatusConflict, `{"message":"duplicate"}`)
		e, err := resources.NewFlowsEngine(client, settings)
		require.NoError(t, err)
		run(t, e)
		e.Initialize(nil)
		idle(t, e)
		notifier := &recordingNotifier{}
		d, err := listing.NewDispatcher(listing.DispatcherConfig[api.Flow]{
			Actions:   resources.FlowActions(client, resources.StaticFlowInputs{Name: "Taken"}),
			Lookup:    func(id string) (api.Flow, bool) { return e.Find(id, resources.FlowID) },
			Refresher: e,
			Notifier:  notifier,
		})
		require.NoError(t, err)

		require.Error(t, d.Dispatch(t.Context(), resources.ActionRename, flows[0].ID))

		assert.Equal(t, []string{"A flow with this name already exists"}, notifier.errors)
		assert.Equal(t, uint64(0), e.RefreshToken())
	})
}

type recordingNotifier struct {
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(_, message string) { n.successes = append(n.successes, message) }
func (n *recordingNotifier) Error(_, message string)   { n.errors = append(n.errors, message) }

func TestCreateFromScratch(t *testing.T) {
	t.Run("Should create an untitled flow in the selected folder", func(t *testing.T) {
		srv, client, _ := setup(t)
		folder := srv.AddFolder(api.Folder{ProjectID: project, DisplayName: "Marketing"})

		res, err := resources.CreateFromScratch(t.Context(), client, project, folder.ID)

		require.NoError(t, err)
		assert.Equal(t, resources.NewFlowName, res.Flow.Version.DisplayName)
		assert.Equal(t, folder.ID, res.Flow.FolderID)
		assert.Equal(t, strings.TrimSuffix(srv.URL(), "/api")+"/flows/"+res.Flow.ID, res.BuilderURL)
	})

	t.Run("Should skip the folder lookup for uncategorized", func(t *testing.T) {
		srv, client, _ := setup(t)

		res, err := resources.CreateFromScratch(t.Context(), client, project, api.UncategorizedFolder)

		require.NoError(t, err)
		assert.Empty(t, res.Flow.FolderID)
		assert.Empty(t, srv.RequestsTo(http.MethodGet, "/folders/"+api.UncategorizedFolder))
	})

	t.Run("Should fail when the folder is unknown", func(t *testing.T) {
		srv, client, _ := setup(t)

		_, err := resources.CreateFromScratch(t.Context(), client, project, "missing")

		assert.Equal(t, http.StatusNotFound, listing.StatusCode(err))
		assert.Empty(t, srv.Flows())
	})
}

const scheduleTrigger = `{"name":"trigger","type":"PIECE_TRIGGER",` +
	`"settings":{"pieceName":"@flows/piece-schedule"},` +
	`"nextAction":{"name":"step_1","type":"PIECE","settings":{"pieceName":"@flows/piece-slack"}}}`

func TestParseFlowTemplate(t *testing.T) {
	t.Run("Should read the template envelope", func(t *testing.T) {
		raw := `{"name":"Export","template":{"id":"v-1","displayName":" Nightly ","trigger":` + scheduleTrigger + `}}`

		version, err := resources.ParseFlowTemplate([]byte(raw))

		require.NoError(t, err)
		assert.Empty(t, version.ID)
		assert.Equal(t, "Nightly", version.DisplayName)
		assert.Equal(t, []string{"@flows/piece-schedule", "@flows/piece-slack"}, version.PieceNames())
	})

	t.Run("Should read a bare flow version", func(t *testing.T) {
		raw := `{"displayName":"Nightly","trigger":` + scheduleTrigger + `}`

		version, err := resources.ParseFlowTemplate([]byte(raw))

		require.NoError(t, err)
		assert.Equal(t, "Nightly", version.DisplayName)
	})

	t.Run("Should reject invalid or incomplete files", func(t *testing.T) {
		for _, raw := range []string{
			`{"displayName":`,
			`{"trigger":` + scheduleTrigger + `}`,
			`{"displayName":"Nightly"}`,
		} {
			_, err := resources.ParseFlowTemplate([]byte(raw))
			require.Error(t, err, raw)
			assert.True(t, listing.IsValidation(err), raw)
		}
	})
}

func TestImportFlow(t *testing.T) {
	t.Run("Should create the flow in the folder and load the trigger chain", func(t *testing.T) {
		srv, client, _ := setup(t)
		folder := srv.AddFolder(api.Folder{ProjectID: project, DisplayName: "Ops"})
		version, err := resources.ParseFlowTemplate([]byte(`{"displayName":"Nightly","trigger":` + scheduleTrigger + `}`))
		require.NoError(t, err)

		res, err := resources.ImportFlow(t.Context(), client, project, folder.ID, version)

		require.NoError(t, err)
		require.Len(t, srv.Flows(), 1)
		stored := srv.Flows()[0]
		assert.Equal(t, res.Flow.ID, stored.ID)
		assert.Equal(t, folder.ID, stored.FolderID)
		assert.Equal(t, "Nightly", stored.Version.DisplayName)
		assert.Equal(t, []string{"@flows/piece-schedule", "@flows/piece-slack"}, stored.Version.PieceNames())
		assert.Len(t, srv.RequestsTo(http.MethodPost, "/flows/"+stored.ID), 1)
	})
}

func TestStepsCell(t *testing.T) {
	chain := func(pieces ...string) *api.Step {
		var head *api.Step
		for i := len(pieces) - 1; i >= 0; i-- {
			head = &api.Step{Name: pieces[i], Settings: api.StepSettings{PieceName: pieces[i]}, NextAction: head}
		}
		return head
	}

	t.Run("Should show at most two pieces and a counter", func(t *testing.T) {
		f := api.Flow{Version: api.FlowVersion{Trigger: chain(
			"@activepieces/piece-schedule",
			"@activepieces/piece-slack",
			"@activepieces/piece-gmail",
			"@activepieces/piece-slack",
		)}}
		assert.Equal(t, "schedule, slack +1", resources.StepsCell(f))
	})

	t.Run("Should render a dash for empty flows", func(t *testing.T) {
		assert.Equal(t, "-", resources.StepsCell(api.Flow{}))
	})
}

func TestFolders(t *testing.T) {
	t.Run("Should resolve names across pages", func(t *testing.T) {
		srv, client, _ := setup(t)
		var last api.Folder
		for i := range 120 {
			last = srv.AddFolder(api.Folder{ProjectID: project, DisplayName: "F" + strings.Repeat("x", i%3)})
		}
		names := resources.NewFolderNames()

		require.NoError(t, names.Load(t.Context(), client, project))

		assert.Equal(t, last.DisplayName, names.Name(last.ID))
		assert.Equal(t, resources.UncategorizedLabel, names.Name(""))
		assert.Equal(t, "unknown-id", names.Name("unknown-id"))

		id, ok := names.Lookup(strings.ToUpper(last.DisplayName))
		require.True(t, ok)
		assert.Equal(t, names.Name(id), last.DisplayName)
		id, ok = names.Lookup("uncategorized")
		assert.True(t, ok)
		assert.Equal(t, api.UncategorizedFolder, id)
		_, ok = names.Lookup("Nope")
		assert.False(t, ok)
	})

	t.Run("Should prepend the synthetic sidebar entries", func(t *testing.T) {
		items := resources.SidebarItems([]api.Folder{{ID: "f1", DisplayName: "Ops", NumberOfFlows: 2}})
		require.Len(t, items, 3)
		assert.Equal(t, resources.AllFlowsLabel, items[0].Label)
		assert.Empty(t, items[0].FolderID)
		assert.Equal(t, api.UncategorizedFolder, items[1].FolderID)
		assert.Equal(t, resources.SidebarItem{Label: "Ops", FolderID: "f1", Count: 2}, items[2])
	})

	t.Run("Should keep the sidebar engine independent of the flows engine", func(t *testing.T) {
		srv, client, settings := setup(t)
		srv.AddFolder(api.Folder{ProjectID: project, DisplayName: "Ops"})
		folders, err := resources.NewFoldersEngine(client, settings)
		require.NoError(t, err)
		flows, err := resources.NewFlowsEngine(client, settings)
		require.NoError(t, err)
		run(t, folders)
		run(t, flows)
		folders.Initialize(nil)
		flows.Initialize(nil)
		sidebar := idle(t, folders)
		idle(t, flows)

		require.NoError(t, resources.SelectFolder(flows, sidebar.Rows[0].ID))
		idle(t, flows)

		assert.Equal(t, uint64(0), folders.RefreshToken())
		assert.Equal(t, 1, idle(t, folders).PageNumber)
		assert.Equal(t, sidebar.Rows[0].ID, flows.Snapshot().Filters.Text(resources.FilterFolderID))
	})
}

func TestConnections(t *testing.T) {
	t.Run("Should list connections with the piece filter", func(t *testing.T) {
		srv, client, settings := setup(t)
		srv.AddConnection(api.AppConnection{ProjectID: project, Name: "slack-prod", PieceName: "@activepieces/piece-slack"})
		srv.AddConnection(api.AppConnection{ProjectID: project, Name: "gmail", PieceName: "@activepieces/piece-gmail"})
		e, err := resources.NewConnectionsEngine(client, settings)
		require.NoError(t, err)
		run(t, e)

		e.Initialize(map[string][]string{resources.FilterPieceName: {"slack"}})
		snap := idle(t, e)

		require.Len(t, snap.Rows, 1)
		assert.Equal(t, []string{"slack", "slack-prod", "ACTIVE"}, resources.ConnectionColumns().Row(snap.Rows[0])[:3])
	})

	t.Run("Should create a connection through the dialog and refresh", func(t *testing.T) {
		srv, client, settings := setup(t)
		srv.AddPiece(api.PieceSummary{Name: "@activepieces/piece-slack", DisplayName: "Slack", Auth: &api.PieceAuth{Type: "SECRET_TEXT"}})
		srv.AddPiece(api.PieceSummary{Name: "@activepieces/piece-schedule", DisplayName: "Schedule"})
		e, err := resources.NewConnectionsEngine(client, settings)
		require.NoError(t, err)
		run(t, e)
		e.Initialize(nil)
		idle(t, e)
		svc := resources.ConnectionService{Client: client, ProjectID: project}
		d, err := dialogs.NewNewConnectionDialog(dialogs.NewConnectionConfig{
			Catalog:   svc,
			Creator:   svc,
			OnCreated: func(dialogs.Created) { e.Refresh() },
		})
		require.NoError(t, err)

		require.NoError(t, d.Open(t.Context()))
		require.Len(t, d.Candidates(), 1)
		require.NoError(t, d.Select("@activepieces/piece-slack"))
		created, err := d.Submit(t.Context(), dialogs.ConnectionInput{
			Name:  "slack-prod",
			Type:  "SECRET_TEXT",
			Value: map[string]string{"secret_text": "xoxb-1"},
		})
		require.NoError(t, err)

		snap := idle(t, e)
		require.Len(t, snap.Rows, 1)
		assert.Equal(t, created.ID, snap.Rows[0].ID)
		assert.Equal(t, uint64(1), snap.RefreshToken)
	})
}

func TestPieces(t *testing.T) {
	t.Run("Should search and page the catalog locally", func(t *testing.T) {
		srv, client, settings := setup(t)
		for _, name := range []string{"Slack", "Gmail", "Google Sheets", "Google Drive", "Notion"} {
			srv.AddPiece(api.PieceSummary{Name: "@activepieces/piece-" + strings.ToLower(strings.ReplaceAll(name, " ", "-")), DisplayName: name})
		}
		settings.PageSize = 1
		e, err := resources.NewPiecesEngine(client, settings)
		require.NoError(t, err)
		run(t, e)

		e.Initialize(map[string][]string{resources.FilterSearch: {"google"}})
		first := idle(t, e)
		require.Len(t, first.Rows, 1)
		assert.Equal(t, "Google Sheets", first.Rows[0].DisplayName)
		require.True(t, e.NextPage())
		assert.Equal(t, "Google Drive", idle(t, e).Rows[0].DisplayName)
		assert.False(t, e.NextPage())
		assert.Len(t, srv.RequestsTo(http.MethodGet, "/pieces"), 1)
	})

	t.Run("Should keep the install form open on a duplicate install", func(t *testing.T) {
		srv, client, _ := setup(t)
		notifier := &recordingNotifier{}
		form, err := dialogs.NewInstallPieceForm(dialogs.InstallConfig{
			Installer: resources.PieceService{Client: client},
			Flags:     resources.PieceService{Client: client},
			Notifier:  notifier,
		})
		require.NoError(t, err)
		in := dialogs.InstallInput{
			PieceName:    "@acme/piece-invoices",
			PieceVersion: "0.3.1",
			PackageType:  dialogs.PackageRegistry,
			Scope:        dialogs.ScopeProject,
		}

		form.Open(t.Context())
		require.NoError(t, form.Submit(t.Context(), in))
		assert.Equal(t, []string{dialogs.PieceInstalledMessage}, notifier.successes)

		form.Open(t.Context())
		err = form.Submit(t.Context(), in)

		assert.True(t, listing.IsConflict(err))
		assert.True(t, form.IsOpen())
		assert.Equal(t, dialogs.PieceAlreadyInstalledMessage, form.ServerError())
		assert.Equal(t, in, form.Values())
		assert.Len(t, srv.Installed(), 1)
	})

	t.Run("Should read the private pieces flag", func(t *testing.T) {
		srv, client, _ := setup(t)
		srv.SetFlag(api.FlagPrivatePiecesEnabled, true)
		form, err := dialogs.NewInstallPieceForm(dialogs.InstallConfig{
			Installer: resources.PieceService{Client: client},
			Flags:     resources.PieceService{Client: client},
		})
		require.NoError(t, err)

		form.Open(t.Context())

		assert.Equal(t, []string{dialogs.PackageRegistry, dialogs.PackageArchive}, form.PackageTypes())
	})
}
