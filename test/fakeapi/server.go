// Package fakeapi is an in-memory implementation of the platform REST API
// used by client and command tests.
package fakeapi

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/compozy/flowctl/cli/api"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Request is a recorded inbound request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
}

type failure struct {
	status int
	body   string
}

type InstalledPiece struct {
	Name        string
	Version     string
	PackageType string
	Scope       string
	ArchiveName string
}

type Server struct {
	srv   *httptest.Server
	token string

	mu          sync.Mutex
	flows       []api.Flow
	folders     []api.Folder
	connections []api.AppConnection
	pieces      []api.PieceSummary
	installed   []InstalledPiece
	flags       map[string]any
	requests    []Request
	failures    map[string]failure
	clock       time.Time
}

type Option func(*Server)

// WithToken makes every request require the bearer token.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// New starts a server that is closed when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &Server{
		flags:    map[string]any{},
		failures: map[string]failure{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the server URL in the form flowctl expects, ending in /api.
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(s.record, s.auth, s.inject)
	v1 := r.Group("/api/v1")
	v1.GET("/flows", s.listFlows)
	v1.POST("/flows", s.createFlow)
	v1.GET("/flows/:id", s.getFlow)
	v1.POST("/flows/:id", s.updateFlow)
	v1.DELETE("/flows/:id", s.deleteFlow)
	v1.GET("/folders", s.listFolders)
	v1.GET("/folders/:id", s.getFolder)
	v1.GET("/app-connections", s.listConnections)
	v1.POST("/app-connections", s.upsertConnection)
	v1.DELETE("/app-connections/:id", s.deleteConnection)
	v1.GET("/pieces", s.listPieces)
	v1.POST("/pieces", s.installPiece)
	v1.GET("/flags", s.getFlags)
	return r
}

func (s *Server) record(c *gin.Context) {
	req := Request{Method: c.Request.Method, Path: c.Request.URL.Path, Query: c.Request.URL.Query()}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(32 << 20); err == nil {
			req.Form = url.Values(c.Request.MultipartForm.Value)
		}
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	c.Next()
}

func (s *Server) auth(c *gin.Context) {
	if s.token != "" && c.GetHeader("Authorization") != "Bearer "+s.token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	c.Next()
}

func (s *Server) inject(c *gin.Context) {
	key := c.Request.Method + " " + c.Request.URL.Path
	s.mu.Lock()
	f, ok := s.failures[key]
	if ok {
		delete(s.failures, key)
	}
	s.mu.Unlock()
	if ok {
		c.Data(f.status, "application/json", []byte(f.body))
		c.Abort()
		return
	}
	c.Next()
}

// FailNext makes the next request to method+path answer with status and body.
func (s *Server) FailNext(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" /api/v1"+path] = failure{status: status, body: body}
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// RequestsTo returns the recorded requests for method and API path.
func (s *Server) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == "/api/v1"+path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

// SeedFlows adds n flows named "<prefix> <i>" to project.
func (s *Server) SeedFlows(project, prefix string, n int) []api.Flow {
	out := make([]api.Flow, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, s.AddFlow(api.Flow{
			ProjectID: project,
			Status:    api.FlowStatusEnabled,
			Version:   api.FlowVersion{DisplayName: fmt.Sprintf("%s %d", prefix, i)},
		}))
	}
	return out
}

func (s *Server) AddFlow(f api.Flow) api.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Status == "" {
		f.Status = api.FlowStatusDisabled
	}
	if f.Created.IsZero() {
		f.Created = s.tick()
		f.Updated = f.Created
	}
	s.flows = append(s.flows, f)
	return f
}

func (s *Server) Flows() []api.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.flows)
}

func (s *Server) AddFolder(f api.Folder) api.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Created.IsZero() {
		f.Created = s.tick()
		f.Updated = f.Created
	}
	s.folders = append(s.folders, f)
	return f
}

func (s *Server) AddConnection(conn api.AppConnection) api.AppConnection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	if conn.Status == "" {
		conn.Status = api.ConnectionActive
	}
	if conn.Created.IsZero() {
		conn.Created = s.tick()
		conn.Updated = conn.Created
	}
	s.connections = append(s.connections, conn)
	return conn
}

func (s *Server) Connections() []api.AppConnection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.connections)
}

func (s *Server) AddPiece(p api.PieceSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pieces = append(s.pieces, p)
}

func (s *Server) Installed() []InstalledPiece {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.installed)
}

func (s *Server) SetFlag(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[name] = value
}

func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(raw))
}

// paginate slices items using the cursor and limit query parameters.
func paginate[T any](c *gin.Context, items []T) (api.SeekPage[T], bool) {
	offset, err := decodeCursor(c.Query("cursor"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid cursor"})
		return api.SeekPage[T]{}, false
	}
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid limit"})
			return api.SeekPage[T]{}, false
		}
	}
	start := min(offset, len(items))
	end := min(start+limit, len(items))
	page := api.SeekPage[T]{Data: slices.Clone(items[start:end])}
	if page.Data == nil {
		page.Data = []T{}
	}
	if end < len(items) {
		next := encodeCursor(end)
		page.Next = &next
	}
	if start > 0 {
		prev := encodeCursor(max(0, start-limit))
		page.Previous = &prev
	}
	return page, true
}

func (s *Server) listFlows(c *gin.Context) {
	project := c.Query("projectId")
	name := strings.ToLower(c.Query("name"))
	statuses := c.QueryArray("status")
	folder, hasFolder := c.GetQuery("folderId")
	s.mu.Lock()
	var matched []api.Flow
	for _, f := range s.flows {
		if project != "" && f.ProjectID != project {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(f.Version.DisplayName), name) {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, string(f.Status)) {
			continue
		}
		if hasFolder {
			if folder == api.UncategorizedFolder && f.FolderID != "" {
				continue
			}
			if folder != api.UncategorizedFolder && f.FolderID != folder {
				continue
			}
		}
		matched = append(matched, f)
	}
	s.mu.Unlock()
	sortFlows(matched, c.Query("sortBy"), c.Query("sortOrder") == "DESC")
	if page, ok := paginate(c, matched); ok {
		c.JSON(http.StatusOK, page)
	}
}

func sortFlows(flows []api.Flow, by string, desc bool) {
	var cmp func(a, b api.Flow) int
	switch by {
	case "name":
		cmp = func(a, b api.Flow) int { return strings.Compare(a.Version.DisplayName, b.Version.DisplayName) }
	case "created":
		cmp = func(a, b api.Flow) int { return a.Created.Compare(b.Created) }
	default:
		return
	}
	slices.SortStableFunc(flows, func(a, b api.Flow) int {
		if desc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
}

func (s *Server) findFlowLocked(id string) int {
	return slices.IndexFunc(s.flows, func(f api.Flow) bool { return f.ID == id })
}

func (s *Server) getFlow(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findFlowLocked(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "flow not found"})
		return
	}
	c.JSON(http.StatusOK, s.flows[i])
}

func (s *Server) createFlow(c *gin.Context) {
	var body struct {
		ProjectID   string `json:"projectId"`
		DisplayName string `json:"displayName"`
		FolderName  string `json:"folderName"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ProjectID == "" || body.DisplayName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "projectId and displayName are required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	flow := api.Flow{
		ID:        uuid.NewString(),
		ProjectID: body.ProjectID,
		Status:    api.FlowStatusDisabled,
		Created:   s.tick(),
		Version:   api.FlowVersion{DisplayName: body.DisplayName},
	}
	flow.Updated = flow.Created
	if body.FolderName != "" {
		i := slices.IndexFunc(s.folders, func(f api.Folder) bool { return f.DisplayName == body.FolderName })
		if i < 0 {
			s.folders = append(s.folders, api.Folder{
				ID:          uuid.NewString(),
				ProjectID:   body.ProjectID,
				DisplayName: body.FolderName,
				Created:     flow.Created,
				Updated:     flow.Created,
			})
			i = len(s.folders) - 1
		}
		flow.FolderID = s.folders[i].ID
	}
	s.flows = append(s.flows, flow)
	c.JSON(http.StatusCreated, flow)
}

func (s *Server) updateFlow(c *gin.Context) {
	var op struct {
		Type    api.FlowOperationType `json:"type"`
		Request struct {
			DisplayName string         `json:"displayName"`
			Status      api.FlowStatus `json:"status"`
			FolderID    *string        `json:"folderId"`
			Trigger     *api.Step      `json:"trigger"`
		} `json:"request"`
	}
	if err := c.ShouldBindJSON(&op); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findFlowLocked(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "flow not found"})
		return
	}
	flow := &s.flows[i]
	switch op.Type {
	case api.OpChangeName:
		flow.Version.DisplayName = op.Request.DisplayName
	case api.OpChangeStatus:
		flow.Status = op.Request.Status
	case api.OpChangeFolder:
		flow.FolderID = ""
		if op.Request.FolderID != nil {
			flow.FolderID = *op.Request.FolderID
		}
	case api.OpImportFlow:
		flow.Version.DisplayName = op.Request.DisplayName
		flow.Version.Trigger = op.Request.Trigger
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "unsupported operation " + string(op.Type)})
		return
	}
	flow.Updated = s.tick()
	c.JSON(http.StatusOK, *flow)
}

func (s *Server) deleteFlow(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findFlowLocked(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "flow not found"})
		return
	}
	s.flows = slices.Delete(s.flows, i, i+1)
	c.Status(http.StatusNoContent)
}

func (s *Server) listFolders(c *gin.Context) {
	project := c.Query("projectId")
	s.mu.Lock()
	var matched []api.Folder
	for _, f := range s.folders {
		if project != "" && f.ProjectID != project {
			continue
		}
		f.NumberOfFlows = 0
		for _, flow := range s.flows {
			if flow.FolderID == f.ID {
				f.NumberOfFlows++
			}
		}
		matched = append(matched, f)
	}
	s.mu.Unlock()
	if page, ok := paginate(c, matched); ok {
		c.JSON(http.StatusOK, page)
	}
}

func (s *Server) getFolder(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.folders {
		if f.ID == c.Param("id") {
			c.JSON(http.StatusOK, f)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "folder not found"})
}

func (s *Server) listConnections(c *gin.Context) {
	project := c.Query("projectId")
	piece := c.Query("pieceName")
	s.mu.Lock()
	var matched []api.AppConnection
	for _, conn := range s.connections {
		if project != "" && conn.ProjectID != project {
			continue
		}
		if piece != "" && !strings.Contains(conn.PieceName, piece) {
			continue
		}
		matched = append(matched, conn)
	}
	s.mu.Unlock()
	if page, ok := paginate(c, matched); ok {
		c.JSON(http.StatusOK, page)
	}
}

func (s *Server) upsertConnection(c *gin.Context) {
	var body api.UpsertConnectionRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Name == "" || body.PieceName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "name and pieceName are required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	for i, conn := range s.connections {
		if conn.Name == body.Name && conn.ProjectID == body.ProjectID {
			s.connections[i].Updated = now
			c.JSON(http.StatusOK, s.connections[i])
			return
		}
	}
	conn := api.AppConnection{
		ID:        uuid.NewString(),
		Name:      body.Name,
		PieceName: body.PieceName,
		ProjectID: body.ProjectID,
		Type:      body.Type,
		Status:    api.ConnectionActive,
		Created:   now,
		Updated:   now,
	}
	s.connections = append(s.connections, conn)
	c.JSON(http.StatusCreated, conn)
}

func (s *Server) deleteConnection(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.connections, func(conn api.AppConnection) bool { return conn.ID == c.Param("id") })
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "connection not found"})
		return
	}
	s.connections = slices.Delete(s.connections, i, i+1)
	c.Status(http.StatusNoContent)
}

func (s *Server) listPieces(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pieces := slices.Clone(s.pieces)
	if pieces == nil {
		pieces = []api.PieceSummary{}
	}
	c.JSON(http.StatusOK, pieces)
}

func (s *Server) installPiece(c *gin.Context) {
	in := InstalledPiece{
		Name:        c.PostForm("pieceName"),
		Version:     c.PostForm("pieceVersion"),
		PackageType: c.PostForm("packageType"),
		Scope:       c.PostForm("scope"),
	}
	if in.Name == "" || in.PackageType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "pieceName and packageType are required"})
		return
	}
	if in.PackageType == string(api.PackageArchive) {
		file, err := c.FormFile("pieceArchive")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "pieceArchive is required"})
			return
		}
		in.ArchiveName = file.Filename
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.installed {
		if p.Name == in.Name && p.Version == in.Version {
			c.JSON(http.StatusConflict, gin.H{"message": "piece already installed"})
			return
		}
	}
	s.installed = append(s.installed, in)
	s.pieces = append(s.pieces, api.PieceSummary{Name: in.Name, DisplayName: api.ShortName(in.Name), Version: in.Version})
	c.Status(http.StatusCreated)
}

func (s *Server) getFlags(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.flags)
}
