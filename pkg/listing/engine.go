package listing

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/compozy/flowctl/pkg/logger"
	"github.com/google/uuid"
	"github.com/romdo/go-debounce"
)

const (
	startCursor         = "start"
	DefaultPageSize     = 10
	DefaultDebounce     = 300 * time.Millisecond
	DefaultFetchTimeout = 30 * time.Second
	completionQueueSize = 16
)

// Config configures an Engine. ProjectID scopes every request.
type Config[T any] struct {
	Name         string
	ProjectID    string
	Fetcher      Fetcher[T]
	Filters      *Filters
	SortableKeys []string
	PageSize     int
	Debounce     time.Duration
	FetchTimeout time.Duration
	PageCache    int
	Logger       logger.Logger
}

// Snapshot is the view data of an Engine at one instant.
type Snapshot[T any] struct {
	Rows            []T
	IsLoading       bool
	HasNextPage     bool
	HasPreviousPage bool
	Err             error
	Filters         FilterState
	Sort            *SortSpec
	PageNumber      int
	RefreshToken    uint64
}

type navKind int

const (
	navFirst navKind = iota
	navNext
	navReload
)

type request struct {
	seq    uint64
	gen    uint64
	kind   navKind
	cursor string
}

type completion[T any] struct {
	req  request
	page Page[T]
	err  error
}

// Engine owns the pagination, filter and sort state of one listing and
// drives its fetch adapter. Fetches run concurrently; their results are
// applied one at a time by Run, and only the most recently issued request
// of the current generation is applied.
type Engine[T any] struct {
	id  string
	cfg Config[T]
	log logger.Logger

	mu           sync.Mutex
	filters      FilterState
	sort         *SortSpec
	history      []string
	index        int
	rows         []T
	nextCursor   string
	loading      bool
	err          error
	seq          uint64
	gen          uint64
	refreshToken uint64
	last         request
	baseCtx      context.Context
	subscribers  map[int]chan struct{}
	nextSubID    int

	completions    chan completion[T]
	debounced      func()
	cancelDebounce func()
	cache          *pageCache[T]
}

// NewEngine builds an engine from cfg. Fetcher is required; other fields
// fall back to defaults.
func NewEngine[T any](cfg Config[T]) (*Engine[T], error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("listing %q: fetcher is required", cfg.Name)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewLogger(logger.TestConfig())
	}
	id := uuid.NewString()
	e := &Engine[T]{
		id:          id,
		cfg:         cfg,
		log:         cfg.Logger.With("listing", cfg.Name, "engine_id", id),
		filters:     cfg.Filters.Defaults(),
		history:     []string{startCursor},
		baseCtx:     context.Background(),
		subscribers: make(map[int]chan struct{}),
		completions: make(chan completion[T], completionQueueSize),
	}
	if cfg.PageCache > 0 {
		cache, err := newPageCache[T](cfg.PageCache)
		if err != nil {
			return nil, fmt.Errorf("listing %q: %w", cfg.Name, err)
		}
		e.cache = cache
	}
	if cfg.Debounce > 0 {
		e.debounced, e.cancelDebounce = debounce.New(cfg.Debounce, e.issueFirstPage)
	}
	return e, nil
}

// ID returns the engine instance id used in log lines.
func (e *Engine[T]) ID() string {
	return e.id
}

// Initialize loads filters from query values when any declared key is
// present, otherwise the declared defaults, and fetches the first page
// without debouncing.
func (e *Engine[T]) Initialize(q url.Values) {
	e.mu.Lock()
	state := e.cfg.Filters.Decode(q)
	if len(state) == 0 {
		state = e.cfg.Filters.Defaults()
	}
	e.filters = state
	e.resetLocked()
	e.mu.Unlock()
	e.issueFirstPage()
}

// SetFilter validates and stores one filter value, resets pagination,
// invalidates in-flight fetches and schedules a debounced first-page load.
func (e *Engine[T]) SetFilter(key string, value FilterValue) error {
	if err := e.cfg.Filters.Validate(key, value); err != nil {
		return err
	}
	e.mu.Lock()
	if value.IsEmpty() {
		delete(e.filters, key)
	} else {
		e.filters[key] = slices.Clone(value)
	}
	e.resetLocked()
	e.loading = true
	e.mu.Unlock()
	e.notify()
	e.schedule()
	return nil
}

// SetFilters replaces the whole filter state.
func (e *Engine[T]) SetFilters(state FilterState) error {
	for key, value := range state {
		if err := e.cfg.Filters.Validate(key, value); err != nil {
			return err
		}
	}
	e.mu.Lock()
	e.filters = FilterState{}
	for key, value := range state {
		if !value.IsEmpty() {
			e.filters[key] = slices.Clone(value)
		}
	}
	e.resetLocked()
	e.loading = true
	e.mu.Unlock()
	e.notify()
	e.schedule()
	return nil
}

// SetSort changes the sort order. A nil spec clears it.
func (e *Engine[T]) SetSort(spec *SortSpec) error {
	if spec != nil && !slices.Contains(e.cfg.SortableKeys, spec.Key) {
		return NewValidationError(spec.Key, "column is not sortable")
	}
	e.mu.Lock()
	if spec == nil {
		e.sort = nil
	} else {
		s := *spec
		e.sort = &s
	}
	e.resetLocked()
	e.loading = true
	e.mu.Unlock()
	e.notify()
	e.schedule()
	return nil
}

// NextPage fetches the page after the current one. It returns false when
// there is no next cursor.
func (e *Engine[T]) NextPage() bool {
	e.mu.Lock()
	if e.nextCursor == "" {
		e.mu.Unlock()
		return false
	}
	cursor := e.nextCursor
	e.mu.Unlock()
	e.issue(navNext, cursor)
	return true
}

// PreviousPage moves back one page and refetches it with the cursor
// recorded in history. It returns false on the first page.
func (e *Engine[T]) PreviousPage() bool {
	e.mu.Lock()
	if e.index == 0 {
		e.mu.Unlock()
		return false
	}
	e.index--
	cursor := e.history[e.index]
	e.nextCursor = e.history[e.index+1]
	if page, ok := e.cache.get(e.cacheKeyLocked(cursor)); ok {
		e.rows = slices.Clone(page.Items)
	}
	e.mu.Unlock()
	e.issue(navReload, cursor)
	return true
}

// Refresh bumps the refresh token and reloads the first page.
func (e *Engine[T]) Refresh() {
	e.mu.Lock()
	e.refreshToken++
	e.cache.purge()
	e.resetLocked()
	e.mu.Unlock()
	e.issueFirstPage()
}

// Retry re-issues the most recent request. When filters or sort changed
// after it was issued, the first page is loaded instead.
func (e *Engine[T]) Retry() {
	e.mu.Lock()
	last := e.last
	stale := last.gen != e.gen
	e.mu.Unlock()
	if stale {
		e.issueFirstPage()
		return
	}
	e.issue(last.kind, last.cursor)
}

// RefreshToken returns the number of refreshes so far.
func (e *Engine[T]) RefreshToken() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshToken
}

// Snapshot returns a copy of the visible state.
func (e *Engine[T]) Snapshot() Snapshot[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	var sort *SortSpec
	if e.sort != nil {
		s := *e.sort
		sort = &s
	}
	return Snapshot[T]{
		Rows:            slices.Clone(e.rows),
		IsLoading:       e.loading,
		HasNextPage:     e.nextCursor != "",
		HasPreviousPage: e.index > 0,
		Err:             e.err,
		Filters:         e.filters.Clone(),
		Sort:            sort,
		PageNumber:      e.index + 1,
		RefreshToken:    e.refreshToken,
	}
}

// Find returns the row of the current page matching id.
func (e *Engine[T]) Find(id string, idOf IDFunc[T]) (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, row := range e.rows {
		if idOf(row) == id {
			return row, true
		}
	}
	var zero T
	return zero, false
}

// QueryValues encodes the current filters for a shareable URL. Cursors
// are never included.
func (e *Engine[T]) QueryValues() url.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Filters.Encode(e.filters)
}

// Filters returns the filter registry the engine validates against.
func (e *Engine[T]) Filters() *Filters {
	return e.cfg.Filters
}

// Subscribe returns a channel signalled after every state change and a
// function that releases it.
func (e *Engine[T]) Subscribe() (<-chan struct{}, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSubID
	e.nextSubID++
	ch := make(chan struct{}, 1)
	e.subscribers[id] = ch
	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}
}

// Run applies completed fetches until ctx is done. Fetches issued while
// Run is active inherit its context.
func (e *Engine[T]) Run(ctx context.Context) error {
	e.mu.Lock()
	e.baseCtx = ctx
	e.mu.Unlock()
	defer e.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-e.completions:
			e.apply(c)
		}
	}
}

// Close stops any pending debounced load.
func (e *Engine[T]) Close() {
	if e.cancelDebounce != nil {
		e.cancelDebounce()
	}
}

// WaitIdle blocks until no load is pending and returns the snapshot.
// Run must be active.
func (e *Engine[T]) WaitIdle(ctx context.Context) (Snapshot[T], error) {
	ch, release := e.Subscribe()
	defer release()
	for {
		snap := e.Snapshot()
		if !snap.IsLoading {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ch:
		}
	}
}

func (e *Engine[T]) resetLocked() {
	e.gen++
	e.history = []string{startCursor}
	e.index = 0
	e.nextCursor = ""
	e.err = nil
}

func (e *Engine[T]) schedule() {
	if e.debounced == nil {
		e.issueFirstPage()
		return
	}
	e.debounced()
}

func (e *Engine[T]) issueFirstPage() {
	e.issue(navFirst, startCursor)
}

func (e *Engine[T]) issue(kind navKind, cursor string) {
	e.mu.Lock()
	e.seq++
	req := request{seq: e.seq, gen: e.gen, kind: kind, cursor: cursor}
	e.last = req
	e.loading = true
	fetch := FetchRequest{
		ProjectID: e.cfg.ProjectID,
		Filters:   e.filters.Clone(),
		Cursor:    wireCursor(cursor),
		Limit:     e.cfg.PageSize,
	}
	if e.sort != nil {
		s := *e.sort
		fetch.Sort = &s
	}
	base := e.baseCtx
	e.mu.Unlock()
	e.notify()

	e.log.Debug("fetch issued", "seq", req.seq, "cursor", fetch.Cursor, "filters", fetch.Filters)
	go func() {
		ctx, cancel := context.WithTimeout(base, e.cfg.FetchTimeout)
		defer cancel()
		page, err := e.cfg.Fetcher.Fetch(ctx, fetch)
		select {
		case e.completions <- completion[T]{req: req, page: page, err: err}:
		case <-base.Done():
		}
	}()
}

func (e *Engine[T]) apply(c completion[T]) {
	e.mu.Lock()
	if c.req.seq != e.seq || c.req.gen != e.gen {
		latest := e.seq
		e.mu.Unlock()
		e.log.Debug("discarding stale page", "seq", c.req.seq, "latest", latest)
		return
	}
	e.loading = false
	if c.err != nil {
		e.err = c.err
		e.mu.Unlock()
		e.log.Warn("fetch failed", "seq", c.req.seq, "error", c.err)
		e.notify()
		return
	}
	e.err = nil
	switch c.req.kind {
	case navFirst:
		e.history = []string{startCursor}
		e.index = 0
	case navNext:
		e.history = append(e.history[:e.index+1], c.req.cursor)
		e.index++
	case navReload:
	}
	e.rows = slices.Clone(c.page.Items)
	e.nextCursor = c.page.NextCursor
	e.cache.add(e.cacheKeyLocked(c.req.cursor), c.page)
	e.mu.Unlock()
	e.notify()
}

func (e *Engine[T]) notify() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (e *Engine[T]) cacheKeyLocked(cursor string) string {
	key := e.cfg.Filters.Encode(e.filters).Encode() + "|" + cursor
	if e.sort != nil {
		key += fmt.Sprintf("|%s:%t", e.sort.Key, e.sort.Desc)
	}
	return key
}

func wireCursor(cursor string) string {
	if cursor == startCursor {
		return ""
	}
	return cursor
}
