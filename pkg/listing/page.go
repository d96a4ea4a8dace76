package listing

import "context"

// Page is one server response. An empty NextCursor marks the last page.
type Page[T any] struct {
	Items      []T    `json:"data"`
	NextCursor string `json:"next,omitempty"`
}

func (p Page[T]) HasNext() bool {
	return p.NextCursor != ""
}

// SortSpec is passed through to the server untouched.
type SortSpec struct {
	Key  string `json:"key"`
	Desc bool   `json:"desc,omitempty"`
}

// FetchRequest is everything a fetch adapter needs to load one page.
type FetchRequest struct {
	ProjectID string
	Filters   FilterState
	Cursor    string
	Limit     int
	Sort      *SortSpec
}

// Fetcher loads one page of a resource.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, req FetchRequest) (Page[T], error)
}

type FetcherFunc[T any] func(ctx context.Context, req FetchRequest) (Page[T], error)

func (f FetcherFunc[T]) Fetch(ctx context.Context, req FetchRequest) (Page[T], error) {
	return f(ctx, req)
}

// IDFunc extracts the stable identifier of a row.
type IDFunc[T any] func(T) string
