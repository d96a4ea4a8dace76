package listing

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// pageCache keeps recently fetched pages so that moving back can render
// immediately while the refetch is in flight. A nil cache is a no-op.
type pageCache[T any] struct {
	lru *lru.Cache[string, Page[T]]
}

func newPageCache[T any](size int) (*pageCache[T], error) {
	c, err := lru.New[string, Page[T]](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create page cache: %w", err)
	}
	return &pageCache[T]{lru: c}, nil
}

func (c *pageCache[T]) get(key string) (Page[T], bool) {
	if c == nil {
		return Page[T]{}, false
	}
	return c.lru.Get(key)
}

func (c *pageCache[T]) add(key string, page Page[T]) {
	if c == nil {
		return
	}
	c.lru.Add(key, page)
}

func (c *pageCache[T]) purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}
