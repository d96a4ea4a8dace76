package listing

import (
	"fmt"
	"slices"
)

// Column declares how one table column renders a row.
type Column[T any] struct {
	Key      string
	Title    string
	Cell     func(T) string
	Sortable bool
	Width    int
}

// Columns is an ordered, immutable column registry.
type Columns[T any] struct {
	cols []Column[T]
}

// NewColumns builds a registry, rejecting empty or duplicate keys.
func NewColumns[T any](cols ...Column[T]) (*Columns[T], error) {
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if c.Key == "" {
			return nil, fmt.Errorf("column key cannot be empty")
		}
		if _, dup := seen[c.Key]; dup {
			return nil, fmt.Errorf("duplicate column key %q", c.Key)
		}
		seen[c.Key] = struct{}{}
	}
	return &Columns[T]{cols: slices.Clone(cols)}, nil
}

// MustColumns is NewColumns for static declarations; it panics on error.
func MustColumns[T any](cols ...Column[T]) *Columns[T] {
	c, err := NewColumns(cols...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Columns[T]) All() []Column[T] {
	return slices.Clone(c.cols)
}

func (c *Columns[T]) Len() int {
	return len(c.cols)
}

func (c *Columns[T]) Headers() []string {
	out := make([]string, len(c.cols))
	for i, col := range c.cols {
		out[i] = col.Title
	}
	return out
}

// Row renders every cell of item in declaration order.
func (c *Columns[T]) Row(item T) []string {
	out := make([]string, len(c.cols))
	for i, col := range c.cols {
		if col.Cell != nil {
			out[i] = col.Cell(item)
		}
	}
	return out
}

// Record renders item keyed by column key.
func (c *Columns[T]) Record(item T) map[string]string {
	out := make(map[string]string, len(c.cols))
	for _, col := range c.cols {
		if col.Cell != nil {
			out[col.Key] = col.Cell(item)
		}
	}
	return out
}

func (c *Columns[T]) SortableKeys() []string {
	var keys []string
	for _, col := range c.cols {
		if col.Sortable {
			keys = append(keys, col.Key)
		}
	}
	return keys
}
