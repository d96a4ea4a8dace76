package listing

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// FilterValue holds one text value or the selected option values.
type FilterValue []string

// Text wraps a text filter value.
func Text(s string) FilterValue {
	if s == "" {
		return nil
	}
	return FilterValue{s}
}

// Values builds a select filter value, dropping empty and repeated entries.
func Values(vs ...string) FilterValue {
	out := make(FilterValue, 0, len(vs))
	for _, v := range vs {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (v FilterValue) IsEmpty() bool {
	for _, s := range v {
		if s != "" {
			return false
		}
	}
	return true
}

func (v FilterValue) First() string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}

func (v FilterValue) String() string {
	return strings.Join(v, ",")
}

// FilterState maps filter keys to their current values. Empty values are
// never stored.
type FilterState map[string]FilterValue

func (s FilterState) Get(key string) FilterValue {
	return s[key]
}

func (s FilterState) Text(key string) string {
	return s[key].First()
}

func (s FilterState) Clone() FilterState {
	out := make(FilterState, len(s))
	for k, v := range s {
		out[k] = slices.Clone(v)
	}
	return out
}

func (s FilterState) Equal(other FilterState) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		if !slices.Equal(v, other[k]) {
			return false
		}
	}
	return true
}

type FilterKind int

const (
	FilterText FilterKind = iota
	FilterSelect
)

func (k FilterKind) String() string {
	if k == FilterSelect {
		return "select"
	}
	return "text"
}

type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FilterDef declares one filter control.
type FilterDef struct {
	Key     string
	Title   string
	Kind    FilterKind
	Options []Option
	Multi   bool
	Default FilterValue
}

func (d FilterDef) hasOption(value string) bool {
	return slices.ContainsFunc(d.Options, func(o Option) bool { return o.Value == value })
}

// OptionLabel returns the label for value, or value itself.
func (d FilterDef) OptionLabel(value string) string {
	for _, o := range d.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

// Filters is the declared, ordered set of filters of one listing.
type Filters struct {
	defs  []FilterDef
	index map[string]int
}

// NewFilters builds a registry, rejecting empty or duplicate keys.
func NewFilters(defs ...FilterDef) (*Filters, error) {
	f := &Filters{index: make(map[string]int, len(defs))}
	for _, d := range defs {
		if d.Key == "" {
			return nil, fmt.Errorf("filter key cannot be empty")
		}
		if _, dup := f.index[d.Key]; dup {
			return nil, fmt.Errorf("duplicate filter key %q", d.Key)
		}
		if d.Kind == FilterSelect && len(d.Options) == 0 {
			return nil, fmt.Errorf("select filter %q declares no options", d.Key)
		}
		f.index[d.Key] = len(f.defs)
		f.defs = append(f.defs, d)
	}
	return f, nil
}

// MustFilters is NewFilters for static declarations; it panics on error.
func MustFilters(defs ...FilterDef) *Filters {
	f, err := NewFilters(defs...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Filters) Defs() []FilterDef {
	if f == nil {
		return nil
	}
	return slices.Clone(f.defs)
}

func (f *Filters) Def(key string) (FilterDef, bool) {
	if f == nil {
		return FilterDef{}, false
	}
	i, ok := f.index[key]
	if !ok {
		return FilterDef{}, false
	}
	return f.defs[i], true
}

// Validate checks a value against the filter declaration.
func (f *Filters) Validate(key string, value FilterValue) error {
	def, ok := f.Def(key)
	if !ok {
		return NewValidationError(key, "unknown filter")
	}
	if value.IsEmpty() {
		return nil
	}
	switch def.Kind {
	case FilterText:
		if len(value) > 1 {
			return NewValidationError(key, "text filter accepts a single value")
		}
	case FilterSelect:
		if !def.Multi && len(value) > 1 {
			return NewValidationError(key, "filter accepts a single option")
		}
		for _, v := range value {
			if !def.hasOption(v) {
				return NewValidationError(key, "%q is not a valid option", v)
			}
		}
	}
	return nil
}

// Defaults returns the declared default state.
func (f *Filters) Defaults() FilterState {
	state := FilterState{}
	if f == nil {
		return state
	}
	for _, d := range f.defs {
		if !d.Default.IsEmpty() {
			state[d.Key] = slices.Clone(d.Default)
		}
	}
	return state
}

// Encode renders state as URL query values in declaration order. Empty
// values are omitted.
func (f *Filters) Encode(state FilterState) url.Values {
	out := url.Values{}
	if f == nil {
		return out
	}
	for _, d := range f.defs {
		v := state[d.Key]
		if v.IsEmpty() {
			continue
		}
		if d.Kind == FilterText {
			out.Set(d.Key, v.First())
			continue
		}
		for _, s := range v {
			if s != "" {
				out.Add(d.Key, s)
			}
		}
	}
	return out
}

// Decode reads state from URL query values. Unknown keys and unknown
// option values are dropped.
func (f *Filters) Decode(q url.Values) FilterState {
	state := FilterState{}
	if f == nil {
		return state
	}
	for _, d := range f.defs {
		raw, ok := q[d.Key]
		if !ok {
			continue
		}
		switch d.Kind {
		case FilterText:
			if v := Text(FilterValue(raw).First()); v != nil {
				state[d.Key] = v
			}
		case FilterSelect:
			var kept []string
			for _, s := range raw {
				for _, part := range strings.Split(s, ",") {
					if d.hasOption(part) && !slices.Contains(kept, part) {
						kept = append(kept, part)
					}
				}
			}
			if len(kept) == 0 {
				continue
			}
			if !d.Multi {
				kept = kept[:1]
			}
			state[d.Key] = kept
		}
	}
	return state
}

// ParseQuery decodes a raw query string such as "name=x&status=ENABLED".
func (f *Filters) ParseQuery(raw string) (FilterState, error) {
	q, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return nil, NewValidationError("query", "invalid query: %v", err)
	}
	return f.Decode(q), nil
}
