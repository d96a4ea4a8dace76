package listing

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flowFilters() *Filters {
	return MustFilters(
		FilterDef{Key: "name", Title: "Flow name", Kind: FilterText},
		FilterDef{
			Key:   "status",
			Title: "Status",
			Kind:  FilterSelect,
			Multi: true,
			Options: []Option{
				{Label: "Enabled", Value: "ENABLED"},
				{Label: "Disabled", Value: "DISABLED"},
			},
		},
		FilterDef{
			Key:     "scope",
			Title:   "Scope",
			Kind:    FilterSelect,
			Options: []Option{{Label: "Project", Value: "PROJECT"}, {Label: "Platform", Value: "PLATFORM"}},
			Default: Values("PROJECT"),
		},
	)
}

func TestFilters_Encoding(t *testing.T) {
	t.Run("Should round-trip non-empty values through URL query values", func(t *testing.T) {
		f := flowFilters()
		state := FilterState{
			"name":   Text("invoice"),
			"status": Values("ENABLED", "DISABLED"),
			"scope":  Values("PLATFORM"),
		}

		q := f.Encode(state)
		decoded := f.Decode(q)

		assert.True(t, state.Equal(decoded))
		parsed, err := url.ParseQuery(q.Encode())
		require.NoError(t, err)
		assert.True(t, state.Equal(f.Decode(parsed)))
	})

	t.Run("Should omit empty values", func(t *testing.T) {
		q := flowFilters().Encode(FilterState{"name": Text(""), "status": nil})

		assert.Empty(t, q)
	})

	t.Run("Should drop unknown keys and options", func(t *testing.T) {
		q := url.Values{
			"name":     {"invoice"},
			"status":   {"ENABLED", "ARCHIVED"},
			"folderId": {"abc"},
			"cursor":   {"c3"},
		}

		state := flowFilters().Decode(q)

		assert.Equal(t, FilterState{"name": {"invoice"}, "status": {"ENABLED"}}, state)
	})

	t.Run("Should accept comma separated options and keep single selects single", func(t *testing.T) {
		state := flowFilters().Decode(url.Values{
			"status": {"ENABLED,DISABLED"},
			"scope":  {"PLATFORM", "PROJECT"},
		})

		assert.Equal(t, FilterValue{"ENABLED", "DISABLED"}, state["status"])
		assert.Equal(t, FilterValue{"PLATFORM"}, state["scope"])
	})

	t.Run("Should parse a raw query string", func(t *testing.T) {
		state, err := flowFilters().ParseQuery("?name=daily+report&status=DISABLED")

		require.NoError(t, err)
		assert.Equal(t, "daily report", state.Text("name"))
		assert.Equal(t, FilterValue{"DISABLED"}, state.Get("status"))

		_, err = flowFilters().ParseQuery("name=%zz")
		assert.True(t, IsValidation(err))
	})
}

func TestFilters_Validate(t *testing.T) {
	f := flowFilters()

	t.Run("Should accept declared values", func(t *testing.T) {
		assert.NoError(t, f.Validate("name", Text("x")))
		assert.NoError(t, f.Validate("status", Values("ENABLED", "DISABLED")))
		assert.NoError(t, f.Validate("scope", nil))
	})

	t.Run("Should reject invalid values", func(t *testing.T) {
		assert.Error(t, f.Validate("owner", Text("x")))
		assert.Error(t, f.Validate("status", Values("ARCHIVED")))
		assert.Error(t, f.Validate("scope", Values("PROJECT", "PLATFORM")))
		assert.Error(t, f.Validate("name", FilterValue{"a", "b"}))
	})

	t.Run("Should expose defaults and labels", func(t *testing.T) {
		assert.Equal(t, FilterState{"scope": {"PROJECT"}}, f.Defaults())
		def, ok := f.Def("status")
		require.True(t, ok)
		assert.Equal(t, "Enabled", def.OptionLabel("ENABLED"))
		assert.Equal(t, "OTHER", def.OptionLabel("OTHER"))
	})
}

func TestNewFilters(t *testing.T) {
	t.Run("Should reject duplicate keys", func(t *testing.T) {
		_, err := NewFilters(FilterDef{Key: "name"}, FilterDef{Key: "name"})
		assert.Error(t, err)
	})

	t.Run("Should reject select filters without options", func(t *testing.T) {
		_, err := NewFilters(FilterDef{Key: "status", Kind: FilterSelect})
		assert.Error(t, err)
	})

	t.Run("Should treat a nil registry as empty", func(t *testing.T) {
		var f *Filters
		assert.Empty(t, f.Defaults())
		assert.Empty(t, f.Encode(FilterState{"name": Text("x")}))
		assert.Error(t, f.Validate("name", Text("x")))
	})
}

func TestFilterValue(t *testing.T) {
	t.Run("Should normalize values", func(t *testing.T) {
		assert.Nil(t, Text(""))
		assert.Nil(t, Values("", ""))
		assert.Equal(t, FilterValue{"a", "b"}, Values("a", "", "b", "a"))
		assert.True(t, FilterValue{""}.IsEmpty())
		assert.Equal(t, "b", FilterValue{"", "b"}.First())
	})
}
