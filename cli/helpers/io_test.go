package helpers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputWriter(t *testing.T) {
	t.Run("Should write indented JSON without HTML escaping", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewOutputWriter(&buf, OutputFormatJSON, false)
		require.NoError(t, w.WriteData(map[string]string{"url": "http://x/flows?a=1&b=2"}))
		assert.Equal(t, "{\n  \"url\": \"http://x/flows?a=1&b=2\"\n}\n", buf.String())
	})

	t.Run("Should render a table with headers and rows", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewOutputWriter(&buf, OutputFormatTable, false)
		require.NoError(t, w.WriteTable([]string{"Name", "Status"}, [][]string{{"Invoices", "Enabled"}}, "none"))
		out := buf.String()
		assert.Contains(t, out, "Name")
		assert.Contains(t, out, "Invoices")
		assert.Contains(t, out, "Enabled")
	})

	t.Run("Should print the empty message when there are no rows", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewOutputWriter(&buf, OutputFormatTable, false)
		require.NoError(t, w.WriteTable([]string{"Name"}, nil, "No flows found"))
		assert.Equal(t, "No flows found\n", buf.String())
	})
}

func TestModeFromFormat(t *testing.T) {
	t.Run("Should honor explicit formats and defer on auto", func(t *testing.T) {
		mode, ok := ModeFromFormat("tui")
		assert.True(t, ok)
		assert.Equal(t, "tui", string(mode))

		mode, ok = ModeFromFormat("table")
		assert.True(t, ok)
		assert.Equal(t, "json", string(mode))

		_, ok = ModeFromFormat("auto")
		assert.False(t, ok)
	})
}
