package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIProvider_Load(t *testing.T) {
	t.Run("Should map known flags to nested paths", func(t *testing.T) {
		p := NewCLIProvider(map[string]any{
			"project":   "p1",
			"page-size": 20,
			"unrelated": "x",
		})

		data, err := p.Load()

		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"server":  map[string]any{"project_id": "p1"},
			"listing": map[string]any{"page_size": 20},
		}, data)
		assert.Equal(t, SourceCLI, p.Type())
	})
}

func TestYAMLProvider_Load(t *testing.T) {
	t.Run("Should parse YAML and drop nil values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "flowctl.yaml")
		content := "server:\n  url: https://cloud.example.com/api\n  project_id:\nlisting:\n  page_size: 50\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		data, err := NewYAMLProvider(path).Load()

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"url": "https://cloud.example.com/api"}, data["server"])
		assert.Equal(t, map[string]any{"page_size": 50}, data["listing"])
	})

	t.Run("Should treat a missing file as empty", func(t *testing.T) {
		data, err := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml")).Load()

		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("Should fail on malformed YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

		_, err := NewYAMLProvider(path).Load()

		assert.Error(t, err)
	})
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("Should load variables without overriding existing ones", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("FLOWCTL_TEST_DOTENV=from-file\nFLOWCTL_TEST_KEEP=from-file\n"), 0o600))
		t.Setenv("FLOWCTL_TEST_KEEP", "from-env")
		t.Setenv("FLOWCTL_TEST_DOTENV", "")
		require.NoError(t, os.Unsetenv("FLOWCTL_TEST_DOTENV"))

		require.NoError(t, LoadDotEnv(path))

		assert.Equal(t, "from-file", os.Getenv("FLOWCTL_TEST_DOTENV"))
		assert.Equal(t, "from-env", os.Getenv("FLOWCTL_TEST_KEEP"))
	})

	t.Run("Should ignore a missing file", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})
}
