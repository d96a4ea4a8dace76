package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	data       map[string]any
	sourceType SourceType
	err        error
}

func (m *mockSource) Load() (map[string]any, error) {
	return m.data, m.err
}

func (m *mockSource) Type() SourceType {
	return m.sourceType
}

func TestLoader_Load(t *testing.T) {
	t.Run("Should load default configuration when no sources provided", func(t *testing.T) {
		cfg, err := NewService().Load(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 10, cfg.Listing.PageSize)
		assert.Equal(t, "info", cfg.Runtime.LogLevel)
	})

	t.Run("Should apply sources in precedence order", func(t *testing.T) {
		yamlSource := &mockSource{
			data: map[string]any{
				"server":  map[string]any{"project_id": "from-yaml", "url": "https://yaml.example.com"},
				"listing": map[string]any{"page_size": 25},
			},
			sourceType: SourceYAML,
		}
		cliSource := &mockSource{
			data:       map[string]any{"server": map[string]any{"project_id": "from-cli"}},
			sourceType: SourceCLI,
		}
		svc := NewService()

		cfg, err := svc.Load(context.Background(), yamlSource, cliSource)

		require.NoError(t, err)
		assert.Equal(t, "from-cli", cfg.Server.ProjectID)
		assert.Equal(t, "https://yaml.example.com", cfg.Server.URL)
		assert.Equal(t, 25, cfg.Listing.PageSize)
		assert.Equal(t, SourceCLI, svc.GetSource("server.project_id"))
		assert.Equal(t, SourceYAML, svc.GetSource("listing.page_size"))
		assert.Equal(t, SourceDefault, svc.GetSource("runtime.log_level"))
	})

	t.Run("Should let environment override YAML but not CLI", func(t *testing.T) {
		t.Setenv("FLOWCTL_PROJECT_ID", "from-env")
		t.Setenv("FLOWCTL_FILTER_DEBOUNCE", "500ms")
		t.Setenv("FLOWCTL_API_KEY", "secret")
		yamlSource := &mockSource{
			data:       map[string]any{"server": map[string]any{"project_id": "from-yaml"}},
			sourceType: SourceYAML,
		}
		svc := NewService()

		cfg, err := svc.Load(context.Background(), yamlSource)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Server.ProjectID)
		assert.Equal(t, 500*time.Millisecond, cfg.Listing.FilterDebounce)
		assert.Equal(t, "secret", cfg.CLI.APIKey.Value())
		assert.Equal(t, SourceEnv, svc.GetSource("server.project_id"))

		cliSource := &mockSource{
			data:       map[string]any{"server": map[string]any{"project_id": "from-cli"}},
			sourceType: SourceCLI,
		}
		cfg, err = svc.Load(context.Background(), yamlSource, cliSource)
		require.NoError(t, err)
		assert.Equal(t, "from-cli", cfg.Server.ProjectID)
	})

	t.Run("Should return error when a source fails", func(t *testing.T) {
		bad := &mockSource{err: errors.New("boom"), sourceType: SourceYAML}

		_, err := NewService().Load(context.Background(), bad)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("Should return error when the result fails validation", func(t *testing.T) {
		src := &mockSource{
			data:       map[string]any{"listing": map[string]any{"page_size": 0}},
			sourceType: SourceYAML,
		}

		_, err := NewService().Load(context.Background(), src)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation")
	})
}

func TestManager(t *testing.T) {
	t.Run("Should expose loaded configuration and reload it", func(t *testing.T) {
		src := &mockSource{
			data:       map[string]any{"server": map[string]any{"project_id": "p1"}},
			sourceType: SourceYAML,
		}
		m := NewManager(nil)
		_, err := m.Load(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, "p1", m.Get().Server.ProjectID)

		src.data = map[string]any{"server": map[string]any{"project_id": "p2"}}
		require.NoError(t, m.Reload(context.Background()))
		assert.Equal(t, "p2", m.Get().Server.ProjectID)
	})

	t.Run("Should round-trip through context", func(t *testing.T) {
		m := NewManager(nil)
		_, err := m.Load(context.Background())
		require.NoError(t, err)

		ctx := ContextWithManager(context.Background(), m)

		assert.Same(t, m, ManagerFromContext(ctx))
		assert.Equal(t, m.Get(), FromContext(ctx))
	})
}
