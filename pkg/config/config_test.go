package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flmelody/defender-console-go/pkg/logger"
	"github.com/flmelody/defender-console-go/pkg/types"
)

func TestResolveDefaults(t *testing.T) {
	r := NewResolver("", logger.NewTestLogger())
	cfg := r.Resolve()

	assert.Equal(t, "http://localhost:9999/wall", cfg.BaseURL)
	assert.Equal(t, "/wall", cfg.RootPath)
	assert.Equal(t, "/guard", cfg.GuardPath)
	assert.Equal(t, "/admin", cfg.AdminPath)
	assert.Empty(t, cfg.GuardDomain)
}

func TestResolveIdempotent(t *testing.T) {
	r := NewResolver("", logger.NewTestLogger())

	first := r.Resolve()
	second := r.Resolve()
	assert.Equal(t, first, second)
}

func TestResolveOverrideFile(t *testing.T) {
	t.Run("OverrideWinsPerKey", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "override.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"base_url":"https://waf.example.com/wall","root_path":"/w"}`), 0o600))

		cfg := NewResolver(path, logger.NewTestLogger()).Resolve()

		assert.Equal(t, "https://waf.example.com/wall", cfg.BaseURL)
		assert.Equal(t, "/w", cfg.RootPath)
		// Absent keys fall back to compiled defaults.
		assert.Equal(t, "/guard", cfg.GuardPath)
		assert.Equal(t, "/admin", cfg.AdminPath)
	})

	t.Run("EmptyValueFallsBack", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "override.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"root_path":""}`), 0o600))

		cfg := NewResolver(path, logger.NewTestLogger()).Resolve()
		assert.Equal(t, "/wall", cfg.RootPath)
	})

	t.Run("MalformedOverrideIgnored", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "override.json")
		require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0o600))

		cfg := NewResolver(path, logger.NewTestLogger()).Resolve()
		assert.Equal(t, "http://localhost:9999/wall", cfg.BaseURL)
	})

	t.Run("MissingFileIgnored", func(t *testing.T) {
		cfg := NewResolver("/nonexistent/override.json", logger.NewTestLogger()).Resolve()
		assert.Equal(t, "http://localhost:9999/wall", cfg.BaseURL)
	})

	t.Run("YAMLOverride", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "override.yaml")
		require.NoError(t, os.WriteFile(path, []byte("admin_path: /console\n"), 0o600))

		cfg := NewResolver(path, logger.NewTestLogger()).Resolve()
		assert.Equal(t, "/console", cfg.AdminPath)
	})
}

func TestResolveEnvOverride(t *testing.T) {
	t.Setenv("DEFENDER_GUARD_PATH", "/gatekeeper")

	cfg := NewResolver("", logger.NewTestLogger()).Resolve()
	assert.Equal(t, "/gatekeeper", cfg.GuardPath)
	assert.Equal(t, "/wall", cfg.RootPath)
}

func TestPagePath(t *testing.T) {
	t.Run("AdminAndGuard", func(t *testing.T) {
		cfg := NewResolver("", logger.NewTestLogger()).Resolve()
		assert.Equal(t, "/wall/admin", cfg.PagePath(types.AppAdmin))
		assert.Equal(t, "/wall/guard", cfg.PagePath(types.AppGuard))
	})

	t.Run("CollapsesRepeatedSeparators", func(t *testing.T) {
		cfg := &AppConfig{RootPath: "//wall/", AdminPath: "//admin", GuardPath: "/guard//"}
		admin := cfg.PagePath(types.AppAdmin)
		assert.Equal(t, "/wall/admin", admin)
		assert.NotContains(t, admin, "//")
		assert.Equal(t, "/wall/guard/", cfg.PagePath(types.AppGuard))
	})

	t.Run("EmptyFieldsUseDefaults", func(t *testing.T) {
		cfg := &AppConfig{}
		assert.Equal(t, "/wall/admin", cfg.PagePath(types.AppAdmin))
		assert.Equal(t, "/wall/guard", cfg.PagePath(types.AppGuard))
	})
}

func TestLoginPath(t *testing.T) {
	cfg := NewResolver("", logger.NewTestLogger()).Resolve()
	assert.Equal(t, "/wall/admin/login", cfg.LoginPath(types.AppAdmin))
	assert.Equal(t, "/wall/guard/login", cfg.LoginPath(types.AppGuard))
}

func TestWatch(t *testing.T) {
	t.Run("NoOverrideFileIsNoop", func(t *testing.T) {
		stop, err := NewResolver("", logger.NewTestLogger()).Watch()
		require.NoError(t, err)
		stop()
	})

	t.Run("WatchExistingFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "override.json")
		require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

		r := NewResolver(path, logger.NewTestLogger())
		cfg := r.Resolve()

		stop, err := r.Watch()
		require.NoError(t, err)
		defer stop()

		// A post-bootstrap change must not affect the resolved config.
		require.NoError(t, os.WriteFile(path, []byte(`{"root_path":"/other"}`), 0o600))
		assert.Equal(t, "/wall", cfg.RootPath)
	})
}
