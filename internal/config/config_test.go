package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsignal/internal/reactive"
)

// isolate keeps the user's config directory out of the search path.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.False(t, cfg.Bridge.EagerNotify)
	assert.Equal(t, reactive.DefaultMaxFlushPasses, cfg.Reactive.MaxFlushPasses)
	assert.Equal(t, "formsignal.db", cfg.Store.Path)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	isolate(t)

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
output:
  format: json
bridge:
  eager_notify: true
reactive:
  max_flush_passes: 7
store:
  path: /tmp/traces.db
`), 0644))

	v, err := New(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.True(t, cfg.Bridge.EagerNotify)
	assert.Equal(t, 7, cfg.Reactive.MaxFlushPasses)
	assert.Equal(t, "/tmp/traces.db", cfg.Store.Path)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_SearchesWorkingDirectory(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("formsignal.yaml", []byte("store:\n  path: local.db\n"), 0644))

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "local.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level, "unset keys keep defaults")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("FORMSIGNAL_STORE_PATH", "env.db")
	t.Setenv("FORMSIGNAL_BRIDGE_EAGER_NOTIFY", "true")
	t.Setenv("FORMSIGNAL_REACTIVE_MAX_FLUSH_PASSES", "3")

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "env.db", cfg.Store.Path)
	assert.True(t, cfg.Bridge.EagerNotify)
	assert.Equal(t, 3, cfg.Reactive.MaxFlushPasses)
}

func TestNew_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_InvalidValues(t *testing.T) {
	isolate(t)
	t.Setenv("FORMSIGNAL_LOG_LEVEL", "loud")
	t.Setenv("FORMSIGNAL_OUTPUT_FORMAT", "xml")
	t.Setenv("FORMSIGNAL_REACTIVE_MAX_FLUSH_PASSES", "0")

	v, err := New("")
	require.NoError(t, err)
	_, err = Load(v)
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 3)
	assert.Equal(t, "log.level", errs[0].Field)
	assert.Equal(t, "output.format", errs[1].Field)
	assert.Equal(t, "reactive.max_flush_passes", errs[2].Field)
	assert.Contains(t, err.Error(), "3 validation errors")
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "store.path", Value: "", Message: "must not be empty"}
	assert.Equal(t, "store.path: must not be empty (got: )", err.Error())

	single := ValidationErrors{err}
	assert.Equal(t, err.Error(), single.Error())
	assert.Empty(t, ValidationErrors{}.Error())
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for level, want := range tests {
		cfg := &Config{Log: LogConfig{Level: level}}
		assert.Equal(t, want, cfg.SlogLevel(), level)
	}
}

func TestConfigDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	assert.Equal(t, filepath.Join(xdg, "formsignal"), ConfigDir())
}
