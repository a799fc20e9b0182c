package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(Options{DataDir: dir})
	require.NoError(t, err)

	assert.Equal(t, "", cfg.File)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "devhub.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "settings.toml"), cfg.SettingsPath)
	assert.Equal(t, 8080, cfg.DashboardPort)
	assert.Equal(t, 2*time.Second, cfg.SyncDebounce)
	assert.Equal(t, 30*time.Second, cfg.SyncTimeout)
	assert.True(t, cfg.StoreWatch)
	assert.Equal(t, "", cfg.LogFile)
	assert.Equal(t, "127.0.0.1:8787", cfg.SheetAddr)
}

func TestLoad_FileInDataDir(t *testing.T) {
	dir := t.TempDir()
	yaml := "dashboard:\n  port: 9001\nsync:\n  debounce: 500ms\nlog_file: out.log\ndb_path: /tmp/abs.db\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "devhub.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(Options{DataDir: dir})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "devhub.yaml"), cfg.File)
	assert.Equal(t, 9001, cfg.DashboardPort)
	assert.Equal(t, 500*time.Millisecond, cfg.SyncDebounce)
	assert.Equal(t, filepath.Join(dir, "out.log"), cfg.LogFile)
	assert.Equal(t, "/tmp/abs.db", cfg.DBPath)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: "+data+"\nstore:\n  watch: false\n"), 0o644))

	cfg, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, data, cfg.DataDir)
	assert.False(t, cfg.StoreWatch)
	assert.Equal(t, filepath.Join(data, "devhub.db"), cfg.DBPath)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestLoad_DataDirFlagWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /somewhere/else\n"), 0o644))

	cfg, err := Load(Options{ConfigFile: path, DataDir: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("DEVHUB_DASHBOARD_PORT", "7777")
	t.Setenv("DEVHUB_ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load(Options{DataDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.DashboardPort)
	assert.Equal(t, "sk-test", cfg.AnthropicAPIKey)
}

func TestLoad_AnthropicKeyFallback(t *testing.T) {
	t.Setenv("DEVHUB_ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-global")

	cfg, err := Load(Options{DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "sk-global", cfg.AnthropicAPIKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero debounce", "sync:\n  debounce: 0s\n"},
		{"negative timeout", "sync:\n  timeout: -1s\n"},
		{"port out of range", "dashboard:\n  port: 70000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "devhub.yaml"), []byte(tt.yaml), 0o644))
			_, err := Load(Options{DataDir: dir})
			assert.Error(t, err)
		})
	}
}

func TestEnsureDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	cfg, err := Load(Options{DataDir: dir})
	require.NoError(t, err)

	require.NoError(t, cfg.EnsureDataDir())
	path := filepath.Join(dir, "devhub.yaml")
	assert.FileExists(t, path)

	require.NoError(t, os.WriteFile(path, []byte("dashboard:\n  port: 1\n"), 0o644))
	require.NoError(t, cfg.EnsureDataDir())
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "dashboard:\n  port: 1\n", string(b), "existing file untouched")

	reloaded, err := Load(Options{DataDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.DashboardPort)
}
