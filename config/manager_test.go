package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configPath(dir string) ManagerOption {
	return WithConfigPath(filepath.Join(dir, "config.json"))
}

func TestManagerCreatesAndUpdates(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(configPath(dir))
	require.NoError(t, err)

	path := filepath.Join(dir, "config.json")
	_, err = os.Stat(path)
	require.NoError(t, err, "config file not created")

	cfg := mgr.Get()
	cfg.ListenAddr = ":9100"
	cfg.SearchProvider = SearchGoogleNews

	data, _ := json.Marshal(cfg)
	require.NoError(t, mgr.UpdateFromJSON(string(data)))

	updated := mgr.Get()
	assert.Equal(t, ":9100", updated.ListenAddr)
	assert.Equal(t, SearchGoogleNews, updated.SearchProvider)
}

func TestManagerRejectsInvalidUpdate(t *testing.T) {
	mgr, err := NewManager(configPath(t.TempDir()))
	require.NoError(t, err)

	cfg := mgr.Get()
	cfg.DatabaseDriver = "mysql"
	err = mgr.Update(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Equal(t, DriverSQLite, mgr.Get().DatabaseDriver)
}

func TestManagerNeverWritesSecrets(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "sk-secret")
	dir := t.TempDir()
	mgr, err := NewManager(configPath(dir))
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", mgr.Get().DeepSeekAPIKey)

	raw, err := os.ReadFile(mgr.Path())
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "sk-secret"))
}

func TestManagerWatchReloads(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(configPath(dir), WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 1)
	require.NoError(t, mgr.Watch(ctx, func(cfg Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}))

	cfg := mgr.Get()
	cfg.DatasetAsOf = "Monday, 1 Sep 2025"
	require.NoError(t, writeConfigFile(mgr.Path(), cfg))

	select {
	case got := <-reloaded:
		assert.Equal(t, "Monday, 1 Sep 2025", got.DatasetAsOf)
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not fire on config change")
	}
}

func TestRequireCredentials(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")
	cfg := DefaultConfigWithRoot(t.TempDir())
	require.NoError(t, cfg.Validate())

	err := cfg.RequireCredentials()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	cfg.DeepSeekAPIKey = "sk-test"
	assert.NoError(t, cfg.RequireCredentials())
}

func TestManagerIgnoresInvalidEdit(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(configPath(dir), WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	called := make(chan struct{}, 1)
	require.NoError(t, mgr.Watch(ctx, func(Config) { called <- struct{}{} }))

	require.NoError(t, os.WriteFile(mgr.Path(), []byte(`{"database_driver":"mysql"}`), 0o644))

	select {
	case <-called:
		t.Fatalf("invalid config was applied")
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, DriverSQLite, mgr.Get().DatabaseDriver)
}
