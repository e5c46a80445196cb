package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tangle/internal/adapters/config"
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newLoader(t *testing.T, env map[string]string) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	l := config.NewLoader(log)
	l.Getenv = func(key string) string { return env[key] }
	return l
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, domain.ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := newLoader(t, nil).Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, domain.StoreDriverSnapshot, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(tmpDir, ".tangle", "graph.json"), cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.JSON)
	assert.Equal(t, domain.StatusPending, cfg.Policy.ReadyStatus)
	assert.False(t, cfg.Policy.KeepActiveWhenReady)
	assert.False(t, cfg.Policy.CascadeOnRemove)
	assert.Equal(t, 4, cfg.Reconcile.Parallelism)
}

func TestLoad_File(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `
version: "1"
store:
  driver: SQLite
log:
  json: true
  level: DEBUG
policy:
  ready_status: in_progress
  keep_active_when_ready: true
  cascade_on_remove: true
reconcile:
  parallelism: 8
`)

	cfg, err := newLoader(t, nil).Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, domain.StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(tmpDir, ".tangle", "graph.db"), cfg.Store.Path)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, domain.StatusInProgress, cfg.Policy.ReadyStatus)
	assert.True(t, cfg.Policy.KeepActiveWhenReady)
	assert.True(t, cfg.Policy.CascadeOnRemove)
	assert.Equal(t, 8, cfg.Reconcile.Parallelism)
}

func TestLoad_DiscoversParentConfig(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "store:\n  path: data/tasks.json\n")

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	cfg, err := newLoader(t, nil).Load(nested)
	require.NoError(t, err)

	// Relative store paths resolve against the directory holding tangle.yaml.
	assert.Equal(t, filepath.Join(root, "data", "tasks.json"), cfg.Store.Path)
}

func TestLoad_ExplicitConfig(t *testing.T) {
	tmpDir := t.TempDir()
	other := filepath.Join(tmpDir, "conf")
	require.NoError(t, os.MkdirAll(other, 0o750))
	writeConfig(t, tmpDir, "store:\n  driver: sqlite\n")
	path := filepath.Join(other, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: memory\n"), 0o600))

	cfg, err := newLoader(t, map[string]string{config.EnvConfig: "conf/custom.yaml"}).Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, domain.StoreDriverMemory, cfg.Store.Driver)
	assert.Empty(t, cfg.Store.Path)
}

func TestLoad_ExplicitConfigMissing(t *testing.T) {
	_, err := newLoader(t, map[string]string{config.EnvConfig: "nope.yaml"}).Load(t.TempDir())
	require.ErrorIs(t, err, domain.ErrConfigReadFailed)
}

func TestLoad_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "store:\n  driver: memory\n")

	env := map[string]string{
		config.EnvStore:     "sqlite",
		config.EnvStorePath: "/var/lib/tangle/graph.db",
		config.EnvLogJSON:   "true",
	}
	cfg, err := newLoader(t, env).Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, domain.StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/var/lib/tangle/graph.db", cfg.Store.Path)
	assert.True(t, cfg.Log.JSON)
}

func TestLoad_UnsupportedVersionWarns(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "version: \"2\"\n")

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).Times(1)

	l := config.NewLoader(log)
	l.Getenv = func(string) string { return "" }

	_, err := l.Load(tmpDir)
	require.NoError(t, err)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr error
	}{
		{
			name:    "malformed yaml",
			content: "store: [",
			wantErr: domain.ErrConfigParseFailed,
		},
		{
			name:    "unknown driver",
			content: "store:\n  driver: postgres\n",
			wantErr: domain.ErrUnknownStoreDriver,
		},
		{
			name:    "unknown driver from env",
			env:     map[string]string{config.EnvStore: "redis"},
			wantErr: domain.ErrUnknownStoreDriver,
		},
		{
			name:    "invalid ready status",
			content: "policy:\n  ready_status: done\n",
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "invalid log level",
			content: "log:\n  level: loud\n",
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "zero parallelism",
			content: "reconcile:\n  parallelism: 0\n",
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "invalid json flag",
			env:     map[string]string{config.EnvLogJSON: "sometimes"},
			wantErr: domain.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			if tt.content != "" {
				writeConfig(t, tmpDir, tt.content)
			}

			_, err := newLoader(t, tt.env).Load(tmpDir)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_SQLiteInMemoryPathIsKept(t *testing.T) {
	env := map[string]string{
		config.EnvStore:     "sqlite",
		config.EnvStorePath: ":memory:",
	}
	cfg, err := newLoader(t, env).Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, domain.StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, domain.InMemoryDatabasePath, cfg.Store.Path)
}
