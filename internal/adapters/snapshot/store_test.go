package snapshot_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tangle/internal/adapters/snapshot"
	"go.trai.ch/tangle/internal/adapters/storetest"
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
)

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store {
		s, err := snapshot.NewStore(filepath.Join(t.TempDir(), "graph.json"))
		require.NoError(t, err)
		return s
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "graph.json")
	ctx := context.Background()

	s, err := snapshot.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateTask(ctx, domain.Task{ID: "a", Title: "A", Status: domain.StatusCompleted}))
	require.NoError(t, s.CreateTask(ctx, domain.Task{ID: "b", Title: "B", Status: domain.StatusPending}))
	_, err = s.InsertEdge(ctx, domain.Edge{TaskID: "b", DependsOnID: "a"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := snapshot.NewStore(path)
	require.NoError(t, err)

	got, err := reopened.GetTask(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	deps, err := reopened.Dependencies(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []domain.TaskID{"a"}, deps)
	assert.Equal(t, s.Fingerprint(), reopened.Fingerprint())
}

func TestStore_DocumentFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	ctx := context.Background()

	s, err := snapshot.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateTask(ctx, domain.Task{ID: "a", Title: "A", Status: domain.StatusBlocked}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Version int `json:"version"`
		Tasks   []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 1, doc.Version)
	require.Len(t, doc.Tasks, 1)
	assert.Equal(t, "a", doc.Tasks[0].ID)
	assert.Equal(t, "blocked", doc.Tasks[0].Status)
}

func TestStore_SkipsUnchangedWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	ctx := context.Background()

	s, err := snapshot.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateTask(ctx, domain.Task{ID: "a", Title: "A", Status: domain.StatusPending}))
	before := s.Fingerprint()

	info, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.Equal(t, before, s.Fingerprint())

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), after.ModTime())
}

func TestStore_FailedMutationDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")

	s, err := snapshot.NewStore(path)
	require.NoError(t, err)

	err = s.SetStatus(context.Background(), "ghost", domain.StatusBlocked)
	require.ErrorIs(t, err, domain.ErrTaskNotFound)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_CloseWithoutMutationDoesNotWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".tangle")
	path := filepath.Join(dir, "graph.json")

	s, err := snapshot.NewStore(path)
	require.NoError(t, err)
	_, err = s.ListTasks(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewStore_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := snapshot.NewStore(path)
	require.ErrorIs(t, err, domain.ErrStoreCorrupted)
}

func TestNewStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	s, err := snapshot.NewStore(path)
	require.NoError(t, err)

	tasks, err := s.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

// breakDir replaces the snapshot directory with a plain file so every write fails.
func breakDir(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("not a directory"), 0o600))
}

func TestStore_FailedWriteRollsBack(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "d")
	path := filepath.Join(dir, "graph.json")
	ctx := context.Background()

	s, err := snapshot.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateTask(ctx, domain.Task{ID: "a", Title: "A", Status: domain.StatusPending}))
	require.NoError(t, s.CreateTask(ctx, domain.Task{ID: "b", Title: "B", Status: domain.StatusPending}))
	_, err = s.InsertEdge(ctx, domain.Edge{TaskID: "a", DependsOnID: "b"})
	require.NoError(t, err)

	breakDir(t, dir)

	tests := []struct {
		name   string
		mutate func() error
	}{
		{"create task", func() error {
			return s.CreateTask(ctx, domain.Task{ID: "c", Title: "C", Status: domain.StatusPending})
		}},
		{"delete task", func() error { return s.DeleteTask(ctx, "b") }},
		{"insert edge", func() error {
			_, err := s.InsertEdge(ctx, domain.Edge{TaskID: "b", DependsOnID: "a"})
			return err
		}},
		{"remove edge", func() error { return s.RemoveEdge(ctx, "a", "b") }},
		{"set status", func() error { return s.SetStatus(ctx, "b", domain.StatusBlocked) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.mutate(), domain.ErrStoreWriteFailed)

			tasks, err := s.ListTasks(ctx)
			require.NoError(t, err)
			require.Len(t, tasks, 2)
			assert.Equal(t, domain.StatusPending, tasks[1].Status)

			deps, err := s.Dependencies(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, []domain.TaskID{"b"}, deps)
			dependents, err := s.Dependents(ctx, "a")
			require.NoError(t, err)
			assert.Empty(t, dependents)
		})
	}
}
