// Package storetest holds the behaviour every ports.Store implementation must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) ports.Store

// Run exercises a store implementation against the shared contract.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		require.NoError(t, s.CreateTask(ctx, domain.Task{
			ID: "a", Title: "Alpha", Description: "first", Status: domain.StatusPending, CreatedAt: created,
		}))

		got, err := s.GetTask(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, domain.TaskID("a"), got.ID)
		assert.Equal(t, "Alpha", got.Title)
		assert.Equal(t, "first", got.Description)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.True(t, got.CreatedAt.Equal(created))
		assert.False(t, got.UpdatedAt.IsZero())
	})

	t.Run("create duplicate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.CreateTask(ctx, task("a")))
		require.ErrorIs(t, s.CreateTask(ctx, task("a")), domain.ErrTaskAlreadyExists)
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetTask(context.Background(), "nope")
		require.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("list sorted", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seed(t, s, "c", "a", "b")

		tasks, err := s.ListTasks(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, []domain.TaskID{"a", "b", "c"}, []domain.TaskID{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	})

	t.Run("edges and neighbours", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seed(t, s, "a", "b", "c", "d")

		for _, e := range [][2]domain.TaskID{{"d", "c"}, {"d", "a"}, {"b", "a"}, {"c", "a"}} {
			_, err := s.InsertEdge(ctx, domain.Edge{TaskID: e[0], DependsOnID: e[1]})
			require.NoError(t, err)
		}

		deps, err := s.Dependencies(ctx, "d")
		require.NoError(t, err)
		assert.Equal(t, []domain.TaskID{"a", "c"}, deps)

		dependents, err := s.Dependents(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []domain.TaskID{"b", "c", "d"}, dependents)

		none, err := s.Dependencies(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, none)

		edges, err := s.ListEdges(ctx)
		require.NoError(t, err)
		require.Len(t, edges, 4)
		assert.Equal(t, domain.TaskID("b"), edges[0].TaskID)
		assert.Equal(t, domain.TaskID("d"), edges[3].TaskID)
		assert.Equal(t, domain.TaskID("c"), edges[3].DependsOnID)
	})

	t.Run("neighbours of missing task", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Dependencies(ctx, "ghost")
		require.ErrorIs(t, err, domain.ErrTaskNotFound)
		_, err = s.Dependents(ctx, "ghost")
		require.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("duplicate edge returns existing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seed(t, s, "a", "b")

		first, err := s.InsertEdge(ctx, domain.Edge{TaskID: "a", DependsOnID: "b"})
		require.NoError(t, err)

		again, err := s.InsertEdge(ctx, domain.Edge{TaskID: "a", DependsOnID: "b"})
		require.ErrorIs(t, err, domain.ErrDuplicateEdge)
		assert.True(t, first.CreatedAt.Equal(again.CreatedAt))

		edges, err := s.ListEdges(ctx)
		require.NoError(t, err)
		assert.Len(t, edges, 1)
	})

	t.Run("edge to missing task", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seed(t, s, "a")

		_, err := s.InsertEdge(ctx, domain.Edge{TaskID: "a", DependsOnID: "ghost"})
		require.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("remove edge", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seed(t, s, "a", "b")

		_, err := s.InsertEdge(ctx, domain.Edge{TaskID: "a", DependsOnID: "b"})
		require.NoError(t, err)
		require.NoError(t, s.RemoveEdge(ctx, "a", "b"))
		require.ErrorIs(t, s.RemoveEdge(ctx, "a", "b"), domain.ErrEdgeNotFound)

		deps, err := s.Dependencies(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, deps)
	})

	t.Run("set status", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seed(t, s, "a")

		require.NoError(t, s.SetStatus(ctx, "a", domain.StatusBlocked))
		got, err := s.GetTask(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusBlocked, got.Status)

		require.ErrorIs(t, s.SetStatus(ctx, "ghost", domain.StatusBlocked), domain.ErrTaskNotFound)
	})

	t.Run("delete removes edges", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seed(t, s, "a", "b", "c")

		_, err := s.InsertEdge(ctx, domain.Edge{TaskID: "b", DependsOnID: "a"})
		require.NoError(t, err)
		_, err = s.InsertEdge(ctx, domain.Edge{TaskID: "a", DependsOnID: "c"})
		require.NoError(t, err)

		require.NoError(t, s.DeleteTask(ctx, "a"))
		require.ErrorIs(t, s.DeleteTask(ctx, "a"), domain.ErrTaskNotFound)

		deps, err := s.Dependencies(ctx, "b")
		require.NoError(t, err)
		assert.Empty(t, deps)

		dependents, err := s.Dependents(ctx, "c")
		require.NoError(t, err)
		assert.Empty(t, dependents)

		edges, err := s.ListEdges(ctx)
		require.NoError(t, err)
		assert.Empty(t, edges)
	})
}

func task(id domain.TaskID) domain.Task {
	return domain.Task{ID: id, Title: "Task " + id.String(), Status: domain.StatusPending}
}

func seed(t *testing.T, s ports.Store, ids ...domain.TaskID) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, s.CreateTask(context.Background(), task(id)))
	}
}
