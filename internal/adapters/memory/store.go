// Package memory implements an in-memory graph store.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Store = (*Store)(nil)

// Store keeps tasks and edges in maps guarded by a read/write mutex.
// Every read returns copies so callers cannot mutate stored state.
type Store struct {
	mu         sync.RWMutex
	tasks      map[domain.TaskID]domain.Task
	deps       map[domain.TaskID]map[domain.TaskID]domain.Edge
	dependents map[domain.TaskID]map[domain.TaskID]struct{}
	now        func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		tasks:      make(map[domain.TaskID]domain.Task),
		deps:       make(map[domain.TaskID]map[domain.TaskID]domain.Edge),
		dependents: make(map[domain.TaskID]map[domain.TaskID]struct{}),
		now:        time.Now,
	}
}

// Snapshot is the full content of a store.
type Snapshot struct {
	Tasks []domain.Task `json:"tasks"`
	Edges []domain.Edge `json:"edges"`
}

// Restore builds a Store from a snapshot. It rejects edges that reference unknown tasks,
// self-dependencies and duplicates.
func Restore(snap Snapshot) (*Store, error) {
	s := NewStore()
	for _, t := range snap.Tasks {
		if !t.Status.IsValid() {
			return nil, zerr.With(zerr.Wrap(domain.ErrStoreCorrupted, "task has invalid status"), "task_id", t.ID.String())
		}
		if _, exists := s.tasks[t.ID]; exists {
			return nil, zerr.With(zerr.Wrap(domain.ErrStoreCorrupted, "duplicate task"), "task_id", t.ID.String())
		}
		s.tasks[t.ID] = t
	}
	for _, e := range snap.Edges {
		if e.IsSelfLoop() {
			return nil, zerr.With(zerr.Wrap(domain.ErrStoreCorrupted, "self dependency"), "task_id", e.TaskID.String())
		}
		if _, err := s.insertEdgeLocked(e); err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrStoreCorrupted, "invalid edge"), "cause", err.Error())
		}
	}
	return s, nil
}

// Reset replaces the whole content with snap. The store is left untouched when snap is invalid.
func (s *Store) Reset(snap Snapshot) error {
	fresh, err := Restore(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = fresh.tasks
	s.deps = fresh.deps
	s.dependents = fresh.dependents
	return nil
}

// Snapshot returns a copy of the store content with tasks and edges sorted by id.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Tasks: s.listTasksLocked(),
		Edges: s.listEdgesLocked(),
	}
}

// CreateTask stores a new task.
func (s *Store) CreateTask(_ context.Context, task domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return zerr.With(zerr.Wrap(domain.ErrTaskAlreadyExists, "cannot create task"), "task_id", task.ID.String())
	}
	now := s.now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	s.tasks[task.ID] = task
	return nil
}

// GetTask returns a copy of the task.
func (s *Store) GetTask(_ context.Context, id domain.TaskID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, notFound(id)
	}
	return &task, nil
}

// ListTasks returns every task sorted by id.
func (s *Store) ListTasks(_ context.Context) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTasksLocked(), nil
}

// ListEdges returns every edge sorted by task id, then dependency id.
func (s *Store) ListEdges(_ context.Context) ([]domain.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEdgesLocked(), nil
}

// DeleteTask removes the task and every edge touching it.
func (s *Store) DeleteTask(_ context.Context, id domain.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return notFound(id)
	}
	for dep := range s.deps[id] {
		delete(s.dependents[dep], id)
	}
	for dependent := range s.dependents[id] {
		delete(s.deps[dependent], id)
	}
	delete(s.deps, id)
	delete(s.dependents, id)
	delete(s.tasks, id)
	return nil
}

// Dependencies returns the ids id depends on, sorted.
func (s *Store) Dependencies(_ context.Context, id domain.TaskID) ([]domain.TaskID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.tasks[id]; !ok {
		return nil, notFound(id)
	}
	return slices.Sorted(maps.Keys(s.deps[id])), nil
}

// Dependents returns the ids that depend on id, sorted.
func (s *Store) Dependents(_ context.Context, id domain.TaskID) ([]domain.TaskID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.tasks[id]; !ok {
		return nil, notFound(id)
	}
	return slices.Sorted(maps.Keys(s.dependents[id])), nil
}

// InsertEdge stores a dependency. An existing edge is returned with domain.ErrDuplicateEdge.
func (s *Store) InsertEdge(_ context.Context, edge domain.Edge) (domain.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertEdgeLocked(edge)
}

// RemoveEdge deletes a dependency.
func (s *Store) RemoveEdge(_ context.Context, taskID, dependsOnID domain.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deps[taskID][dependsOnID]; !ok {
		return zerr.With(
			zerr.With(zerr.Wrap(domain.ErrEdgeNotFound, "cannot remove dependency"), "task_id", taskID.String()),
			"depends_on_id", dependsOnID.String(),
		)
	}
	delete(s.deps[taskID], dependsOnID)
	delete(s.dependents[dependsOnID], taskID)
	return nil
}

// SetStatus persists a status change.
func (s *Store) SetStatus(_ context.Context, id domain.TaskID, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return notFound(id)
	}
	task.Status = status
	task.UpdatedAt = s.now()
	s.tasks[id] = task
	return nil
}

// Close does nothing.
func (s *Store) Close() error {
	return nil
}

func (s *Store) insertEdgeLocked(edge domain.Edge) (domain.Edge, error) {
	if _, ok := s.tasks[edge.TaskID]; !ok {
		return domain.Edge{}, notFound(edge.TaskID)
	}
	if _, ok := s.tasks[edge.DependsOnID]; !ok {
		return domain.Edge{}, notFound(edge.DependsOnID)
	}
	if existing, ok := s.deps[edge.TaskID][edge.DependsOnID]; ok {
		return existing, zerr.With(
			zerr.With(zerr.Wrap(domain.ErrDuplicateEdge, "cannot insert dependency"), "task_id", edge.TaskID.String()),
			"depends_on_id", edge.DependsOnID.String(),
		)
	}

	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = s.now()
	}
	if s.deps[edge.TaskID] == nil {
		s.deps[edge.TaskID] = make(map[domain.TaskID]domain.Edge)
	}
	if s.dependents[edge.DependsOnID] == nil {
		s.dependents[edge.DependsOnID] = make(map[domain.TaskID]struct{})
	}
	s.deps[edge.TaskID][edge.DependsOnID] = edge
	s.dependents[edge.DependsOnID][edge.TaskID] = struct{}{}
	return edge, nil
}

func (s *Store) listTasksLocked() []domain.Task {
	out := make([]domain.Task, 0, len(s.tasks))
	for _, id := range slices.Sorted(maps.Keys(s.tasks)) {
		out = append(out, s.tasks[id])
	}
	return out
}

func (s *Store) listEdgesLocked() []domain.Edge {
	var out []domain.Edge
	for _, id := range slices.Sorted(maps.Keys(s.deps)) {
		for _, dep := range slices.Sorted(maps.Keys(s.deps[id])) {
			out = append(out, s.deps[id][dep])
		}
	}
	return out
}

func notFound(id domain.TaskID) error {
	return zerr.With(zerr.Wrap(domain.ErrTaskNotFound, "lookup failed"), "task_id", id.String())
}
