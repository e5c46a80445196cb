// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/tangle/internal/core/domain"
)

// GraphStore is the subset of task storage the graph algorithms need.
// Neighbour listings are returned sorted by id so traversals are deterministic.
//
//go:generate go run go.uber.org/mock/mockgen -source=graph_store.go -destination=mocks/mock_graph_store.go -package=mocks
type GraphStore interface {
	// GetTask returns the task with the given id, or domain.ErrTaskNotFound.
	GetTask(ctx context.Context, id domain.TaskID) (*domain.Task, error)

	// Dependencies returns the ids the task depends on (outgoing edges).
	Dependencies(ctx context.Context, id domain.TaskID) ([]domain.TaskID, error)

	// Dependents returns the ids of tasks that depend on the task (incoming edges).
	Dependents(ctx context.Context, id domain.TaskID) ([]domain.TaskID, error)

	// InsertEdge stores a new dependency. If the edge already exists it returns the stored
	// edge together with domain.ErrDuplicateEdge. It returns domain.ErrTaskNotFound if either
	// endpoint is missing.
	InsertEdge(ctx context.Context, edge domain.Edge) (domain.Edge, error)

	// RemoveEdge deletes a dependency, or returns domain.ErrEdgeNotFound.
	RemoveEdge(ctx context.Context, taskID, dependsOnID domain.TaskID) error

	// SetStatus persists a status change.
	SetStatus(ctx context.Context, id domain.TaskID, status domain.Status) error
}

// TaskStore covers task lifecycle operations that live outside the graph algorithms.
type TaskStore interface {
	// CreateTask stores a new task, or returns domain.ErrTaskAlreadyExists.
	CreateTask(ctx context.Context, task domain.Task) error

	// ListTasks returns every task sorted by id.
	ListTasks(ctx context.Context) ([]domain.Task, error)

	// ListEdges returns every dependency sorted by task id, then dependency id.
	ListEdges(ctx context.Context) ([]domain.Edge, error)

	// DeleteTask removes the task and every edge touching it.
	DeleteTask(ctx context.Context, id domain.TaskID) error
}

// Store is a complete graph store.
type Store interface {
	GraphStore
	TaskStore
	// Close releases the underlying resources.
	Close() error
}
