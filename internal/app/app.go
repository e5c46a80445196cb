// Package app implements the application layer for tangle.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
	"go.trai.ch/tangle/internal/engine/cascade"
	"go.trai.ch/tangle/internal/engine/cycle"
	"go.trai.ch/zerr"
)

// Settings are the parts of the configuration the app layer acts on.
type Settings struct {
	// CascadeOnRemove recomputes a task after one of its dependencies is removed.
	CascadeOnRemove bool
	// Parallelism bounds how many components Reconcile settles at once.
	Parallelism int
}

// SettingsFromConfig extracts the app settings from a resolved configuration.
func SettingsFromConfig(cfg *domain.Config) Settings {
	return Settings{
		CascadeOnRemove: cfg.Policy.CascadeOnRemove,
		Parallelism:     cfg.Reconcile.Parallelism,
	}
}

// App serves task and dependency requests. Every mutation holds a single writer lock, so a
// cycle check and the cascade that follows it always observe a consistent graph.
type App struct {
	store    ports.Store
	checker  *cycle.Checker
	engine   *cascade.Engine
	logger   ports.Logger
	tracer   ports.Tracer
	settings Settings

	mu    sync.Mutex
	newID func() domain.TaskID
}

// New creates a new App instance.
func New(
	store ports.Store,
	checker *cycle.Checker,
	engine *cascade.Engine,
	logger ports.Logger,
	tracer ports.Tracer,
	settings Settings,
) *App {
	if settings.Parallelism <= 0 {
		settings.Parallelism = 1
	}
	return &App{
		store:    store,
		checker:  checker,
		engine:   engine,
		logger:   logger,
		tracer:   tracer,
		settings: settings,
		newID: func() domain.TaskID {
			return domain.TaskID(uuid.NewString())
		},
	}
}

// WithIDGenerator overrides how task ids are generated.
func (a *App) WithIDGenerator(fn func() domain.TaskID) *App {
	a.newID = fn
	return a
}

// CreateTask stores a new pending task with a random id.
func (a *App) CreateTask(ctx context.Context, title, description string) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.ErrEmptyTitle
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	task := domain.Task{
		ID:          a.newID(),
		Title:       title,
		Description: description,
		Status:      domain.StatusPending,
	}
	if err := a.store.CreateTask(ctx, task); err != nil {
		return nil, zerr.Wrap(err, "failed to create task")
	}

	a.logger.Info(fmt.Sprintf("created task %s", task.ID))
	return a.store.GetTask(ctx, task.ID)
}

// GetTask returns a single task.
func (a *App) GetTask(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	return a.store.GetTask(ctx, id)
}

// ListTasks returns every task sorted by id.
func (a *App) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return a.store.ListTasks(ctx)
}

// ListEdges returns every dependency.
func (a *App) ListEdges(ctx context.Context) ([]domain.Edge, error) {
	return a.store.ListEdges(ctx)
}

// DeleteTask removes a task and its edges. Its former dependents lose a dependency and are
// recomputed.
func (a *App) DeleteTask(ctx context.Context, id domain.TaskID) (cascade.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	dependents, err := a.store.Dependents(ctx, id)
	if err != nil {
		return cascade.Report{}, err
	}
	if err := a.store.DeleteTask(ctx, id); err != nil {
		return cascade.Report{}, zerr.Wrap(err, "failed to delete task")
	}

	a.logger.Info(fmt.Sprintf("deleted task %s", id))
	if len(dependents) == 0 {
		return cascade.Report{}, nil
	}
	return a.engine.RecomputeAll(ctx, dependents), nil
}

// SetStatus records a manual status edit and cascades it to the task's dependents.
// The edited task keeps the status it was given.
func (a *App) SetStatus(ctx context.Context, id domain.TaskID, status domain.Status) (cascade.Report, error) {
	if !status.IsValid() {
		return cascade.Report{}, zerr.With(zerr.Wrap(domain.ErrInvalidStatus, "cannot set status"), "status", status.String())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	task, err := a.store.GetTask(ctx, id)
	if err != nil {
		return cascade.Report{}, err
	}
	if task.Status == status {
		return cascade.Report{}, nil
	}
	if err := a.store.SetStatus(ctx, id, status); err != nil {
		return cascade.Report{}, zerr.Wrap(err, "failed to set status")
	}

	a.logger.Info(fmt.Sprintf("task %s: %s -> %s", id, task.Status, status))
	return a.engine.Propagate(ctx, id), nil
}

// RecomputeAndCascade re-resolves id from its dependencies and cascades any change.
func (a *App) RecomputeAndCascade(ctx context.Context, id domain.TaskID) (cascade.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.store.GetTask(ctx, id); err != nil {
		return cascade.Report{}, err
	}
	return a.engine.Recompute(ctx, id), nil
}

// Dependencies returns the tasks id depends on.
func (a *App) Dependencies(ctx context.Context, id domain.TaskID) ([]domain.Task, error) {
	ids, err := a.store.Dependencies(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.load(ctx, ids)
}

// Dependents returns the tasks that depend on id.
func (a *App) Dependents(ctx context.Context, id domain.TaskID) ([]domain.Task, error) {
	ids, err := a.store.Dependents(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.load(ctx, ids)
}

// load fetches tasks by id, dropping ids that vanished in between.
func (a *App) load(ctx context.Context, ids []domain.TaskID) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(ids))
	for _, id := range ids {
		task, err := a.store.GetTask(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				continue
			}
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}
