package app

import (
	"context"
	"errors"
	"fmt"

	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
	"go.trai.ch/tangle/internal/engine/cascade"
	"go.trai.ch/zerr"
)

// AddResult describes an accepted dependency.
type AddResult struct {
	Edge domain.Edge `json:"edge"`
	// Created is false when the dependency already existed.
	Created bool `json:"created"`
	// Report covers the cascade triggered by the new dependency.
	Report cascade.Report `json:"report"`
}

// TryAddDependency records that taskID depends on dependsOnID.
//
// It fails with domain.ErrSelfDependency, domain.ErrTaskNotFound or a *domain.CycleError
// (matching domain.ErrCycleDetected) and never changes the graph in those cases. Adding an
// existing dependency again succeeds without touching the edge and re-resolves the task.
func (a *App) TryAddDependency(ctx context.Context, taskID, dependsOnID domain.TaskID) (*AddResult, error) {
	ctx, span := a.tracer.Start(ctx, "app.add_dependency",
		ports.WithAttribute("task_id", taskID.String()),
		ports.WithAttribute("depends_on_id", dependsOnID.String()),
	)
	defer span.End()

	res, err := a.tryAddDependency(ctx, taskID, dependsOnID)
	if err != nil {
		var cycleErr *domain.CycleError
		if errors.As(err, &cycleErr) {
			span.SetAttribute("cycle_path", cycleErr.PathStrings())
		}
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("created", res.Created)
	return res, nil
}

func (a *App) tryAddDependency(ctx context.Context, taskID, dependsOnID domain.TaskID) (*AddResult, error) {
	if taskID == dependsOnID {
		return nil, zerr.With(zerr.Wrap(domain.ErrSelfDependency, "cannot add dependency"), "task_id", taskID.String())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, id := range []domain.TaskID{taskID, dependsOnID} {
		if _, err := a.store.GetTask(ctx, id); err != nil {
			return nil, err
		}
	}

	check, err := a.checker.Check(ctx, taskID, dependsOnID)
	if err != nil {
		return nil, zerr.Wrap(err, "cycle check failed")
	}
	if check.Cycle {
		a.logger.Warn(fmt.Sprintf("rejected dependency %s -> %s: %s", taskID, dependsOnID, domain.FormatPath(check.Path)))
		return nil, check.Err()
	}

	edge, err := a.store.InsertEdge(ctx, domain.Edge{TaskID: taskID, DependsOnID: dependsOnID})
	if errors.Is(err, domain.ErrDuplicateEdge) {
		// An earlier add may have stored the edge without finishing its cascade.
		return &AddResult{Edge: edge, Created: false, Report: a.engine.Recompute(ctx, taskID)}, nil
	}
	if err != nil {
		return nil, zerr.Wrap(err, "failed to add dependency")
	}

	a.logger.Info(fmt.Sprintf("task %s now depends on %s", taskID, dependsOnID))
	return &AddResult{
		Edge:    edge,
		Created: true,
		Report:  a.engine.Recompute(ctx, taskID),
	}, nil
}

// RemoveDependency deletes the dependency of taskID on dependsOnID. The task is recomputed
// afterwards only when Settings.CascadeOnRemove is set.
func (a *App) RemoveDependency(ctx context.Context, taskID, dependsOnID domain.TaskID) (cascade.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.RemoveEdge(ctx, taskID, dependsOnID); err != nil {
		return cascade.Report{}, err
	}

	a.logger.Info(fmt.Sprintf("task %s no longer depends on %s", taskID, dependsOnID))
	if !a.settings.CascadeOnRemove {
		return cascade.Report{}, nil
	}
	return a.engine.Recompute(ctx, taskID), nil
}
