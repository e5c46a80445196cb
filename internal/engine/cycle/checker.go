// Package cycle decides whether a proposed dependency would close a cycle.
package cycle

import (
	"context"
	"slices"

	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
	"go.trai.ch/zerr"
)

// Result is the outcome of a cycle check.
// When Cycle is true, Path runs from the proposed target through existing dependencies to the
// proposed source and back to the target, so every adjacent pair is an existing edge or the
// proposed one.
type Result struct {
	Cycle bool
	Path  []domain.TaskID
}

// Err converts a cyclic result into a *domain.CycleError, or returns nil.
func (r Result) Err() error {
	if !r.Cycle {
		return nil
	}
	return domain.NewCycleError(r.Path)
}

// Checker runs read-only reachability checks against a graph store.
type Checker struct {
	store  ports.GraphStore
	tracer ports.Tracer
}

// NewChecker creates a Checker reading from the given store.
func NewChecker(store ports.GraphStore, tracer ports.Tracer) *Checker {
	return &Checker{store: store, tracer: tracer}
}

// frame is a pending visit on the explicit DFS stack.
type frame struct {
	id     domain.TaskID
	parent domain.TaskID
	root   bool
}

// Check reports whether adding "source depends on target" would create a cycle.
//
// The edge closes a cycle iff source is reachable from target along existing dependencies.
// The search is an iterative depth-first walk from target; each task is expanded at most once,
// so the cost is linear in the number of edges reachable from target. Dependencies are
// explored in ascending id order, which makes the reported path deterministic.
//
// Callers are expected to reject source == target beforehand; if they do not, the trivial
// cycle [source, source] is reported.
func (c *Checker) Check(ctx context.Context, source, target domain.TaskID) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "cycle.check",
		ports.WithAttribute("source", source.String()),
		ports.WithAttribute("target", target.String()),
	)
	defer span.End()

	visited := make(map[domain.TaskID]bool)
	parent := make(map[domain.TaskID]domain.TaskID)
	stack := []frame{{id: target, root: true}}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[current.id] {
			continue
		}
		visited[current.id] = true
		if !current.root {
			parent[current.id] = current.parent
		}

		if current.id == source {
			path := buildPath(parent, target, source)
			span.SetAttribute("cycle", true)
			span.SetAttribute("visited", len(visited))
			return Result{Cycle: true, Path: path}, nil
		}

		deps, err := c.store.Dependencies(ctx, current.id)
		if err != nil {
			err = zerr.With(zerr.Wrap(err, "failed to list dependencies during cycle check"), "task_id", current.id.String())
			span.RecordError(err)
			return Result{}, err
		}

		// Push in reverse so the smallest id is popped first.
		for _, dep := range slices.Backward(deps) {
			if !visited[dep] {
				stack = append(stack, frame{id: dep, parent: current.id})
			}
		}
	}

	span.SetAttribute("cycle", false)
	span.SetAttribute("visited", len(visited))
	return Result{}, nil
}

// buildPath walks parent links back from source to target and closes the loop on target.
func buildPath(parent map[domain.TaskID]domain.TaskID, target, source domain.TaskID) []domain.TaskID {
	var reversed []domain.TaskID
	for id := source; ; id = parent[id] {
		reversed = append(reversed, id)
		if id == target {
			break
		}
	}
	slices.Reverse(reversed)
	return append(reversed, target)
}
