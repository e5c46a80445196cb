package app

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/engine/cascade"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Reconcile recomputes every task so that stored statuses match the policy again, for
// example after the policy changed or the store was edited by hand.
//
// The graph is split into weakly connected components. Components share no tasks, so they
// are settled concurrently. Once a component has started it runs to completion; cancelling
// ctx only prevents components that have not started yet.
func (a *App) Reconcile(ctx context.Context) (cascade.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tasks, err := a.store.ListTasks(ctx)
	if err != nil {
		return cascade.Report{}, zerr.Wrap(err, "failed to list tasks")
	}
	edges, err := a.store.ListEdges(ctx)
	if err != nil {
		return cascade.Report{}, zerr.Wrap(err, "failed to list dependencies")
	}

	components := SplitComponents(tasks, edges)
	reports := make([]cascade.Report, len(components))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.settings.Parallelism)
	for i, component := range components {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = a.engine.Settle(gctx, component)
			return nil
		})
	}
	waitErr := g.Wait()

	var total cascade.Report
	for _, r := range reports {
		total.Merge(r)
	}
	if waitErr != nil {
		return total, zerr.Wrap(waitErr, "reconcile interrupted")
	}

	a.logger.Info(fmt.Sprintf("reconciled %d tasks in %d components, %d changed",
		len(tasks), len(components), len(total.Changes)))
	return total, nil
}

// SplitComponents partitions tasks into weakly connected components. Each component is sorted by
// id and components are ordered by their smallest id. Edges that reference unknown tasks are
// ignored.
func SplitComponents(tasks []domain.Task, edges []domain.Edge) [][]domain.TaskID {
	parent := make(map[domain.TaskID]domain.TaskID, len(tasks))
	for _, t := range tasks {
		parent[t.ID] = t.ID
	}

	find := func(id domain.TaskID) domain.TaskID {
		for parent[id] != id {
			parent[id] = parent[parent[id]]
			id = parent[id]
		}
		return id
	}

	for _, e := range edges {
		if _, ok := parent[e.TaskID]; !ok {
			continue
		}
		if _, ok := parent[e.DependsOnID]; !ok {
			continue
		}
		a, b := find(e.TaskID), find(e.DependsOnID)
		if a == b {
			continue
		}
		if b < a {
			a, b = b, a
		}
		parent[b] = a
	}

	groups := make(map[domain.TaskID][]domain.TaskID)
	for _, id := range slices.Sorted(maps.Keys(parent)) {
		root := find(id)
		groups[root] = append(groups[root], id)
	}

	out := make([][]domain.TaskID, 0, len(groups))
	for _, members := range groups {
		out = append(out, members)
	}
	slices.SortFunc(out, func(x, y []domain.TaskID) int {
		return cmp.Compare(x[0], y[0])
	})
	return out
}
