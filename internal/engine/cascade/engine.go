// Package cascade keeps task statuses consistent with their dependencies.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
	"go.trai.ch/zerr"
)

// Engine re-resolves task statuses after a change and pushes the result downstream until a
// fixed point is reached.
//
// The engine never caches graph state between calls; every run reads fresh data from the
// store. Runs are detached from caller cancellation and always finish.
type Engine struct {
	store  ports.GraphStore
	policy domain.Policy
	logger ports.Logger
	tracer ports.Tracer
}

// NewEngine creates an Engine.
func NewEngine(store ports.GraphStore, policy domain.Policy, logger ports.Logger, tracer ports.Tracer) *Engine {
	return &Engine{
		store:  store,
		policy: policy,
		logger: logger,
		tracer: tracer,
	}
}

// Policy returns the status policy the engine applies.
func (e *Engine) Policy() domain.Policy {
	return e.policy
}

// Propagate is called after seed's status changed. It re-resolves every transitive dependent
// of seed whose inputs may have changed. The seed itself is not re-resolved, so a manual
// status edit on it is kept.
func (e *Engine) Propagate(ctx context.Context, seed domain.TaskID) Report {
	ctx, span := e.tracer.Start(context.WithoutCancel(ctx), "cascade.propagate",
		ports.WithAttribute("seed", seed.String()),
	)
	defer span.End()

	r := e.newRun(ctx)
	r.propagateFrom(seed)
	r.annotate(span)
	return r.report
}

// Recompute re-resolves id from its direct dependencies and, if its status changed,
// propagates the change to its dependents.
func (e *Engine) Recompute(ctx context.Context, id domain.TaskID) Report {
	ctx, span := e.tracer.Start(context.WithoutCancel(ctx), "cascade.recompute",
		ports.WithAttribute("seed", id.String()),
	)
	defer span.End()

	r := e.newRun(ctx)
	if r.resolve(id) {
		r.propagateFrom(id)
	}
	r.annotate(span)
	return r.report
}

// Settle re-resolves every task in ids, each after all of its dependencies within ids.
// Changes are not propagated to tasks outside ids, so ids should be closed under dependents
// (a whole connected component, for example).
func (e *Engine) Settle(ctx context.Context, ids []domain.TaskID) Report {
	ctx, span := e.tracer.Start(context.WithoutCancel(ctx), "cascade.settle",
		ports.WithAttribute("tasks", len(ids)),
	)
	defer span.End()

	r := e.newRun(ctx)
	members := make(map[domain.TaskID]bool, len(ids))
	for _, id := range ids {
		members[id] = true
	}
	for _, id := range ids {
		r.dirty[id] = true
		r.out[id] = r.dependentsOf(id, members)
	}
	r.walk(members)
	r.annotate(span)
	return r.report
}

// RecomputeAll re-resolves every task in seeds and cascades the resulting changes. Affected
// tasks are visited in dependency order, each at most once, so a seed that depends on another
// seed is resolved after it.
func (e *Engine) RecomputeAll(ctx context.Context, seeds []domain.TaskID) Report {
	ctx, span := e.tracer.Start(context.WithoutCancel(ctx), "cascade.recompute_all",
		ports.WithAttribute("seeds", len(seeds)),
	)
	defer span.End()

	r := e.newRun(ctx)
	members := r.collect(seeds)
	for _, id := range seeds {
		members[id] = true
		r.dirty[id] = true
	}
	r.walk(members)
	r.annotate(span)
	return r.report
}

// run holds the state of a single cascade.
type run struct {
	e      *Engine
	ctx    context.Context
	out    map[domain.TaskID][]domain.TaskID
	dirty  map[domain.TaskID]bool
	report Report
}

func (e *Engine) newRun(ctx context.Context) *run {
	return &run{
		e:     e,
		ctx:   ctx,
		out:   make(map[domain.TaskID][]domain.TaskID),
		dirty: make(map[domain.TaskID]bool),
	}
}

// propagateFrom collects the transitive dependents of seed, marks the direct ones dirty and
// walks them in dependency order.
func (r *run) propagateFrom(seed domain.TaskID) {
	members := r.collect([]domain.TaskID{seed})
	for _, dep := range r.out[seed] {
		r.dirty[dep] = true
	}
	r.walk(members)
}

// collect records the dependents of every task reachable downstream of seeds and returns the
// reached tasks. Seeds are only included when another seed depends on them.
func (r *run) collect(seeds []domain.TaskID) map[domain.TaskID]bool {
	members := make(map[domain.TaskID]bool)
	queue := slices.Clone(seeds)
	expanded := make(map[domain.TaskID]bool, len(seeds))
	for _, id := range seeds {
		expanded[id] = true
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		dependents := r.dependentsOf(id, nil)
		r.out[id] = dependents
		for _, dep := range dependents {
			members[dep] = true
			if !expanded[dep] {
				expanded[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return members
}

// walk processes members in topological order. A member is re-resolved only if it is dirty,
// and a member whose status changes marks its dependents dirty. Every member is visited once.
func (r *run) walk(members map[domain.TaskID]bool) {
	pending := make(map[domain.TaskID]int, len(members))
	for id := range members {
		pending[id] = 0
	}
	for id := range members {
		for _, dep := range r.out[id] {
			if members[dep] {
				pending[dep]++
			}
		}
	}

	var ready []domain.TaskID
	for id, n := range pending {
		if n == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	done := make(map[domain.TaskID]bool, len(members))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		done[id] = true

		r.visit(id)
		for _, dep := range r.out[id] {
			if !members[dep] {
				continue
			}
			pending[dep]--
			if pending[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(done) == len(members) {
		return
	}

	// Whatever is left sits on or behind a cycle in the stored graph. Visit each remaining
	// task once in id order so the run still terminates.
	remaining := make([]domain.TaskID, 0, len(members)-len(done))
	for id := range members {
		if !done[id] {
			remaining = append(remaining, id)
		}
	}
	slices.Sort(remaining)

	r.report.CycleBroken = true
	r.e.logger.Error(zerr.With(
		zerr.Wrap(domain.ErrCycleDetected, "stored graph contains a cycle, visiting remaining tasks once"),
		"tasks", fmt.Sprint(remaining),
	))
	for _, id := range remaining {
		r.visit(id)
	}
}

// visit re-resolves a dirty task and dirties its dependents when its status changes.
func (r *run) visit(id domain.TaskID) {
	if !r.dirty[id] {
		return
	}
	if r.resolve(id) {
		for _, dep := range r.out[id] {
			r.dirty[dep] = true
		}
	}
}

// resolve applies the policy to id using the current statuses of its dependencies and
// persists the result. It reports whether the stored status changed.
func (r *run) resolve(id domain.TaskID) bool {
	task, err := r.e.store.GetTask(r.ctx, id)
	if err != nil {
		r.skip(id, err)
		return false
	}

	depIDs, err := r.e.store.Dependencies(r.ctx, id)
	if err != nil {
		r.skip(id, err)
		return false
	}

	statuses := make([]domain.Status, 0, len(depIDs))
	for _, depID := range depIDs {
		dep, err := r.e.store.GetTask(r.ctx, depID)
		if err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				r.e.logger.Warn(fmt.Sprintf("ignoring missing dependency %s of task %s", depID, id))
				continue
			}
			r.skip(id, err)
			return false
		}
		statuses = append(statuses, dep.Status)
	}

	decision := r.e.policy.Decide(task.Status, statuses)
	r.report.Recomputed++
	if decision.Status == task.Status {
		return false
	}

	if err := r.e.store.SetStatus(r.ctx, id, decision.Status); err != nil {
		r.skip(id, err)
		return false
	}

	r.report.Changes = append(r.report.Changes, Change{
		TaskID: id,
		From:   task.Status,
		To:     decision.Status,
		Reason: decision.Reason,
	})
	return true
}

// dependentsOf lists the dependents of id, restricted to members when members is non-nil.
// A failed lookup is logged and treated as having no dependents.
func (r *run) dependentsOf(id domain.TaskID, members map[domain.TaskID]bool) []domain.TaskID {
	dependents, err := r.e.store.Dependents(r.ctx, id)
	if err != nil {
		r.skip(id, err)
		return nil
	}
	if members == nil {
		return dependents
	}
	return slices.DeleteFunc(dependents, func(dep domain.TaskID) bool {
		return !members[dep]
	})
}

func (r *run) skip(id domain.TaskID, err error) {
	if !slices.Contains(r.report.Skipped, id) {
		r.report.Skipped = append(r.report.Skipped, id)
	}
	if errors.Is(err, domain.ErrTaskNotFound) {
		r.e.logger.Warn(fmt.Sprintf("skipping task %s: no longer in store", id))
		return
	}
	r.e.logger.Error(zerr.With(zerr.Wrap(err, "cascade skipped task"), "task_id", id.String()))
}

func (r *run) annotate(span ports.Span) {
	span.SetAttribute("recomputed", r.report.Recomputed)
	span.SetAttribute("changed", len(r.report.Changes))
	span.SetAttribute("skipped", len(r.report.Skipped))
	if r.report.CycleBroken {
		span.SetAttribute("cycle_broken", true)
	}
	// Each persisted transition becomes a span event.
	for _, ch := range r.report.Changes {
		_, _ = fmt.Fprint(span, ch.String())
	}
}
