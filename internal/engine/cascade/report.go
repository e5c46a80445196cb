package cascade

import (
	"fmt"

	"go.trai.ch/tangle/internal/core/domain"
)

// Change records one persisted status transition.
type Change struct {
	TaskID domain.TaskID `json:"task_id"`
	From   domain.Status `json:"from"`
	To     domain.Status `json:"to"`
	Reason domain.Reason `json:"reason"`
}

// String renders the change as "B: pending -> blocked (dependency_blocked)".
func (c Change) String() string {
	return fmt.Sprintf("%s: %s -> %s (%s)", c.TaskID, c.From, c.To, c.Reason)
}

// Report summarizes a cascade run.
type Report struct {
	// Recomputed counts status resolutions, whether or not they changed anything.
	Recomputed int `json:"recomputed"`
	// Changes lists persisted transitions in the order they were applied.
	Changes []Change `json:"changes,omitempty"`
	// Skipped lists tasks that could not be read or written and were left as they were.
	Skipped []domain.TaskID `json:"skipped,omitempty"`
	// CycleBroken is set when the stored graph contained a cycle among the affected tasks.
	CycleBroken bool `json:"cycle_broken,omitempty"`
}

// Changed reports whether any status was rewritten.
func (r Report) Changed() bool {
	return len(r.Changes) > 0
}

// Merge folds other into r.
func (r *Report) Merge(other Report) {
	r.Recomputed += other.Recomputed
	r.Changes = append(r.Changes, other.Changes...)
	r.Skipped = append(r.Skipped, other.Skipped...)
	r.CycleBroken = r.CycleBroken || other.CycleBroken
}
