package domain

import "time"

// TaskID identifies a task for its whole lifetime.
type TaskID string

// String returns the id as a plain string.
func (id TaskID) String() string {
	return string(id)
}

// Task is a node in the dependency graph.
// Title and Description are opaque payload; the core only reads and rewrites Status.
type Task struct {
	ID          TaskID    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// Edge records that TaskID depends on DependsOnID.
type Edge struct {
	TaskID      TaskID    `json:"task_id"`
	DependsOnID TaskID    `json:"depends_on_id"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// IsSelfLoop reports whether the edge points back at its own task.
func (e Edge) IsSelfLoop() bool {
	return e.TaskID == e.DependsOnID
}
