package domain

import "go.trai.ch/zerr"

var (
	// ErrSelfDependency is returned when a task is proposed to depend on itself.
	ErrSelfDependency = zerr.New("a task cannot depend on itself")

	// ErrTaskNotFound is returned when a referenced task does not exist.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrCycleDetected is returned when a new dependency would close a cycle.
	ErrCycleDetected = zerr.New("circular dependency detected")

	// ErrDuplicateEdge is returned by stores when the dependency already exists.
	// The app layer treats it as an idempotent success.
	ErrDuplicateEdge = zerr.New("dependency already exists")

	// ErrEdgeNotFound is returned when removing a dependency that does not exist.
	ErrEdgeNotFound = zerr.New("dependency not found")

	// ErrTaskAlreadyExists is returned when creating a task with an id that is taken.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrInvalidStatus is returned for unknown status tokens.
	ErrInvalidStatus = zerr.New("invalid status, expected pending, in_progress, completed or blocked")

	// ErrEmptyTitle is returned when a task is created without a title.
	ErrEmptyTitle = zerr.New("task title cannot be empty")

	// ErrStoreReadFailed is returned when the graph store cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read graph store")

	// ErrStoreWriteFailed is returned when the graph store cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write graph store")

	// ErrStoreCorrupted is returned when persisted state cannot be decoded or violates invariants.
	ErrStoreCorrupted = zerr.New("graph store is corrupted")

	// ErrUnknownStoreDriver is returned when the configured store driver is not supported.
	ErrUnknownStoreDriver = zerr.New("unknown store driver, expected memory, snapshot or sqlite")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidConfig is returned when the configuration fails validation.
	ErrInvalidConfig = zerr.New("invalid configuration")
)
