package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// Status is the lifecycle state of a task.
type Status string

const (
	// StatusPending indicates the task is waiting to be picked up.
	StatusPending Status = "pending"
	// StatusInProgress indicates someone is working on the task.
	StatusInProgress Status = "in_progress"
	// StatusCompleted indicates the task is done.
	StatusCompleted Status = "completed"
	// StatusBlocked indicates the task cannot proceed because a dependency is blocked.
	StatusBlocked Status = "blocked"
)

// Statuses lists every status variant in declaration order.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusCompleted, StatusBlocked}
}

// String returns the external token of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known variants.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	default:
		return false
	}
}

// ParseStatus converts an external token into a Status.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", zerr.With(zerr.Wrap(ErrInvalidStatus, "unknown status token"), "status", s)
	}
	return status, nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// It rejects unknown tokens so corrupted state is never loaded silently.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
