package domain

import "strings"

// CycleError reports a rejected dependency together with the loop it would have closed.
// Path starts and ends at the proposed dependency target, for example [A B C A] when C was
// proposed to depend on A while A already depends on C through B.
type CycleError struct {
	Path []TaskID
}

// NewCycleError returns a CycleError for the given path.
func NewCycleError(path []TaskID) *CycleError {
	return &CycleError{Path: path}
}

// Error implements error.
func (e *CycleError) Error() string {
	return ErrCycleDetected.Error() + ": " + FormatPath(e.Path)
}

// Unwrap lets errors.Is match ErrCycleDetected.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// PathStrings returns the path as plain strings.
func (e *CycleError) PathStrings() []string {
	out := make([]string, len(e.Path))
	for i, id := range e.Path {
		out[i] = id.String()
	}
	return out
}

// FormatPath renders a path as "a -> b -> c".
func FormatPath(path []TaskID) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = id.String()
	}
	return strings.Join(parts, " -> ")
}
