// Package snapshot implements a graph store persisted as a single JSON document.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/tangle/internal/adapters/memory"
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Store = (*Store)(nil)

// Store serves reads from an in-memory store and rewrites the JSON file after every
// successful mutation. The file is replaced atomically through a temporary file.
type Store struct {
	*memory.Store

	path string
	// mu serializes writes to disk.
	mu          sync.Mutex
	fingerprint uint64
}

// document is the on-disk format.
type document struct {
	Version int           `json:"version"`
	Tasks   []domain.Task `json:"tasks"`
	Edges   []domain.Edge `json:"edges"`
}

const documentVersion = 1

// NewStore opens the snapshot at path, or starts empty if the file does not exist.
func NewStore(path string) (*Store, error) {
	s := &Store{path: filepath.Clean(path)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() error {
	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.startEmpty()
		}
		return storeError(domain.ErrStoreReadFailed, err, s.path)
	}

	if len(data) == 0 {
		return s.startEmpty()
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrStoreCorrupted, "cannot decode snapshot"), "path", s.path),
			"cause", err.Error())
	}

	restored, err := memory.Restore(memory.Snapshot{Tasks: doc.Tasks, Edges: doc.Edges})
	if err != nil {
		return zerr.With(err, "path", s.path)
	}
	s.Store = restored
	s.fingerprint = xxhash.Sum64(data)
	return nil
}

// startEmpty begins with an empty graph. The fingerprint is primed with the empty document
// so that nothing is written until the first real mutation.
func (s *Store) startEmpty() error {
	s.Store = memory.NewStore()
	data, err := encode(s.Snapshot())
	if err != nil {
		return storeError(domain.ErrStoreWriteFailed, err, s.path)
	}
	s.fingerprint = xxhash.Sum64(data)
	return nil
}

func encode(snap memory.Snapshot) ([]byte, error) {
	return json.MarshalIndent(document{
		Version: documentVersion,
		Tasks:   snap.Tasks,
		Edges:   snap.Edges,
	}, "", "  ")
}

// mutate applies fn to the in-memory graph and persists the result. If the write fails the
// graph is reset to its content before fn, so memory never runs ahead of the file.
func (s *Store) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.Snapshot()
	if err := fn(); err != nil {
		return err
	}
	if err := s.saveLocked(); err != nil {
		if resetErr := s.Reset(before); resetErr != nil {
			return errors.Join(err, resetErr)
		}
		return err
	}
	return nil
}

// saveLocked writes the current content to disk unless it matches what was last written.
// The caller holds s.mu.
func (s *Store) saveLocked() error {
	data, err := encode(s.Snapshot())
	if err != nil {
		return storeError(domain.ErrStoreWriteFailed, err, s.path)
	}

	sum := xxhash.Sum64(data)
	if sum == s.fingerprint {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return storeError(domain.ErrStoreWriteFailed, err, dir)
	}

	tmp, err := os.CreateTemp(dir, ".graph-*.json")
	if err != nil {
		return storeError(domain.ErrStoreWriteFailed, err, dir)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Best effort cleanup, fails once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return storeError(domain.ErrStoreWriteFailed, err, tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return storeError(domain.ErrStoreWriteFailed, err, tmp.Name())
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return storeError(domain.ErrStoreWriteFailed, err, tmp.Name())
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return storeError(domain.ErrStoreWriteFailed, err, s.path)
	}

	s.fingerprint = sum
	return nil
}

// Fingerprint returns the xxhash of the last document read or written.
func (s *Store) Fingerprint() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fingerprint
}

// CreateTask stores a new task and persists the snapshot.
func (s *Store) CreateTask(ctx context.Context, task domain.Task) error {
	return s.mutate(func() error {
		return s.Store.CreateTask(ctx, task)
	})
}

// DeleteTask removes the task and its edges and persists the snapshot.
func (s *Store) DeleteTask(ctx context.Context, id domain.TaskID) error {
	return s.mutate(func() error {
		return s.Store.DeleteTask(ctx, id)
	})
}

// InsertEdge stores a dependency and persists the snapshot.
func (s *Store) InsertEdge(ctx context.Context, edge domain.Edge) (domain.Edge, error) {
	var stored domain.Edge
	err := s.mutate(func() error {
		var err error
		stored, err = s.Store.InsertEdge(ctx, edge)
		return err
	})
	return stored, err
}

// RemoveEdge deletes a dependency and persists the snapshot.
func (s *Store) RemoveEdge(ctx context.Context, taskID, dependsOnID domain.TaskID) error {
	return s.mutate(func() error {
		return s.Store.RemoveEdge(ctx, taskID, dependsOnID)
	})
}

// SetStatus persists a status change.
func (s *Store) SetStatus(ctx context.Context, id domain.TaskID, status domain.Status) error {
	return s.mutate(func() error {
		return s.Store.SetStatus(ctx, id, status)
	})
}

// Close flushes the snapshot.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// storeError wraps sentinel so callers can match it with errors.Is, keeping cause as context.
func storeError(sentinel, cause error, path string) error {
	return zerr.With(zerr.Wrap(sentinel, cause.Error()), "path", path)
}
