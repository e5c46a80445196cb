// Package sqlite implements the graph store on top of an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
	"go.trai.ch/zerr"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

var _ ports.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL CHECK (status IN ('pending', 'in_progress', 'completed', 'blocked')),
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS task_edges (
	task_id       TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	depends_on_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (task_id, depends_on_id),
	CHECK (task_id <> depends_on_id)
);

CREATE INDEX IF NOT EXISTS idx_task_edges_depends_on ON task_edges(depends_on_id);
`

// Store persists tasks in the tasks table and dependencies in task_edges.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and ensures the schema exists.
// The special path ":memory:" yields a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != domain.InMemoryDatabasePath {
		if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
	}
	// A single connection keeps PRAGMA state and the :memory: database shared by every query.
	db.SetMaxOpenConns(1)

	s := New(db)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, zerr.With(err, "path", path)
	}
	return s, nil
}

// New wraps an open database. Callers must run EnsureSchema before use.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// EnsureSchema enables foreign keys and creates the tables. It is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return zerr.New("sqlite store is not initialized")
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return zerr.Wrap(err, "failed to enable foreign keys")
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		return zerr.Wrap(err, "failed to set journal mode")
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return zerr.Wrap(err, "failed to create schema")
	}
	return nil
}

// CreateTask inserts a new task row.
func (s *Store) CreateTask(ctx context.Context, task domain.Task) error {
	now := s.now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	return s.inTx(ctx, func(tx *sql.Tx) error {
		exists, err := taskExists(ctx, tx, task.ID)
		if err != nil {
			return err
		}
		if exists {
			return zerr.With(zerr.Wrap(domain.ErrTaskAlreadyExists, "cannot create task"), "task_id", task.ID.String())
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tasks (id, title, description, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			task.ID.String(), task.Title, task.Description, task.Status.String(),
			formatTime(task.CreatedAt), formatTime(task.UpdatedAt),
		)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "task_id", task.ID.String())
		}
		return nil
	})
}

// GetTask loads a single task.
func (s *Store) GetTask(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, status, created_at, updated_at FROM tasks WHERE id = ?`, id.String())
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "task_id", id.String())
	}
	return &task, nil
}

// ListTasks returns every task sorted by id.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, status, created_at, updated_at FROM tasks ORDER BY id`)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	return tasks, nil
}

// ListEdges returns every edge sorted by task id, then dependency id.
func (s *Store) ListEdges(ctx context.Context) ([]domain.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, depends_on_id, created_at FROM task_edges ORDER BY task_id, depends_on_id`)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var edges []domain.Edge
	for rows.Next() {
		var (
			taskID, dependsOnID, createdAt string
		)
		if err := rows.Scan(&taskID, &dependsOnID, &createdAt); err != nil {
			return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
		}
		created, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		edges = append(edges, domain.Edge{
			TaskID:      domain.TaskID(taskID),
			DependsOnID: domain.TaskID(dependsOnID),
			CreatedAt:   created,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	return edges, nil
}

// DeleteTask removes the task. Edges go with it through ON DELETE CASCADE.
func (s *Store) DeleteTask(ctx context.Context, id domain.TaskID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "task_id", id.String())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "task_id", id.String())
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// Dependencies returns the ids id depends on, sorted.
func (s *Store) Dependencies(ctx context.Context, id domain.TaskID) ([]domain.TaskID, error) {
	return s.neighbours(ctx, id,
		`SELECT depends_on_id FROM task_edges WHERE task_id = ? ORDER BY depends_on_id`)
}

// Dependents returns the ids that depend on id, sorted.
func (s *Store) Dependents(ctx context.Context, id domain.TaskID) ([]domain.TaskID, error) {
	return s.neighbours(ctx, id,
		`SELECT task_id FROM task_edges WHERE depends_on_id = ? ORDER BY task_id`)
}

// InsertEdge stores a dependency. An existing edge is returned with domain.ErrDuplicateEdge.
func (s *Store) InsertEdge(ctx context.Context, edge domain.Edge) (domain.Edge, error) {
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = s.now().UTC()
	}

	var stored domain.Edge
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range []domain.TaskID{edge.TaskID, edge.DependsOnID} {
			exists, err := taskExists(ctx, tx, id)
			if err != nil {
				return err
			}
			if !exists {
				return notFound(id)
			}
		}

		var createdAt string
		err := tx.QueryRowContext(ctx,
			`SELECT created_at FROM task_edges WHERE task_id = ? AND depends_on_id = ?`,
			edge.TaskID.String(), edge.DependsOnID.String(),
		).Scan(&createdAt)
		switch {
		case err == nil:
			created, perr := parseTime(createdAt)
			if perr != nil {
				return perr
			}
			stored = domain.Edge{TaskID: edge.TaskID, DependsOnID: edge.DependsOnID, CreatedAt: created}
			return zerr.With(
				zerr.With(zerr.Wrap(domain.ErrDuplicateEdge, "cannot insert dependency"), "task_id", edge.TaskID.String()),
				"depends_on_id", edge.DependsOnID.String(),
			)
		case !errors.Is(err, sql.ErrNoRows):
			return zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_edges (task_id, depends_on_id, created_at) VALUES (?, ?, ?)`,
			edge.TaskID.String(), edge.DependsOnID.String(), formatTime(edge.CreatedAt),
		); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "task_id", edge.TaskID.String())
		}
		stored = edge
		return nil
	})
	return stored, err
}

// RemoveEdge deletes a dependency.
func (s *Store) RemoveEdge(ctx context.Context, taskID, dependsOnID domain.TaskID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM task_edges WHERE task_id = ? AND depends_on_id = ?`, taskID.String(), dependsOnID.String())
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "task_id", taskID.String())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "task_id", taskID.String())
	}
	if n == 0 {
		return zerr.With(
			zerr.With(zerr.Wrap(domain.ErrEdgeNotFound, "cannot remove dependency"), "task_id", taskID.String()),
			"depends_on_id", dependsOnID.String(),
		)
	}
	return nil
}

// SetStatus persists a status change.
func (s *Store) SetStatus(ctx context.Context, id domain.TaskID, status domain.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		status.String(), formatTime(s.now().UTC()), id.String())
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "task_id", id.String())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "task_id", id.String())
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) neighbours(ctx context.Context, id domain.TaskID, query string) ([]domain.TaskID, error) {
	exists, err := taskExists(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound(id)
	}

	rows, err := s.db.QueryContext(ctx, query, id.String())
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "task_id", id.String())
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var out []domain.TaskID
	for rows.Next() {
		var other string
		if err := rows.Scan(&other); err != nil {
			return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
		}
		out = append(out, domain.TaskID(other))
	}
	if err := rows.Err(); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	return out, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func taskExists(ctx context.Context, q querier, id domain.TaskID) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT count(*) FROM tasks WHERE id = ?`, id.String()).Scan(&n)
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "task_id", id.String())
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (domain.Task, error) {
	var (
		id, title, description, status, createdAt, updatedAt string
	)
	if err := row.Scan(&id, &title, &description, &status, &createdAt, &updatedAt); err != nil {
		return domain.Task{}, err
	}
	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Task{}, zerr.With(zerr.Wrap(domain.ErrStoreCorrupted, "invalid status"), "task_id", id)
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return domain.Task{}, err
	}
	updated, err := parseTime(updatedAt)
	if err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:          domain.TaskID(id),
		Title:       title,
		Description: description,
		Status:      parsed,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, zerr.With(zerr.Wrap(domain.ErrStoreCorrupted, "invalid timestamp"), "value", s)
	}
	return t, nil
}

func notFound(id domain.TaskID) error {
	return zerr.With(zerr.Wrap(domain.ErrTaskNotFound, "lookup failed"), "task_id", id.String())
}
