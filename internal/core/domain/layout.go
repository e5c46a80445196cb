package domain

import "path/filepath"

const (
	// TangleDirName is the name of the internal workspace directory.
	TangleDirName = ".tangle"

	// SnapshotFileName is the name of the JSON snapshot written by the snapshot store.
	SnapshotFileName = "graph.json"

	// DatabaseFileName is the name of the SQLite database used by the sqlite store.
	DatabaseFileName = "graph.db"

	// InMemoryDatabasePath makes the sqlite store open a private in-memory database.
	InMemoryDatabasePath = ":memory:"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "tangle.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultSnapshotPath returns the default path for the JSON snapshot.
// It joins .tangle and graph.json.
func DefaultSnapshotPath() string {
	return filepath.Join(TangleDirName, SnapshotFileName)
}

// DefaultDatabasePath returns the default path for the SQLite database.
// It joins .tangle and graph.db.
func DefaultDatabasePath() string {
	return filepath.Join(TangleDirName, DatabaseFileName)
}
