package domain

// Store drivers understood by the store node.
const (
	StoreDriverMemory   = "memory"
	StoreDriverSnapshot = "snapshot"
	StoreDriverSQLite   = "sqlite"
)

// Config is the resolved application configuration.
type Config struct {
	Store     StoreConfig
	Log       LogConfig
	Policy    PolicyConfig
	Reconcile ReconcileConfig
}

// StoreConfig selects the graph store backend.
type StoreConfig struct {
	Driver string
	Path   string
}

// LogConfig controls the logger output.
type LogConfig struct {
	JSON  bool
	Level string
}

// PolicyConfig holds the owner-tunable parts of status resolution.
type PolicyConfig struct {
	ReadyStatus         Status
	KeepActiveWhenReady bool
	CascadeOnRemove     bool
}

// ReconcileConfig bounds the parallel reconcile.
type ReconcileConfig struct {
	Parallelism int
}

// StatusPolicy converts the configured policy into a Policy.
func (c PolicyConfig) StatusPolicy() Policy {
	p := DefaultPolicy()
	if c.ReadyStatus != "" {
		p.ReadyStatus = c.ReadyStatus
	}
	p.KeepActiveWhenReady = c.KeepActiveWhenReady
	return p
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: StoreDriverSnapshot,
			Path:   DefaultSnapshotPath(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Policy: PolicyConfig{
			ReadyStatus: StatusPending,
		},
		Reconcile: ReconcileConfig{
			Parallelism: 4,
		},
	}
}
