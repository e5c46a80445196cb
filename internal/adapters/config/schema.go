package config

// Tanglefile represents the structure of the tangle.yaml configuration file.
type Tanglefile struct {
	Version   string        `yaml:"version"`
	Store     *StoreDTO     `yaml:"store"`
	Log       *LogDTO       `yaml:"log"`
	Policy    *PolicyDTO    `yaml:"policy"`
	Reconcile *ReconcileDTO `yaml:"reconcile"`
}

// StoreDTO selects the graph store backend.
type StoreDTO struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// LogDTO controls logger output.
type LogDTO struct {
	JSON  *bool  `yaml:"json"`
	Level string `yaml:"level"`
}

// PolicyDTO tunes status resolution and cascading.
type PolicyDTO struct {
	ReadyStatus         string `yaml:"ready_status"`
	KeepActiveWhenReady *bool  `yaml:"keep_active_when_ready"`
	CascadeOnRemove     *bool  `yaml:"cascade_on_remove"`
}

// ReconcileDTO bounds the parallel reconcile.
type ReconcileDTO struct {
	Parallelism *int `yaml:"parallelism"`
}
