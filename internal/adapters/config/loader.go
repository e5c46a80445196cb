// Package config provides the configuration loader for tangle.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the configuration file.
const (
	EnvConfig    = "TANGLE_CONFIG"
	EnvStore     = "TANGLE_STORE"
	EnvStorePath = "TANGLE_STORE_PATH"
	EnvLogJSON   = "TANGLE_LOG_JSON"
)

// SupportedVersion is the tangle.yaml format version this loader understands.
const SupportedVersion = "1"

var validLevels = []string{"debug", "info", "warn", "error"}

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
	// Getenv looks up environment overrides. Defaults to os.Getenv.
	Getenv func(string) string
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger, Getenv: os.Getenv}
}

// Load resolves the configuration for the given working directory.
// The file named by TANGLE_CONFIG wins; otherwise tangle.yaml is searched from cwd upwards.
// Without any file the defaults apply, rooted at cwd.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()
	root := cwd

	configPath, err := l.findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		var file Tanglefile
		if err := readAndUnmarshalYAML(configPath, &file); err != nil {
			return nil, err
		}
		root = filepath.Dir(configPath)
		if file.Version != "" && file.Version != SupportedVersion && l.Logger != nil {
			l.Logger.Warn(fmt.Sprintf("%s: unsupported version %q, reading it as version %s",
				configPath, file.Version, SupportedVersion))
		}
		if err := apply(cfg, &file); err != nil {
			return nil, zerr.With(err, "path", configPath)
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if resolvesAgainstRoot(cfg.Store) {
		cfg.Store.Path = filepath.Join(root, cfg.Store.Path)
	}

	return cfg, nil
}

func (l *Loader) findConfiguration(cwd string) (string, error) {
	if explicit := l.getenv(EnvConfig); explicit != "" {
		if !filepath.IsAbs(explicit) {
			explicit = filepath.Join(cwd, explicit)
		}
		if _, err := os.Stat(explicit); err != nil {
			return "", zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, "config file not accessible"), "path", explicit)
		}
		return explicit, nil
	}

	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return "", nil
		}
		currentDir = parentDir
	}
}

func readAndUnmarshalYAML(path string, out any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, "config file not found"), "path", path)
		}
		return zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", path)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, err.Error()), "path", path)
	}
	return nil
}

func apply(cfg *domain.Config, file *Tanglefile) error {
	if s := file.Store; s != nil {
		if s.Driver != "" {
			cfg.Store.Driver = strings.ToLower(s.Driver)
			if s.Path == "" {
				cfg.Store.Path = defaultPathFor(cfg.Store.Driver)
			}
		}
		if s.Path != "" {
			cfg.Store.Path = s.Path
		}
	}

	if lg := file.Log; lg != nil {
		if lg.JSON != nil {
			cfg.Log.JSON = *lg.JSON
		}
		if lg.Level != "" {
			cfg.Log.Level = strings.ToLower(lg.Level)
		}
	}

	if p := file.Policy; p != nil {
		if p.ReadyStatus != "" {
			status, err := domain.ParseStatus(p.ReadyStatus)
			if err != nil {
				return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "invalid policy.ready_status"), "value", p.ReadyStatus)
			}
			cfg.Policy.ReadyStatus = status
		}
		if p.KeepActiveWhenReady != nil {
			cfg.Policy.KeepActiveWhenReady = *p.KeepActiveWhenReady
		}
		if p.CascadeOnRemove != nil {
			cfg.Policy.CascadeOnRemove = *p.CascadeOnRemove
		}
	}

	if r := file.Reconcile; r != nil && r.Parallelism != nil {
		cfg.Reconcile.Parallelism = *r.Parallelism
	}

	return nil
}

func (l *Loader) applyEnv(cfg *domain.Config) error {
	if driver := l.getenv(EnvStore); driver != "" {
		cfg.Store.Driver = strings.ToLower(driver)
		cfg.Store.Path = defaultPathFor(cfg.Store.Driver)
	}
	if path := l.getenv(EnvStorePath); path != "" {
		cfg.Store.Path = path
	}
	if raw := l.getenv(EnvLogJSON); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "invalid boolean"), EnvLogJSON, raw)
		}
		cfg.Log.JSON = enabled
	}
	return nil
}

func validate(cfg *domain.Config) error {
	switch cfg.Store.Driver {
	case domain.StoreDriverMemory, domain.StoreDriverSnapshot, domain.StoreDriverSQLite:
	default:
		return zerr.With(zerr.Wrap(domain.ErrUnknownStoreDriver, "invalid store.driver"), "driver", cfg.Store.Driver)
	}
	if cfg.Store.Driver != domain.StoreDriverMemory && cfg.Store.Path == "" {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "store.path is required"), "driver", cfg.Store.Driver)
	}
	if !slices.Contains(validLevels, cfg.Log.Level) {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig,
			fmt.Sprintf("log.level must be one of %s", strings.Join(validLevels, ", "))), "level", cfg.Log.Level)
	}
	if cfg.Reconcile.Parallelism <= 0 {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "reconcile.parallelism must be positive"),
			"parallelism", cfg.Reconcile.Parallelism)
	}
	return nil
}

// resolvesAgainstRoot reports whether the store path is a relative file path.
func resolvesAgainstRoot(store domain.StoreConfig) bool {
	switch {
	case store.Driver == domain.StoreDriverMemory:
		return false
	case store.Driver == domain.StoreDriverSQLite && store.Path == domain.InMemoryDatabasePath:
		return false
	default:
		return !filepath.IsAbs(store.Path)
	}
}

func defaultPathFor(driver string) string {
	switch driver {
	case domain.StoreDriverSQLite:
		return domain.DefaultDatabasePath()
	case domain.StoreDriverSnapshot:
		return domain.DefaultSnapshotPath()
	default:
		return ""
	}
}

func (l *Loader) getenv(key string) string {
	if l.Getenv == nil {
		return os.Getenv(key)
	}
	return l.Getenv(key)
}
