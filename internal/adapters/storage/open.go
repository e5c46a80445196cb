// Package storage selects and opens the graph store backend named by the configuration.
package storage

import (
	"context"

	"go.trai.ch/tangle/internal/adapters/memory"
	"go.trai.ch/tangle/internal/adapters/snapshot"
	"go.trai.ch/tangle/internal/adapters/sqlite"
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
	"go.trai.ch/zerr"
)

// Open returns the store for cfg.Driver.
func Open(ctx context.Context, cfg domain.StoreConfig) (ports.Store, error) {
	switch cfg.Driver {
	case domain.StoreDriverMemory:
		return memory.NewStore(), nil
	case domain.StoreDriverSnapshot:
		return snapshot.NewStore(cfg.Path)
	case domain.StoreDriverSQLite:
		return sqlite.Open(ctx, cfg.Path)
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownStoreDriver, "cannot open store"), "driver", cfg.Driver)
	}
}
