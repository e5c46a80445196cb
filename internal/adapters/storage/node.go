package storage

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/tangle/internal/adapters/config"
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
)

// NodeID is the unique identifier for the graph store Graft node.
const NodeID graft.ID = "adapter.graph_store"

func init() {
	graft.Register(graft.Node[ports.Store]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (ports.Store, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			return Open(ctx, cfg.Store)
		},
	})
}
