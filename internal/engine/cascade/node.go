package cascade

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/tangle/internal/adapters/config"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/tangle/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/tangle/internal/adapters/storage"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/tangle/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
)

// NodeID is the unique identifier for the cascade engine Graft node.
const NodeID graft.ID = "engine.cascade"

func init() {
	graft.Register(graft.Node[*Engine]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			storage.NodeID,
			config.NodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
		},
		Run: func(ctx context.Context) (*Engine, error) {
			store, err := graft.Dep[ports.Store](ctx)
			if err != nil {
				return nil, err
			}

			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			return NewEngine(store, cfg.Policy.StatusPolicy(), log, tracer), nil
		},
	})
}
