package cycle

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/tangle/internal/adapters/storage"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/tangle/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/tangle/internal/core/ports"
)

// NodeID is the unique identifier for the cycle checker Graft node.
const NodeID graft.ID = "engine.cycle"

func init() {
	graft.Register(graft.Node[*Checker]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			storage.NodeID,
			telemetry.TracerNodeID,
		},
		Run: func(ctx context.Context) (*Checker, error) {
			store, err := graft.Dep[ports.Store](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			return NewChecker(store, tracer), nil
		},
	})
}
