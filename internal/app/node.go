package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/tangle/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/tangle/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/tangle/internal/adapters/storage"   //nolint:depguard // Wired in app layer
	"go.trai.ch/tangle/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
	"go.trai.ch/tangle/internal/engine/cascade"
	"go.trai.ch/tangle/internal/engine/cycle"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			storage.NodeID,
			cycle.NodeID,
			cascade.NodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
			config.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			store, err := graft.Dep[ports.Store](ctx)
			if err != nil {
				return nil, err
			}

			checker, err := graft.Dep[*cycle.Checker](ctx)
			if err != nil {
				return nil, err
			}

			engine, err := graft.Dep[*cascade.Engine](ctx)
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

			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}

			return New(store, checker, engine, log, tracer, SettingsFromConfig(cfg)), nil
		},
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			config.NodeID,
			storage.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := graft.Dep[*domain.Config](ctx)
	if err != nil {
		return nil, err
	}

	store, err := graft.Dep[ports.Store](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:    app,
		Logger: log,
		Config: cfg,
		Store:  store,
	}, nil
}
