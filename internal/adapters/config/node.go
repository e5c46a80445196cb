package config

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/tangle/internal/adapters/logger"
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports"
	"go.trai.ch/zerr"
)

// LoaderNodeID is the unique identifier for the config loader Graft node.
const LoaderNodeID graft.ID = "adapter.config_loader"

// NodeID is the unique identifier for the resolved configuration Graft node.
const NodeID graft.ID = "adapter.config"

// configurable is implemented by loggers that follow the log section of the config.
type configurable interface {
	SetJSON(enable bool)
	SetLevel(level string)
}

func init() {
	graft.Register(graft.Node[ports.ConfigLoader]{
		ID:        LoaderNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.ConfigLoader, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewLoader(log), nil
		},
	})

	graft.Register(graft.Node[*domain.Config]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{LoaderNodeID, logger.NodeID},
		Run: func(ctx context.Context) (*domain.Config, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return nil, zerr.Wrap(err, "failed to determine working directory")
			}
			cfg, err := loader.Load(cwd)
			if err != nil {
				return nil, err
			}
			if c, ok := log.(configurable); ok {
				c.SetJSON(cfg.Log.JSON)
				c.SetLevel(cfg.Log.Level)
			}
			return cfg, nil
		},
	})
}
