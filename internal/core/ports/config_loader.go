package ports

import "go.trai.ch/tangle/internal/core/domain"

// ConfigLoader defines the interface for loading the application configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration from the given working directory.
	// A missing config file yields domain.DefaultConfig with environment overrides applied.
	Load(cwd string) (*domain.Config, error)
}
