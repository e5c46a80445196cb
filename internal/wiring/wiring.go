// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/tangle/internal/adapters/config"
	_ "go.trai.ch/tangle/internal/adapters/logger"
	_ "go.trai.ch/tangle/internal/adapters/storage"
	_ "go.trai.ch/tangle/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/tangle/internal/app"
	_ "go.trai.ch/tangle/internal/engine/cascade"
	_ "go.trai.ch/tangle/internal/engine/cycle"
)
