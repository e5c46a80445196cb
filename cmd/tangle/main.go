// Package main is the entry point for the tangle task graph tool.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/tangle/cmd/tangle/commands"
	"go.trai.ch/tangle/internal/app"
	"go.trai.ch/tangle/internal/core/domain"
	_ "go.trai.ch/tangle/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run(opts ...func(*app.App)) int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Initialize application components
	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}
	defer func() {
		if err := components.Close(); err != nil {
			components.Logger.Error(err)
		}
	}()

	for _, opt := range opts {
		opt(components.App)
	}

	// 2. Interface - CLI
	cli := commands.New(components.App)
	cli.SetArgs(os.Args[1:])

	// 3. Execution
	if err := cli.Execute(ctx); err != nil {
		var cycleErr *domain.CycleError
		if errors.As(err, &cycleErr) {
			// Already explained on stderr by the command.
			return 2
		}
		components.Logger.Error(err)
		return 1
	}
	return 0
}
