// Package commands implements the CLI commands for the tangle task graph tool.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/tangle/internal/app"
	"go.trai.ch/tangle/internal/build"
)

// CLI represents the command line interface for tangle.
type CLI struct {
	app     *app.App
	rootCmd *cobra.Command
	json    bool
}

// New creates a new CLI instance with the given app.
func New(a *app.App) *CLI {
	rootCmd := &cobra.Command{
		Use:           "tangle",
		Short:         "Track tasks and the dependencies between them",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentFlags().BoolVar(&c.json, "json", false, "Print results as JSON")

	rootCmd.AddCommand(c.newTaskCmd())
	rootCmd.AddCommand(c.newDepCmd())
	rootCmd.AddCommand(c.newRecomputeCmd())
	rootCmd.AddCommand(c.newReconcileCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects standard output and standard error. Used for testing.
func (c *CLI) SetOutput(out, errOut io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(errOut)
}
