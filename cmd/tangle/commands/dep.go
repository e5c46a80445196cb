package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/tangle/internal/core/domain"
)

func (c *CLI) newDepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage dependencies between tasks",
	}
	cmd.AddCommand(c.newDepAddCmd())
	cmd.AddCommand(c.newDepRmCmd())
	cmd.AddCommand(c.newDepListCmd())
	return cmd
}

func (c *CLI) newDepAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <task> <depends-on>",
		Short: "Make a task depend on another one, rejecting cycles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.TryAddDependency(cmd.Context(), domain.TaskID(args[0]), domain.TaskID(args[1]))
			var cycleErr *domain.CycleError
			if errors.As(err, &cycleErr) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "rejected: %s\n", domain.FormatPath(cycleErr.Path))
				return err
			}
			if err != nil {
				return err
			}

			if c.json {
				return c.writeJSON(cmd, res)
			}
			out := cmd.OutOrStdout()
			if !res.Created {
				_, err = fmt.Fprintf(out, "%s already depends on %s\n", res.Edge.TaskID, res.Edge.DependsOnID)
				return err
			}
			if _, err := fmt.Fprintf(out, "%s now depends on %s\n", res.Edge.TaskID, res.Edge.DependsOnID); err != nil {
				return err
			}
			return writeReport(out, res.Report)
		},
	}
}

func (c *CLI) newDepRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <task> <depends-on>",
		Short: "Remove a dependency",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.app.RemoveDependency(cmd.Context(), domain.TaskID(args[0]), domain.TaskID(args[1]))
			if err != nil {
				return err
			}
			return c.report(cmd, report)
		},
	}
}

func (c *CLI) newDepListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List every dependency",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			edges, err := c.app.ListEdges(cmd.Context())
			if err != nil {
				return err
			}
			if c.json {
				return c.writeJSON(cmd, edges)
			}
			out := cmd.OutOrStdout()
			if len(edges) == 0 {
				_, err = fmt.Fprintln(out, "no dependencies")
				return err
			}
			for _, e := range edges {
				if _, err := fmt.Fprintf(out, "%s -> %s\n", e.TaskID, e.DependsOnID); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
