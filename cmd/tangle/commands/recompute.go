package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/tangle/internal/core/domain"
)

func (c *CLI) newRecomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <id>",
		Short: "Re-resolve a task from its dependencies and cascade the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.app.RecomputeAndCascade(cmd.Context(), domain.TaskID(args[0]))
			if err != nil {
				return err
			}
			return c.report(cmd, report)
		},
	}
}

func (c *CLI) newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute every task so stored statuses match the policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			return c.report(cmd, report)
		},
	}
}
