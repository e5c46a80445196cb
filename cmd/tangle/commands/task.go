package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/engine/cascade"
)

func (c *CLI) newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, inspect and edit tasks",
	}
	cmd.AddCommand(c.newTaskAddCmd())
	cmd.AddCommand(c.newTaskListCmd())
	cmd.AddCommand(c.newTaskShowCmd())
	cmd.AddCommand(c.newTaskRmCmd())
	cmd.AddCommand(c.newTaskStatusCmd())
	return cmd
}

func (c *CLI) newTaskAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a pending task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			task, err := c.app.CreateTask(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			if c.json {
				return c.writeJSON(cmd, task)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), task.ID)
			return err
		},
	}
	cmd.Flags().StringP("description", "d", "", "Free-form task description")
	return cmd
}

func (c *CLI) newTaskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List every task",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := c.app.ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			if c.json {
				return c.writeJSON(cmd, tasks)
			}
			return writeTasks(cmd.OutOrStdout(), tasks)
		},
	}
}

type taskView struct {
	*domain.Task
	DependsOn  []domain.Task `json:"depends_on"`
	Dependents []domain.Task `json:"dependents"`
}

func (c *CLI) newTaskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its dependencies and dependents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := domain.TaskID(args[0])

			task, err := c.app.GetTask(ctx, id)
			if err != nil {
				return err
			}
			deps, err := c.app.Dependencies(ctx, id)
			if err != nil {
				return err
			}
			dependents, err := c.app.Dependents(ctx, id)
			if err != nil {
				return err
			}

			if c.json {
				return c.writeJSON(cmd, taskView{Task: task, DependsOn: deps, Dependents: dependents})
			}
			return writeTask(cmd.OutOrStdout(), task, deps, dependents)
		},
	}
}

func (c *CLI) newTaskRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task and its dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.app.DeleteTask(cmd.Context(), domain.TaskID(args[0]))
			if err != nil {
				return err
			}
			return c.report(cmd, report)
		},
	}
}

func (c *CLI) newTaskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <pending|in_progress|completed|blocked>",
		Short: "Set a task's status and cascade it to its dependents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := domain.ParseStatus(args[1])
			if err != nil {
				return err
			}
			report, err := c.app.SetStatus(cmd.Context(), domain.TaskID(args[0]), status)
			if err != nil {
				return err
			}
			return c.report(cmd, report)
		},
	}
}

func (c *CLI) report(cmd *cobra.Command, report cascade.Report) error {
	if c.json {
		return c.writeJSON(cmd, report)
	}
	return writeReport(cmd.OutOrStdout(), report)
}
