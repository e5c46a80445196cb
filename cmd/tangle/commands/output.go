package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/engine/cascade"
)

func (c *CLI) writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTasks(w io.Writer, tasks []domain.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "no tasks")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tTITLE")
	for _, t := range tasks {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Status, t.Title)
	}
	return tw.Flush()
}

func writeTask(w io.Writer, task *domain.Task, deps, dependents []domain.Task) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "id:\t%s\n", task.ID)
	_, _ = fmt.Fprintf(tw, "title:\t%s\n", task.Title)
	if task.Description != "" {
		_, _ = fmt.Fprintf(tw, "description:\t%s\n", task.Description)
	}
	_, _ = fmt.Fprintf(tw, "status:\t%s\n", task.Status)
	_, _ = fmt.Fprintf(tw, "depends on:\t%s\n", summarize(deps))
	_, _ = fmt.Fprintf(tw, "blocks:\t%s\n", summarize(dependents))
	return tw.Flush()
}

func summarize(tasks []domain.Task) string {
	if len(tasks) == 0 {
		return "-"
	}
	out := ""
	for i, t := range tasks {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s (%s)", t.ID, t.Status)
	}
	return out
}

func writeReport(w io.Writer, report cascade.Report) error {
	for _, ch := range report.Changes {
		if _, err := fmt.Fprintln(w, ch.String()); err != nil {
			return err
		}
	}
	for _, id := range report.Skipped {
		if _, err := fmt.Fprintf(w, "%s: skipped\n", id); err != nil {
			return err
		}
	}
	if report.CycleBroken {
		if _, err := fmt.Fprintln(w, "warning: stored graph contains a cycle"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "recomputed %d, changed %d\n", report.Recomputed, len(report.Changes))
	return err
}
