package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"framemill/internal/runlog"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List past runs, or the files of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := runlog.Open(runlog.DefaultPath(cfg))
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return printRunFiles(cmd, store, args[0])
			}
			return printRuns(cmd, store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func printRuns(cmd *cobra.Command, store *runlog.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%-36s  %-20s  %-9s  %5s  %4s  %4s  %4s\n",
		"RUN", "STARTED", "DURATION", "TOTAL", "OK", "FAIL", "SKIP")
	for _, run := range runs {
		duration := "-"
		if !run.FinishedAt.IsZero() {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-36s  %-20s  %-9s  %5d  %4d  %4d  %4d\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			run.Total, run.Succeeded, run.Failed, run.Skipped)
	}
	return nil
}

func printRunFiles(cmd *cobra.Command, store *runlog.Store, runID string) error {
	records, err := store.FilesForRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no files recorded for run %s\n", runID)
		return nil
	}

	for _, record := range records {
		line := fmt.Sprintf("%-10s  %s", record.Status, record.SourcePath)
		if record.ColorOK != nil && !*record.ColorOK {
			line += "  [color mismatch]"
		}
		if record.Error != "" {
			line += "\n            " + record.Error
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
