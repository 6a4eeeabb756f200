package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"visiontune/internal/history"
)

const historyTimeFormat = "2006-01-02 15:04:05"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, runsTable(runs))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its per-dataset contribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				writeRunDetail(cmd.OutOrStdout(), run)
				return nil
			})
		},
	}
}

func runsTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			string(run.Status),
			run.StartedAt.Local().Format(historyTimeFormat),
			formatDuration(run),
			itoa(run.TrainImages),
			itoa(run.ValidImages),
			valueOrDash(run.ExportPath),
		})
	}
	columns := []column{
		left("Run"),
		left("Status"),
		left("Started"),
		right("Duration"),
		right("Train"),
		right("Valid"),
		left("Export"),
	}
	return renderTable(columns, rows, nil)
}

func writeRunDetail(w io.Writer, run *history.Run) {
	colorize := shouldColorize(w)
	writeLines(w, renderSectionHeader("Run "+run.ID, colorize))
	fmt.Fprintln(w, renderStatusLine("Status", runStatusKind(run.Status), string(run.Status), colorize))
	fmt.Fprintf(w, "Started:       %s\n", run.StartedAt.Local().Format(historyTimeFormat))
	fmt.Fprintf(w, "Duration:      %s\n", formatDuration(*run))
	fmt.Fprintf(w, "Base model:    %s\n", valueOrDash(run.BaseModel))
	fmt.Fprintf(w, "Output dir:    %s\n", run.OutputDir)
	fmt.Fprintf(w, "Skip download: %s\n", yesNo(run.SkipDownload))
	fmt.Fprintf(w, "Weights:       %s\n", valueOrDash(run.WeightsPath))
	fmt.Fprintf(w, "Export:        %s\n", valueOrDash(run.ExportPath))
	if run.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:         %s\n", run.ErrorMessage)
	}
	if len(run.Datasets) == 0 {
		return
	}

	rows := make([][]string, 0, len(run.Datasets))
	for _, ds := range run.Datasets {
		note := ""
		if ds.Skipped {
			note = "skipped: " + ds.SkipReason
		}
		rows = append(rows, []string{
			ds.Name,
			itoa(ds.TrainImages),
			itoa(ds.ValidImages),
			itoa(ds.AnnotationsKept),
			itoa(ds.AnnotationsDropped),
			note,
		})
	}
	columns := []column{
		left("Dataset"),
		right("Train images"),
		right("Valid images"),
		right("Kept"),
		right("Dropped"),
		left("Note"),
	}
	fmt.Fprintln(w, renderTable(columns, rows, nil))
}

func runStatusKind(status history.Status) statusKind {
	switch status {
	case history.StatusSucceeded:
		return statusOK
	case history.StatusFailed:
		return statusError
	default:
		return statusInfo
	}
}

func formatDuration(run history.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.Duration().Round(time.Second).String()
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
