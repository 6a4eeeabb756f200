package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"visiontune/internal/fetch"
	"visiontune/internal/merge"
	"visiontune/internal/pipeline"
)

func fetchLines(result fetch.Result, colorize bool) []string {
	var lines []string
	for _, name := range result.Downloaded {
		lines = append(lines, renderStatusLine(name, statusOK, "downloaded", colorize))
	}
	for _, name := range result.Skipped {
		lines = append(lines, renderStatusLine(name, statusInfo, "already present", colorize))
	}
	for _, failure := range result.Failed {
		lines = append(lines, renderStatusLine(failure.Name, statusWarn, failure.Err.Error(), colorize))
	}
	if len(lines) == 0 {
		lines = append(lines, statusIndent+"No datasets configured")
	}
	return lines
}

func mergeTable(summary merge.Summary) string {
	columns := []column{
		left("Dataset"),
		right("Train images"),
		right("Train labels"),
		right("Valid images"),
		right("Valid labels"),
		right("Kept"),
		right("Dropped"),
		left("Note"),
	}
	rows := make([][]string, 0, len(summary.Datasets))
	var kept, dropped int
	for _, ds := range summary.Datasets {
		dsKept := ds.Train.Annotations.Kept + ds.Valid.Annotations.Kept
		dsDropped := ds.Train.Annotations.Dropped() + ds.Valid.Annotations.Dropped()
		kept += dsKept
		dropped += dsDropped
		note := ""
		if ds.Skipped {
			note = "skipped: " + ds.SkipReason
		}
		rows = append(rows, []string{
			ds.Name,
			itoa(ds.Train.ImagesCopied),
			itoa(ds.Train.LabelsWritten),
			itoa(ds.Valid.ImagesCopied),
			itoa(ds.Valid.LabelsWritten),
			itoa(dsKept),
			itoa(dsDropped),
			note,
		})
	}
	footer := []string{
		"Total",
		itoa(summary.Train.ImagesCopied),
		itoa(summary.TrainLabels()),
		itoa(summary.Valid.ImagesCopied),
		itoa(summary.ValidLabels()),
		itoa(kept),
		itoa(dropped),
		"",
	}
	return renderTable(columns, rows, footer)
}

func writeMergeSummary(w io.Writer, summary merge.Summary) {
	fmt.Fprintln(w, mergeTable(summary))
	fmt.Fprintf(w, "Merged dataset: %s\n", summary.ManifestPath)
}

func writeTrainingSummary(w io.Writer, report pipeline.Report, colorize bool) {
	writeLines(w, renderSectionHeader("Model", colorize))
	if report.Training.LastEpoch.Total > 0 {
		fmt.Fprintf(w, "Epochs:    %d/%d\n", report.Training.LastEpoch.Epoch, report.Training.LastEpoch.Total)
	}
	fmt.Fprintf(w, "Weights:   %s\n", report.Training.WeightsPath)
	fmt.Fprintf(w, "Exported:  %s\n", report.ExportPath)
	fmt.Fprintf(w, "Run ID:    %s\n", report.RunID)
	fmt.Fprintf(w, "Duration:  %s\n", report.Duration.Round(time.Second))
}

func itoa(value int) string {
	return strconv.Itoa(value)
}
