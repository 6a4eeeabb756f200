package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"visiontune/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch datasets, merge them, fine-tune the base model and export it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(true, func(runner *pipeline.Runner) error {
				report, err := runner.Run(cmd.Context(), opts)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				writeLines(out, renderSectionHeader("Preflight", colorize))
				writeLines(out, preflightLines(report.Preflight, colorize))
				if !opts.SkipDownload {
					writeLines(out, renderSectionHeader("Datasets", colorize))
					writeLines(out, fetchLines(report.Fetch, colorize))
				}
				writeLines(out, renderSectionHeader("Merged dataset", colorize))
				writeMergeSummary(out, report.Merge)
				writeTrainingSummary(out, report, colorize)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.BaseModel, "base-model", "", "Path to the pretrained .pt checkpoint to fine-tune")
	cmd.Flags().BoolVar(&opts.SkipDownload, "skip-download", false, "Reuse raw datasets already on disk")
	_ = cmd.MarkFlagRequired("base-model")
	return cmd
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download and extract configured datasets that are not yet present",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(false, func(runner *pipeline.Runner) error {
				result, err := runner.Fetch(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				writeLines(out, fetchLines(result, shouldColorize(out)))
				if len(result.Failed) > 0 {
					fmt.Fprintf(out, "%d dataset(s) failed; rerun fetch to retry after removing their directories\n", len(result.Failed))
				}
				return nil
			})
		},
	}
}

func newPrepareCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Rebuild the merged dataset from downloaded datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(false, func(runner *pipeline.Runner) error {
				summary, err := runner.Prepare(cmd.Context())
				if err != nil {
					return err
				}
				writeMergeSummary(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
}

func newTrainCommand(ctx *commandContext) *cobra.Command {
	var baseModel string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fine-tune and export using the merged dataset already on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(true, func(runner *pipeline.Runner) error {
				report, err := runner.Train(cmd.Context(), baseModel)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				writeTrainingSummary(out, report, shouldColorize(out))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&baseModel, "base-model", "", "Path to the pretrained .pt checkpoint to fine-tune")
	_ = cmd.MarkFlagRequired("base-model")
	return cmd
}
