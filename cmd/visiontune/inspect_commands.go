package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"visiontune/internal/fileutil"
	"visiontune/internal/preflight"
	"visiontune/internal/taxonomy"
)

func newClassesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List canonical classes and the labels that map onto them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tax, err := taxonomy.New(cfg.Taxonomy.Classes, cfg.Taxonomy.Synonyms)
			if err != nil {
				return err
			}
			synonyms := tax.Synonyms()
			classes := tax.Classes()
			rows := make([][]string, 0, len(classes))
			for i, name := range classes {
				rows = append(rows, []string{itoa(i), name, strings.Join(synonyms[name], ", ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{right("Index"), left("Class"), left("Labels")}, rows, nil))
			return nil
		},
	}
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var opts preflight.Options

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the environment is ready for a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg, opts)
			writeLines(out, renderSectionHeader("Preflight", colorize))
			writeLines(out, preflightLines(results, colorize))

			writeLines(out, renderSectionHeader("Datasets", colorize))
			for _, ds := range cfg.Datasets {
				kind, message := statusInfo, "pending download"
				if fileutil.Exists(filepath.Join(cfg.RawDatasetsDir(), ds.Name)) {
					kind, message = statusOK, "downloaded"
				}
				fmt.Fprintln(out, renderStatusLine(ds.Name, kind, message, colorize))
			}
			kind, message := statusInfo, "not prepared"
			if fileutil.Exists(cfg.MergedManifestPath()) {
				kind, message = statusOK, cfg.MergedManifestPath()
			}
			fmt.Fprintln(out, renderStatusLine("Merged dataset", kind, message, colorize))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed: %s", len(failed), preflight.Summarize(failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.BaseModel, "base-model", "", "Also check this base model checkpoint")
	cmd.Flags().BoolVar(&opts.SkipDownload, "skip-download", false, "Skip dataset host reachability probes")
	return cmd
}
