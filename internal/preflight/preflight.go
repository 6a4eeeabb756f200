package preflight

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"visiontune/internal/config"
	"visiontune/internal/deps"
	"visiontune/internal/fileutil"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Advisory results are shown but never fail a run.
	Advisory bool
}

// Options selects the checks that apply to a run.
type Options struct {
	// BaseModel is checked when non-empty.
	BaseModel string
	// SkipDownload disables dataset host probes.
	SkipDownload bool
	// SkipTrainer disables the trainer binary check, for fetch or prepare only runs.
	SkipTrainer bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckFreeSpace("Free space", cfg.Paths.OutputDir, MinFreeBytes))

	if !opts.SkipTrainer {
		for _, status := range deps.CheckBinaries(deps.TrainerRequirements(cfg.TrainerBinary(), cfg.Train.Device)) {
			results = append(results, fromStatus(status))
		}
	}

	if strings.TrimSpace(opts.BaseModel) != "" {
		results = append(results, CheckBaseModel(opts.BaseModel))
	}

	if !opts.SkipDownload {
		var pending []config.Dataset
		for _, ds := range cfg.Datasets {
			if !fileutil.Exists(filepath.Join(cfg.RawDatasetsDir(), ds.Name)) {
				pending = append(pending, ds)
			}
		}
		results = append(results, CheckDatasetHosts(ctx, pending)...)
	}

	return results
}

// Failed returns the results that should stop a run.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Advisory {
			failed = append(failed, r)
		}
	}
	return failed
}

// Summarize renders failed results as a single error message.
func Summarize(failed []Result) string {
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return strings.Join(parts, "; ")
}

func fromStatus(status deps.Status) Result {
	detail := status.Detail
	if status.Available && detail == "" {
		detail = status.Command
	}
	return Result{
		Name:     status.Name,
		Passed:   status.Available,
		Detail:   detail,
		Advisory: status.Optional,
	}
}
