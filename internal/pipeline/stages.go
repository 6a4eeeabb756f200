package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"visiontune/internal/logging"
	"visiontune/internal/preflight"
	"visiontune/internal/trainer"
)

// stage wraps fn with start, completion and failure logs.
func (r *Runner) stage(ctx context.Context, name string, fn func(context.Context, *slog.Logger) error) error {
	stageCtx := logging.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, r.logger)

	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	start := time.Now()
	if err := fn(stageCtx, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("stage cancelled", logging.String(logging.FieldEventType, "stage_cancelled"))
		} else {
			logging.ErrorWithContext(logger, "stage failed", "stage_failure",
				logging.Error(err),
				logging.Duration("elapsed", time.Since(start)),
			)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (r *Runner) preflightStage(ctx context.Context, report *Report, opts preflight.Options) error {
	return r.stage(ctx, StagePreflight, func(ctx context.Context, logger *slog.Logger) error {
		results := r.preflight(ctx, r.cfg, opts)
		report.Preflight = results
		for _, res := range results {
			switch {
			case res.Passed:
				logger.Debug("check passed", logging.String("check", res.Name), logging.String("detail", res.Detail))
			case res.Advisory:
				logging.WarnWithContext(logger, "advisory check failed", "preflight_advisory",
					logging.String("check", res.Name),
					logging.String("detail", res.Detail),
					logging.String(logging.FieldImpact, "run continues"),
				)
			}
		}
		if failed := preflight.Failed(results); len(failed) > 0 {
			return fmt.Errorf("preflight checks failed: %s", preflight.Summarize(failed))
		}
		return nil
	})
}

func (r *Runner) fetchStage(ctx context.Context, report *Report) error {
	return r.stage(ctx, StageFetch, func(ctx context.Context, logger *slog.Logger) error {
		result, err := r.fetcher.Fetch(ctx, r.cfg.RawDatasetsDir(), r.cfg.Datasets)
		report.Fetch = result
		if err != nil {
			return err
		}
		logger.Info("datasets fetched",
			logging.Int("downloaded", len(result.Downloaded)),
			logging.Int("present", len(result.Skipped)),
			logging.Int("failed", len(result.Failed)),
		)
		return nil
	})
}

func (r *Runner) prepareStage(ctx context.Context, report *Report) error {
	return r.stage(ctx, StagePrepare, func(ctx context.Context, logger *slog.Logger) error {
		summary, err := r.preparer.Prepare(ctx, r.cfg.RawDatasetsDir(), r.cfg.MergedDatasetDir(), r.cfg.Datasets)
		report.Merge = summary
		if err != nil {
			return err
		}
		if summary.Train.ImagesCopied == 0 {
			logging.WarnWithContext(logger, "merged dataset has no training images", "empty_dataset",
				logging.String(logging.FieldErrorHint, "run fetch and check the dataset URLs"),
				logging.String(logging.FieldImpact, "training will fail or produce an unusable model"),
			)
		}
		return nil
	})
}

func (r *Runner) trainAndExport(ctx context.Context, report *Report, baseModel string) error {
	req := trainer.Request{
		BaseModel:  baseModel,
		DataPath:   r.cfg.MergedManifestPath(),
		ProjectDir: r.cfg.Paths.OutputDir,
		Params:     trainer.ParamsFromConfig(r.cfg.Train),
	}
	err := r.stage(ctx, StageTrain, func(ctx context.Context, logger *slog.Logger) error {
		sampler := logging.NewProgressSampler(10)
		result, err := r.trainer.Train(ctx, req, func(p trainer.Progress) {
			if !sampler.ShouldLog(p.Percent(), StageTrain) {
				return
			}
			logger.Info("training progress",
				logging.Int(logging.FieldEpoch, p.Epoch),
				logging.Int(logging.FieldEpochTotal, p.Total),
				logging.Float64(logging.FieldPercent, p.Percent()),
			)
		})
		report.Training = result
		return err
	})
	if err != nil {
		return err
	}

	return r.stage(ctx, StageExport, func(ctx context.Context, logger *slog.Logger) error {
		out, err := r.trainer.Export(ctx, trainer.ExportRequest{
			Weights: report.Training.WeightsPath,
			Params:  trainer.ExportParamsFromConfig(r.cfg.Export),
		})
		if err != nil {
			return err
		}
		report.ExportPath = out
		logger.Info("exported model ready", logging.String(logging.FieldPath, out))
		return nil
	})
}
