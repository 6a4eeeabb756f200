package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"visiontune/internal/config"
	"visiontune/internal/fetch"
	"visiontune/internal/fileutil"
	"visiontune/internal/history"
	"visiontune/internal/logging"
	"visiontune/internal/merge"
	"visiontune/internal/notifications"
	"visiontune/internal/preflight"
	"visiontune/internal/services"
	"visiontune/internal/trainer"
)

// Stage names used in logs and errors.
const (
	StagePreflight = "preflight"
	StageFetch     = "fetch"
	StagePrepare   = "prepare"
	StageTrain     = "train"
	StageExport    = "export"
)

// Fetcher downloads datasets.
type Fetcher interface {
	Fetch(ctx context.Context, root string, datasets []config.Dataset) (fetch.Result, error)
}

// Preparer builds the merged dataset.
type Preparer interface {
	Prepare(ctx context.Context, rawDir, outDir string, datasets []config.Dataset) (merge.Summary, error)
}

// PreflightFunc runs readiness checks.
type PreflightFunc func(ctx context.Context, cfg *config.Config, opts preflight.Options) []preflight.Result

// Options controls a full run.
type Options struct {
	BaseModel    string
	SkipDownload bool
}

// Report summarizes what a run produced.
type Report struct {
	RunID      string
	Preflight  []preflight.Result
	Fetch      fetch.Result
	Merge      merge.Summary
	Training   trainer.Result
	ExportPath string
	Duration   time.Duration
}

// Option customizes a Runner.
type Option func(*Runner)

// WithFetcher replaces the dataset fetcher.
func WithFetcher(f Fetcher) Option { return func(r *Runner) { r.fetcher = f } }

// WithPreparer replaces the dataset merger.
func WithPreparer(p Preparer) Option { return func(r *Runner) { r.preparer = p } }

// WithTrainer replaces the trainer client.
func WithTrainer(t trainer.Client) Option { return func(r *Runner) { r.trainer = t } }

// WithHistory records runs in store.
func WithHistory(store *history.Store) Option { return func(r *Runner) { r.history = store } }

// WithNotifier replaces the run outcome notifier.
func WithNotifier(n notifications.Service) Option { return func(r *Runner) { r.notifier = n } }

// WithPreflight replaces the readiness checks.
func WithPreflight(fn PreflightFunc) Option { return func(r *Runner) { r.preflight = fn } }

// Runner executes pipeline stages against one output directory.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	fetcher   Fetcher
	preparer  Preparer
	trainer   trainer.Client
	history   *history.Store
	notifier  notifications.Service
	preflight PreflightFunc
	newID     func() string
}

// New constructs a runner. Components not supplied through options are built
// from cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("pipeline requires config")
	}
	r := &Runner{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		preflight: preflight.RunAll,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fetcher == nil {
		r.fetcher = fetch.NewFromConfig(cfg, logger)
	}
	if r.preparer == nil {
		m, err := merge.NewFromConfig(cfg, logger)
		if err != nil {
			return nil, err
		}
		r.preparer = m
	}
	if r.trainer == nil {
		r.trainer = trainer.NewFromConfig(cfg, logger)
	}
	if r.notifier == nil {
		r.notifier = notifications.NewService(cfg)
	}
	return r, nil
}

// Run executes the full pipeline and records it in history.
func (r *Runner) Run(ctx context.Context, opts Options) (Report, error) {
	if strings.TrimSpace(opts.BaseModel) == "" {
		return Report{}, services.Wrap(services.ErrValidation, "pipeline", "", "--base-model is required", nil)
	}
	return r.runRecorded(ctx, opts, func(ctx context.Context, report *Report) error {
		if err := r.preflightStage(ctx, report, preflight.Options{BaseModel: opts.BaseModel, SkipDownload: opts.SkipDownload}); err != nil {
			return err
		}
		if opts.SkipDownload {
			r.logger.Info("skipping dataset download", logging.String(logging.FieldRunID, report.RunID))
		} else if err := r.fetchStage(ctx, report); err != nil {
			return err
		}
		if err := r.prepareStage(ctx, report); err != nil {
			return err
		}
		return r.trainAndExport(ctx, report, opts.BaseModel)
	})
}

// Train fine-tunes and exports using the merged dataset already on disk.
func (r *Runner) Train(ctx context.Context, baseModel string) (Report, error) {
	if strings.TrimSpace(baseModel) == "" {
		return Report{}, services.Wrap(services.ErrValidation, "pipeline", "", "--base-model is required", nil)
	}
	opts := Options{BaseModel: baseModel, SkipDownload: true}
	return r.runRecorded(ctx, opts, func(ctx context.Context, report *Report) error {
		if err := r.preflightStage(ctx, report, preflight.Options{BaseModel: baseModel, SkipDownload: true}); err != nil {
			return err
		}
		if !fileutil.Exists(r.cfg.MergedManifestPath()) {
			return services.Wrap(services.ErrNotFound, "pipeline", "train", "merged dataset not found at "+r.cfg.MergedManifestPath()+"; run prepare first", nil)
		}
		return r.trainAndExport(ctx, report, baseModel)
	})
}

// Fetch runs only the download stage.
func (r *Runner) Fetch(ctx context.Context) (fetch.Result, error) {
	var report Report
	err := r.withLock(ctx, func(ctx context.Context) error {
		report.RunID = r.newID()
		return r.fetchStage(logging.WithRunID(ctx, report.RunID), &report)
	})
	return report.Fetch, err
}

// Prepare runs only the merge stage.
func (r *Runner) Prepare(ctx context.Context) (merge.Summary, error) {
	var report Report
	err := r.withLock(ctx, func(ctx context.Context) error {
		report.RunID = r.newID()
		return r.prepareStage(logging.WithRunID(ctx, report.RunID), &report)
	})
	return report.Merge, err
}

func (r *Runner) withLock(ctx context.Context, fn func(context.Context) error) error {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return err
	}
	lock, err := acquireLock(r.cfg.LockPath())
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.release(); err != nil {
			r.logger.Warn("failed to release output lock",
				logging.String(logging.FieldPath, lock.path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.String(logging.FieldErrorHint, "remove the lock file if no run is active"),
			)
		}
	}()
	return fn(ctx)
}

func (r *Runner) runRecorded(ctx context.Context, opts Options, body func(context.Context, *Report) error) (Report, error) {
	var report Report
	err := r.withLock(ctx, func(ctx context.Context) error {
		start := time.Now()
		report.RunID = r.newID()
		ctx = logging.WithRunID(ctx, report.RunID)
		logger := logging.WithContext(ctx, r.logger)

		if r.history != nil {
			if n, err := r.history.MarkInterrupted(ctx, "run interrupted before completion"); err != nil {
				logger.Debug("could not mark interrupted runs", logging.Error(err))
			} else if n > 0 {
				logger.Info("marked interrupted runs as failed", logging.Int64("count", n))
			}
			if _, err := r.history.StartRun(ctx, history.Run{
				ID:           report.RunID,
				BaseModel:    opts.BaseModel,
				OutputDir:    r.cfg.Paths.OutputDir,
				SkipDownload: opts.SkipDownload,
			}); err != nil {
				return fmt.Errorf("record run start: %w", err)
			}
		}

		logger.Info("run started",
			logging.String("base_model", opts.BaseModel),
			logging.String(logging.FieldPath, r.cfg.Paths.OutputDir),
			logging.Bool("skip_download", opts.SkipDownload),
		)
		runErr := body(ctx, &report)
		report.Duration = time.Since(start)
		r.finishHistory(ctx, logger, &report, runErr)
		r.notify(ctx, logger, &report, runErr)

		if runErr != nil {
			return runErr
		}
		logger.Info("run completed",
			logging.String("export_path", report.ExportPath),
			logging.Duration("elapsed", report.Duration),
		)
		return nil
	})
	return report, err
}

func (r *Runner) finishHistory(ctx context.Context, logger *slog.Logger, report *Report, runErr error) {
	if r.history == nil {
		return
	}
	recordCtx := context.WithoutCancel(ctx)
	if len(report.Merge.Datasets) > 0 {
		if err := r.history.RecordDatasets(recordCtx, report.RunID, datasetRecords(report.Merge)); err != nil {
			logger.Warn("failed to record dataset history",
				logging.Error(err),
				logging.String(logging.FieldEventType, "history_write_failed"),
				logging.String(logging.FieldErrorHint, "check that the history database is writable"),
			)
		}
	}
	outcome := history.Outcome{
		TrainImages: report.Merge.Train.ImagesCopied,
		TrainLabels: report.Merge.TrainLabels(),
		ValidImages: report.Merge.Valid.ImagesCopied,
		ValidLabels: report.Merge.ValidLabels(),
		WeightsPath: report.Training.WeightsPath,
		ExportPath:  report.ExportPath,
		Err:         runErr,
	}
	if err := r.history.FinishRun(recordCtx, report.RunID, outcome); err != nil {
		logger.Warn("failed to record run outcome",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_write_failed"),
			logging.String(logging.FieldErrorHint, "check that the history database is writable"),
		)
	}
}

func (r *Runner) notify(ctx context.Context, logger *slog.Logger, report *Report, runErr error) {
	if errors.Is(runErr, context.Canceled) {
		return
	}
	notifyCtx := context.WithoutCancel(ctx)
	var err error
	if runErr != nil {
		err = r.notifier.NotifyRunFailed(notifyCtx, report.RunID, runErr)
	} else {
		err = r.notifier.NotifyRunCompleted(notifyCtx, notifications.RunSummary{
			RunID:       report.RunID,
			TrainImages: report.Merge.Train.ImagesCopied,
			ValidImages: report.Merge.Valid.ImagesCopied,
			ExportPath:  report.ExportPath,
			Duration:    report.Duration,
		})
	}
	if err != nil {
		logging.WarnWithContext(logger, "failed to send run notification", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "run outcome is still recorded in history"),
		)
	}
}

func datasetRecords(summary merge.Summary) []history.Dataset {
	records := make([]history.Dataset, 0, len(summary.Datasets))
	for _, ds := range summary.Datasets {
		records = append(records, history.Dataset{
			Name:               ds.Name,
			TrainImages:        ds.Train.ImagesCopied,
			TrainLabels:        ds.Train.LabelsWritten,
			ValidImages:        ds.Valid.ImagesCopied,
			ValidLabels:        ds.Valid.LabelsWritten,
			AnnotationsKept:    ds.Train.Annotations.Kept + ds.Valid.Annotations.Kept,
			AnnotationsDropped: ds.Train.Annotations.Dropped() + ds.Valid.Annotations.Dropped(),
			Skipped:            ds.Skipped,
			SkipReason:         ds.SkipReason,
		})
	}
	return records
}
