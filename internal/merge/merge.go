package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"visiontune/internal/config"
	"visiontune/internal/dataset"
	"visiontune/internal/fileutil"
	"visiontune/internal/logging"
	"visiontune/internal/taxonomy"
)

// Skip reasons recorded for datasets that contribute nothing.
const (
	SkipMissing     = "not downloaded"
	SkipNoManifest  = "no data.yaml"
	SkipBadManifest = "unreadable data.yaml"
)

// DatasetSummary reports what one source contributed.
type DatasetSummary struct {
	Name       string
	Skipped    bool
	SkipReason string
	Train      dataset.ConvertStats
	Valid      dataset.ConvertStats
}

// Summary reports the merged dataset.
type Summary struct {
	OutputDir    string
	ManifestPath string
	Datasets     []DatasetSummary
	Train        dataset.ConvertStats
	Valid        dataset.ConvertStats
}

// TrainLabels is the number of label files written to the train split.
func (s Summary) TrainLabels() int { return s.Train.LabelsWritten }

// ValidLabels is the number of label files written to the valid split.
func (s Summary) ValidLabels() int { return s.Valid.LabelsWritten }

// Merger converts raw datasets into one YOLO-format dataset.
type Merger struct {
	tax       *taxonomy.Taxonomy
	splitMode string
	logger    *slog.Logger
}

// New constructs a merger for the given taxonomy and split mode. An empty
// split mode means mirror.
func New(tax *taxonomy.Taxonomy, splitMode string, logger *slog.Logger) (*Merger, error) {
	if tax == nil {
		return nil, errors.New("merge: taxonomy is required")
	}
	switch splitMode {
	case "":
		splitMode = config.SplitModeMirror
	case config.SplitModeMirror, config.SplitModePreserve:
	default:
		return nil, fmt.Errorf("merge: unsupported split mode %q", splitMode)
	}
	return &Merger{
		tax:       tax,
		splitMode: splitMode,
		logger:    logging.NewComponentLogger(logger, "merge"),
	}, nil
}

// NewFromConfig builds the taxonomy and merger described by cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Merger, error) {
	if cfg == nil {
		return nil, errors.New("merge: config is required")
	}
	tax, err := taxonomy.New(cfg.Taxonomy.Classes, cfg.Taxonomy.Synonyms)
	if err != nil {
		return nil, err
	}
	return New(tax, cfg.Merge.SplitMode, logger)
}

// sourceSplits returns which source split folders feed the given output split.
func (m *Merger) sourceSplits(outSplit string) []string {
	if m.splitMode == config.SplitModePreserve {
		if outSplit == dataset.SplitTrain {
			return []string{dataset.SplitTrain}
		}
		return []string{dataset.SplitValid, dataset.SplitTest}
	}
	return dataset.SourceSplits
}

// Prepare rebuilds outDir from the datasets found under rawDir. Any previous
// content of outDir is removed first. Datasets that were never downloaded or
// carry no manifest are skipped.
func (m *Merger) Prepare(ctx context.Context, rawDir, outDir string, datasets []config.Dataset) (Summary, error) {
	summary := Summary{
		OutputDir:    outDir,
		ManifestPath: filepath.Join(outDir, dataset.ManifestName),
	}
	if err := fileutil.ResetDir(outDir); err != nil {
		return summary, fmt.Errorf("reset merged dataset: %w", err)
	}

	for _, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result, err := m.prepareOne(ctx, filepath.Join(rawDir, ds.Name), outDir, ds.Name)
		if err != nil {
			return summary, fmt.Errorf("prepare %s: %w", ds.Name, err)
		}
		summary.Datasets = append(summary.Datasets, result)
		summary.Train.Add(result.Train)
		summary.Valid.Add(result.Valid)
	}

	if err := m.writeManifest(outDir); err != nil {
		return summary, err
	}

	m.logger.Info("merged dataset ready",
		logging.String(logging.FieldPath, outDir),
		logging.Int("train_images", summary.Train.ImagesCopied),
		logging.Int("train_labels", summary.TrainLabels()),
		logging.Int("valid_images", summary.Valid.ImagesCopied),
		logging.Int("valid_labels", summary.ValidLabels()),
	)
	return summary, nil
}

func (m *Merger) prepareOne(ctx context.Context, dir, outDir, name string) (DatasetSummary, error) {
	result := DatasetSummary{Name: name}
	logger := m.logger.With(logging.String(logging.FieldDataset, name))

	if !fileutil.IsDir(dir) {
		result.Skipped, result.SkipReason = true, SkipMissing
		logger.Info("dataset not downloaded; skipping", logging.String(logging.FieldPath, dir))
		return result, nil
	}

	src, err := dataset.Open(name, dir)
	if err != nil {
		if errors.Is(err, dataset.ErrManifestNotFound) {
			result.Skipped, result.SkipReason = true, SkipNoManifest
			logger.Info("no data.yaml found; skipping", logging.String(logging.FieldPath, dir))
			return result, nil
		}
		result.Skipped, result.SkipReason = true, SkipBadManifest
		logging.WarnWithContext(logger, "dataset manifest unreadable", "manifest_invalid",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-download the dataset by removing its directory"),
			logging.String(logging.FieldImpact, "dataset excluded from training"),
		)
		return result, nil
	}
	logger.Debug("dataset manifest loaded",
		logging.String(logging.FieldPath, src.Manifest.Path),
		logging.Int("source_classes", len(src.Manifest.Classes)),
	)

	for _, outSplit := range []string{dataset.SplitTrain, dataset.SplitValid} {
		stats, err := src.ConvertInto(ctx, outDir, outSplit, m.sourceSplits(outSplit), m.tax)
		if err != nil {
			return result, err
		}
		if outSplit == dataset.SplitTrain {
			result.Train = stats
		} else {
			result.Valid = stats
		}
		logger.Info("dataset converted",
			logging.String(logging.FieldSplit, outSplit),
			logging.Int("images", stats.ImagesCopied),
			logging.Int("labels", stats.LabelsWritten),
			logging.Int("annotations_kept", stats.Annotations.Kept),
			logging.Int("annotations_dropped", stats.Annotations.Dropped()),
		)
	}
	return result, nil
}

type mergedManifest struct {
	Names map[int]string `yaml:"names"`
	NC    int            `yaml:"nc"`
	Path  string         `yaml:"path"`
	Train string         `yaml:"train"`
	Val   string         `yaml:"val"`
}

func (m *Merger) writeManifest(outDir string) error {
	classes := m.tax.Classes()
	names := make(map[int]string, len(classes))
	for i, name := range classes {
		names[i] = name
	}
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve merged dataset path: %w", err)
	}
	data, err := yaml.Marshal(mergedManifest{
		Names: names,
		NC:    len(classes),
		Path:  abs,
		Train: dataset.SplitTrain + "/images",
		Val:   dataset.SplitValid + "/images",
	})
	if err != nil {
		return fmt.Errorf("encode merged manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(outDir, dataset.ManifestName), data, 0o644); err != nil {
		return fmt.Errorf("write merged manifest: %w", err)
	}
	return nil
}
