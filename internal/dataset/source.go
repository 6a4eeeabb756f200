package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"visiontune/internal/fileutil"
)

// Split folder names used by YOLO-format exports and the merged dataset.
const (
	SplitTrain = "train"
	SplitValid = "valid"
	SplitTest  = "test"
)

// SourceSplits lists the split folders scanned in a raw dataset, in order.
var SourceSplits = []string{SplitTrain, SplitValid, SplitTest}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Source is a downloaded dataset with its manifest resolved.
type Source struct {
	Name     string
	Dir      string
	Manifest Manifest
	// Base is the directory holding the split folders.
	Base string
}

// Open locates and parses the manifest of the dataset in dir.
func Open(name, dir string) (*Source, error) {
	path, err := FindManifest(dir)
	if err != nil {
		return nil, err
	}
	manifest, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return &Source{
		Name:     name,
		Dir:      dir,
		Manifest: manifest,
		Base:     splitBase(dir, filepath.Dir(path)),
	}, nil
}

// splitBase prefers the dataset root; exports nested one level deeper keep
// their split folders next to the manifest.
func splitBase(root, manifestDir string) string {
	for _, split := range SourceSplits {
		if fileutil.IsDir(filepath.Join(root, split, "images")) {
			return root
		}
	}
	return manifestDir
}

// ConvertStats reports the result of converting one source into one output split.
type ConvertStats struct {
	ImagesCopied  int
	LabelsWritten int
	Annotations   AnnotationCounts
}

// Add accumulates other into s.
func (s *ConvertStats) Add(other ConvertStats) {
	s.ImagesCopied += other.ImagesCopied
	s.LabelsWritten += other.LabelsWritten
	s.Annotations.Add(other.Annotations)
}

// ConvertInto copies every image from the given source splits into
// <outDir>/<outSplit>/images, prefixed with the dataset name, and writes the
// remapped label next to it in <outDir>/<outSplit>/labels. A label file is
// written only when at least one annotation survives.
func (s *Source) ConvertInto(ctx context.Context, outDir, outSplit string, sourceSplits []string, n Normalizer) (ConvertStats, error) {
	var stats ConvertStats

	imagesOut := filepath.Join(outDir, outSplit, "images")
	labelsOut := filepath.Join(outDir, outSplit, "labels")
	for _, dir := range []string{imagesOut, labelsOut} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return stats, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	for _, split := range sourceSplits {
		imgDir := filepath.Join(s.Base, split, "images")
		lblDir := filepath.Join(s.Base, split, "labels")

		names, err := listImages(imgDir)
		if err != nil {
			return stats, err
		}
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			if err := fileutil.CopyFile(filepath.Join(imgDir, name), filepath.Join(imagesOut, s.prefixed(name))); err != nil {
				return stats, fmt.Errorf("copy image %s: %w", name, err)
			}
			stats.ImagesCopied++

			labelName := strings.TrimSuffix(name, filepath.Ext(name)) + ".txt"
			written, counts, err := s.rewriteLabel(filepath.Join(lblDir, labelName), filepath.Join(labelsOut, s.prefixed(labelName)), n)
			if err != nil {
				return stats, err
			}
			stats.Annotations.Add(counts)
			if written {
				stats.LabelsWritten++
			}
		}
	}
	return stats, nil
}

func (s *Source) prefixed(name string) string {
	return s.Name + "_" + name
}

func (s *Source) rewriteLabel(src, dst string, n Normalizer) (bool, AnnotationCounts, error) {
	file, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return false, AnnotationCounts{}, nil
		}
		return false, AnnotationCounts{}, fmt.Errorf("open label %s: %w", src, err)
	}
	defer file.Close()

	lines, counts, err := RemapLabels(file, s.Manifest.Classes, n)
	if err != nil {
		return false, counts, fmt.Errorf("read label %s: %w", src, err)
	}
	if len(lines) == 0 {
		return false, counts, nil
	}
	if err := os.WriteFile(dst, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return false, counts, fmt.Errorf("write label %s: %w", dst, err)
	}
	return true, counts, nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsImage(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
