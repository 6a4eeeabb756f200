package dataset_test

import (
	"context"
	"path/filepath"
	"testing"

	"visiontune/internal/dataset"
	"visiontune/internal/taxonomy"
	"visiontune/internal/testsupport"
)

func TestConvertIntoSingleImage(t *testing.T) {
	raw := filepath.Join(t.TempDir(), "phone_1")
	testsupport.WriteDataset(t, raw, testsupport.DatasetFixture{
		Classes: []string{"Mobile Phone"},
		Files: map[string]string{
			"train/images/img1.jpg": "jpeg-bytes",
			"train/labels/img1.txt": "0 0.5 0.5 0.25 0.25\n",
		},
	})

	src, err := dataset.Open("phone_1", raw)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	out := t.TempDir()
	stats, err := src.ConvertInto(context.Background(), out, dataset.SplitTrain, dataset.SourceSplits, taxonomy.Default())
	if err != nil {
		t.Fatalf("ConvertInto returned error: %v", err)
	}
	if stats.ImagesCopied != 1 || stats.LabelsWritten != 1 || stats.Annotations.Kept != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	images := testsupport.ListFiles(t, filepath.Join(out, "train", "images"))
	if len(images) != 1 || images[0] != "phone_1_img1.jpg" {
		t.Fatalf("unexpected images: %v", images)
	}
	if got := testsupport.ReadFile(t, filepath.Join(out, "train", "images", "phone_1_img1.jpg")); got != "jpeg-bytes" {
		t.Fatalf("image content not copied: %q", got)
	}
	label := testsupport.ReadFile(t, filepath.Join(out, "train", "labels", "phone_1_img1.txt"))
	if label != "1 0.5 0.5 0.25 0.25" {
		t.Fatalf("unexpected label content: %q", label)
	}
}

func TestConvertIntoSkipsEmptyLabelsAndNonImages(t *testing.T) {
	raw := filepath.Join(t.TempDir(), "paper_1")
	testsupport.WriteDataset(t, raw, testsupport.DatasetFixture{
		Classes: []string{"keyboard", "notes"},
		Files: map[string]string{
			"valid/images/a.PNG":      "a",
			"valid/labels/a.txt":      "0 0.5 0.5 0.2 0.2\n5 0.1 0.1 0.1 0.1",
			"valid/images/b.jpeg":     "b",
			"valid/labels/b.txt":      "1 0.1 0.1 0.1 0.1\n1 0.2\n",
			"valid/images/c.jpg":      "c",
			"valid/images/readme.txt": "not an image",
		},
	})

	src, err := dataset.Open("paper_1", raw)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	out := t.TempDir()
	stats, err := src.ConvertInto(context.Background(), out, dataset.SplitValid, dataset.SourceSplits, taxonomy.Default())
	if err != nil {
		t.Fatalf("ConvertInto returned error: %v", err)
	}
	if stats.ImagesCopied != 3 {
		t.Fatalf("expected 3 images copied, got %d", stats.ImagesCopied)
	}
	if stats.LabelsWritten != 1 {
		t.Fatalf("expected 1 label written, got %d", stats.LabelsWritten)
	}
	want := dataset.AnnotationCounts{Kept: 1, Malformed: 1, OutOfRange: 1, Unmapped: 1}
	if stats.Annotations != want {
		t.Fatalf("annotations = %+v, want %+v", stats.Annotations, want)
	}
	labels := testsupport.ListFiles(t, filepath.Join(out, "valid", "labels"))
	if len(labels) != 1 || labels[0] != "paper_1_b.txt" {
		t.Fatalf("unexpected labels: %v", labels)
	}
	if got := testsupport.ReadFile(t, filepath.Join(out, "valid", "labels", "paper_1_b.txt")); got != "2 0.1 0.1 0.1 0.1" {
		t.Fatalf("unexpected label content: %q", got)
	}
}

func TestOpenNestedExportUsesManifestDir(t *testing.T) {
	raw := filepath.Join(t.TempDir(), "headphones_1")
	testsupport.WriteDataset(t, raw, testsupport.DatasetFixture{
		Classes:     []string{"headset"},
		ManifestDir: "export",
		Files: map[string]string{
			"export/train/images/h.jpg": "h",
			"export/train/labels/h.txt": "0 0.5 0.5 0.5 0.5",
		},
	})

	src, err := dataset.Open("headphones_1", raw)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if src.Base != filepath.Join(raw, "export") {
		t.Fatalf("unexpected base: %q", src.Base)
	}
	out := t.TempDir()
	stats, err := src.ConvertInto(context.Background(), out, dataset.SplitTrain, dataset.SourceSplits, taxonomy.Default())
	if err != nil {
		t.Fatalf("ConvertInto returned error: %v", err)
	}
	if stats.LabelsWritten != 1 {
		t.Fatalf("expected nested label to be converted, got %+v", stats)
	}
	if got := testsupport.ReadFile(t, filepath.Join(out, "train", "labels", "headphones_1_h.txt")); got != "3 0.5 0.5 0.5 0.5" {
		t.Fatalf("unexpected label: %q", got)
	}
}

func TestConvertIntoHonorsCancellation(t *testing.T) {
	raw := filepath.Join(t.TempDir(), "person_1")
	testsupport.WriteDataset(t, raw, testsupport.DatasetFixture{
		Classes: []string{"person"},
		Files:   map[string]string{"train/images/p.jpg": "p"},
	})
	src, err := dataset.Open("person_1", raw)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.ConvertInto(ctx, t.TempDir(), dataset.SplitTrain, dataset.SourceSplits, taxonomy.Default()); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestIsImage(t *testing.T) {
	for name, want := range map[string]bool{"a.jpg": true, "b.JPEG": true, "c.png": true, "d.gif": false, "e": false} {
		if got := dataset.IsImage(name); got != want {
			t.Fatalf("IsImage(%q) = %v, want %v", name, got, want)
		}
	}
}
