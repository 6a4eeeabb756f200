package dataset_test

import (
	"errors"
	"path/filepath"
	"testing"

	"visiontune/internal/dataset"
	"visiontune/internal/testsupport"
)

func TestLoadManifestList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.yaml")
	testsupport.WriteFile(t, path, "nc: 2\nnames: ['phone', 'paper']\n")

	m, err := dataset.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if len(m.Classes) != 2 || m.Classes[0] != "phone" || m.Classes[1] != "paper" {
		t.Fatalf("unexpected classes: %v", m.Classes)
	}
}

func TestLoadManifestMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.yaml")
	testsupport.WriteFile(t, path, "names:\n  2: book\n  0: face\n")

	m, err := dataset.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	want := []string{"face", "", "book"}
	if len(m.Classes) != len(want) {
		t.Fatalf("unexpected classes: %q", m.Classes)
	}
	for i := range want {
		if m.Classes[i] != want[i] {
			t.Fatalf("class %d = %q, want %q", i, m.Classes[i], want[i])
		}
	}
}

func TestLoadManifestQuotedMappingKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.yaml")
	testsupport.WriteFile(t, path, "names:\n  '1': phone\n  \"0\": face\n")

	m, err := dataset.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if len(m.Classes) != 2 || m.Classes[0] != "face" || m.Classes[1] != "phone" {
		t.Fatalf("unexpected classes: %q", m.Classes)
	}
}

func TestLoadManifestRejectsNonNumericKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.yaml")
	testsupport.WriteFile(t, path, "names:\n  first: face\n")

	if _, err := dataset.LoadManifest(path); err == nil {
		t.Fatal("expected error for non-numeric class index")
	}
}

func TestLoadManifestWithoutNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.yaml")
	testsupport.WriteFile(t, path, "train: train/images\n")

	m, err := dataset.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if len(m.Classes) != 0 {
		t.Fatalf("expected no classes, got %v", m.Classes)
	}
}

func TestLoadManifestRejectsScalarNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.yaml")
	testsupport.WriteFile(t, path, "names: phone\n")

	if _, err := dataset.LoadManifest(path); err == nil {
		t.Fatal("expected error for scalar names")
	}
}

func TestFindManifestPrefersShallowest(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "a", "data.yaml"), "names: [nested]\n")
	testsupport.WriteFile(t, filepath.Join(dir, "data.yaml"), "names: [root]\n")

	path, err := dataset.FindManifest(dir)
	if err != nil {
		t.Fatalf("FindManifest returned error: %v", err)
	}
	if path != filepath.Join(dir, "data.yaml") {
		t.Fatalf("expected root manifest, got %q", path)
	}
}

func TestFindManifestNested(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "b", "data.yaml"), "names: [b]\n")
	testsupport.WriteFile(t, filepath.Join(dir, "a", "deep", "data.yaml"), "names: [a]\n")

	path, err := dataset.FindManifest(dir)
	if err != nil {
		t.Fatalf("FindManifest returned error: %v", err)
	}
	if path != filepath.Join(dir, "a", "deep", "data.yaml") {
		t.Fatalf("expected lexically first subtree, got %q", path)
	}
}

func TestFindManifestMissing(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "train", "images", "a.jpg"), "img")

	if _, err := dataset.FindManifest(dir); !errors.Is(err, dataset.ErrManifestNotFound) {
		t.Fatalf("expected ErrManifestNotFound, got %v", err)
	}
	if _, err := dataset.FindManifest(filepath.Join(dir, "missing")); !errors.Is(err, dataset.ErrManifestNotFound) {
		t.Fatalf("expected ErrManifestNotFound for missing dir, got %v", err)
	}
}
