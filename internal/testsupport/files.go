package testsupport

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile returns the content of path or fails the test.
func ReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// ListFiles returns the sorted file names directly inside dir. A missing
// directory yields nil.
func ListFiles(t testing.TB, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read dir %s: %v", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

// DatasetFixture describes a synthetic YOLO-format export.
type DatasetFixture struct {
	// Classes is written as a names list in data.yaml.
	Classes []string
	// Manifest overrides the generated data.yaml content when non-empty.
	Manifest string
	// ManifestDir places data.yaml in a subdirectory.
	ManifestDir string
	// NoManifest omits data.yaml entirely.
	NoManifest bool
	// Files maps paths relative to the dataset root to their content,
	// e.g. "train/images/a.jpg" and "train/labels/a.txt".
	Files map[string]string
}

// Contents returns every file of the fixture keyed by relative path.
func (f DatasetFixture) Contents() map[string]string {
	out := make(map[string]string, len(f.Files)+1)
	for name, content := range f.Files {
		out[name] = content
	}
	if !f.NoManifest {
		manifest := f.Manifest
		if manifest == "" {
			quoted := make([]string, len(f.Classes))
			for i, class := range f.Classes {
				quoted[i] = fmt.Sprintf("%q", class)
			}
			manifest = fmt.Sprintf("train: ../train/images\nval: ../valid/images\nnc: %d\nnames: [%s]\n", len(f.Classes), strings.Join(quoted, ", "))
		}
		out[filepath.ToSlash(filepath.Join(f.ManifestDir, "data.yaml"))] = manifest
	}
	return out
}

// WriteDataset materializes the fixture under dir.
func WriteDataset(t testing.TB, dir string, f DatasetFixture) {
	t.Helper()
	for name, content := range f.Contents() {
		WriteFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
	}
}

// ZipDataset returns the fixture packed as a zip archive.
func ZipDataset(t testing.TB, f DatasetFixture) []byte {
	t.Helper()
	return BuildZip(t, f.Contents())
}

// BuildZip packs the given entries into an in-memory zip archive.
func BuildZip(t testing.TB, entries map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}
