package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")

	content := []byte("not really a jpeg")
	if err := os.WriteFile(src, content, 0o600); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("mode = %o, want 644", info.Mode().Perm())
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestResetDirRemovesContents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "merged")
	if err := os.MkdirAll(filepath.Join(dir, "train", "images"), 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "train", "images", "old.jpg")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ResetDir(dir); err != nil {
		t.Fatalf("ResetDir: %v", err)
	}
	if Exists(stale) {
		t.Fatal("expected stale file to be removed")
	}
	if !IsDir(dir) {
		t.Fatal("expected directory to be recreated")
	}
	if err := ResetDir(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.yaml")
	if err := WriteFileAtomic(path, []byte("nc: 4\n"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "nc: 4\n" {
		t.Fatalf("unexpected content %q", got)
	}
	if Exists(path + ".tmp") {
		t.Fatal("temp file left behind")
	}
}
