package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"visiontune/internal/config"
	"visiontune/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	outputDir  string
	configPath string
}

// setupCLITestEnv writes a config whose datasets are served from archives.
// A nil archive is served as a 404.
func setupCLITestEnv(t *testing.T, archives map[string][]byte) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".zip")
		data, ok := archives[name]
		if !ok || data == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)

	var datasets []config.Dataset
	for name := range archives {
		datasets = append(datasets, config.Dataset{Name: name, URL: server.URL + "/" + name + ".zip"})
	}

	env := &cliTestEnv{
		baseDir:    base,
		outputDir:  filepath.Join(base, "output"),
		configPath: filepath.Join(base, "config.toml"),
	}
	writeTestConfig(t, env.configPath, env.outputDir, datasets)
	return env
}

func writeTestConfig(t *testing.T, path, outputDir string, datasets []config.Dataset) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\noutput_dir = %q\n\n", outputDir)
	b.WriteString("[train]\ndevice = \"cpu\"\n\n")
	b.WriteString("[logging]\nlevel = \"error\"\n\n")
	for _, ds := range datasets {
		fmt.Fprintf(&b, "[[datasets]]\nname = %q\nurl = %q\n\n", ds.Name, ds.URL)
	}
	testsupport.WriteFile(t, path, b.String())
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath}, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func phoneArchive(t *testing.T) []byte {
	t.Helper()
	return testsupport.ZipDataset(t, testsupport.DatasetFixture{
		Classes: []string{"Cell Phone", "pen"},
		Files: map[string]string{
			"train/images/a.jpg": "img-a",
			"train/labels/a.txt": "0 0.5 0.5 0.2 0.2\n1 0.1 0.1 0.1 0.1\n",
			"valid/images/b.jpg": "img-b",
			"valid/labels/b.txt": "0 0.4 0.4 0.2 0.2\n",
		},
	})
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s: %v", path, err)
	}
}
