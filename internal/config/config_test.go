package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"visiontune/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	workDir := t.TempDir()
	t.Chdir(workDir)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "visiontune", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput, err := filepath.Abs("training_output")
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.RawDatasetsDir() != filepath.Join(cfg.Paths.OutputDir, "raw_datasets") {
		t.Fatalf("unexpected raw datasets dir: %q", cfg.RawDatasetsDir())
	}
	if cfg.MergedManifestPath() != filepath.Join(cfg.Paths.OutputDir, "merged_dataset", "data.yaml") {
		t.Fatalf("unexpected merged manifest path: %q", cfg.MergedManifestPath())
	}
}

func TestDefaultsMatchFineTuningConstants(t *testing.T) {
	cfg := config.Default()

	if len(cfg.Datasets) != 7 {
		t.Fatalf("expected 7 default datasets, got %d", len(cfg.Datasets))
	}
	if cfg.Datasets[0].Name != "phone_1" || cfg.Datasets[6].Name != "person_1" {
		t.Fatalf("unexpected dataset order: %+v", cfg.Datasets)
	}
	want := []string{"person", "phone", "material", "headphones"}
	for i, name := range want {
		if cfg.Taxonomy.Classes[i] != name {
			t.Fatalf("class %d = %q, want %q", i, cfg.Taxonomy.Classes[i], name)
		}
	}
	tr := cfg.Train
	if tr.Epochs != 50 || tr.ImageSize != 640 || tr.Batch != 16 || tr.Patience != 15 {
		t.Fatalf("unexpected train defaults: %+v", tr)
	}
	if tr.LR0 != 0.001 || tr.LRF != 0.01 || tr.WarmupEpochs != 3 || tr.Freeze != 10 {
		t.Fatalf("unexpected schedule defaults: %+v", tr)
	}
	if tr.Device != "0" || tr.RunName != "anticheat_finetuned" {
		t.Fatalf("unexpected device/run defaults: %+v", tr)
	}
	ex := cfg.Export
	if ex.Format != "onnx" || ex.ImageSize != 640 || !ex.Simplify || ex.Dynamic || ex.Opset != 17 {
		t.Fatalf("unexpected export defaults: %+v", ex)
	}
	if cfg.Merge.SplitMode != config.SplitModeMirror {
		t.Fatalf("unexpected split mode: %q", cfg.Merge.SplitMode)
	}
}

func TestLoadCustomConfigReplacesDatasets(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	content := `
[paths]
output_dir = "~/runs"

[[datasets]]
name = "local_phone"
url = "https://example.com/phone.zip"

[merge]
split_mode = "PRESERVE"

[train]
epochs = 5
device = "cpu"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config file to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "runs") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if len(cfg.Datasets) != 1 || cfg.Datasets[0].Name != "local_phone" {
		t.Fatalf("expected datasets to be replaced, got %+v", cfg.Datasets)
	}
	if cfg.Merge.SplitMode != config.SplitModePreserve {
		t.Fatalf("expected split mode to be lowercased, got %q", cfg.Merge.SplitMode)
	}
	if cfg.Train.Epochs != 5 || cfg.Train.Device != "cpu" {
		t.Fatalf("unexpected train overrides: %+v", cfg.Train)
	}
	if cfg.Train.Batch != 16 {
		t.Fatalf("expected untouched batch default, got %d", cfg.Train.Batch)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if len(cfg.Taxonomy.Synonyms) == 0 {
		t.Fatal("expected default synonyms when config omits them")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"no datasets", func(c *config.Config) { c.Datasets = nil }, "datasets"},
		{"path name", func(c *config.Config) { c.Datasets[0].Name = "../escape" }, "plain directory name"},
		{"duplicate name", func(c *config.Config) { c.Datasets[1].Name = c.Datasets[0].Name }, "duplicated"},
		{"bad url", func(c *config.Config) { c.Datasets[0].URL = "ftp://example.com/a.zip" }, "http(s)"},
		{"split mode", func(c *config.Config) { c.Merge.SplitMode = "shuffle" }, "merge.split_mode"},
		{"epochs", func(c *config.Config) { c.Train.Epochs = 0 }, "train.epochs"},
		{"freeze", func(c *config.Config) { c.Train.Freeze = -1 }, "train.freeze"},
		{"lr0", func(c *config.Config) { c.Train.LR0 = 0 }, "train.lr0"},
		{"lrf", func(c *config.Config) { c.Train.LRF = 2 }, "train.lrf"},
		{"opset", func(c *config.Config) { c.Export.Opset = 0 }, "export.opset"},
		{"export format", func(c *config.Config) { c.Export.Format = "pickle" }, "export.format"},
		{"ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "ntfy.sh/topic" }, "notifications.ntfy_topic"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"synonym target", func(c *config.Config) { c.Taxonomy.Synonyms["laptop"] = "computer" }, "taxonomy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(tempHome, "nested", "config.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if len(decoded.Datasets) != len(config.DefaultDatasets()) {
		t.Fatalf("sample lists %d datasets, defaults have %d", len(decoded.Datasets), len(config.DefaultDatasets()))
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Train.RunName != "anticheat_finetuned" {
		t.Fatalf("unexpected run name from sample: %q", cfg.Train.RunName)
	}
}

func TestSetOutputDir(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	if err := cfg.SetOutputDir(dir); err != nil {
		t.Fatalf("SetOutputDir returned error: %v", err)
	}
	if cfg.LockPath() != filepath.Join(dir, ".visiontune.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
	if err := cfg.SetOutputDir("  "); err == nil {
		t.Fatal("expected error for empty output dir")
	}
}
