package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, map[string][]byte{"phones": nil})

	out, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)
	requireContains(t, out, "Datasets: 1, classes: 4")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, err = runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	requireFile(t, target)

	out, err = runCLI(t, "--config", target, "--output-dir", filepath.Join(env.baseDir, "sample-out"), "config", "validate")
	if err != nil {
		t.Fatalf("validate sample config: %v", err)
	}
	requireContains(t, out, "Datasets: 7")
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCLI(t, "config", "init", "-p", target); err != nil {
		t.Fatalf("first init: %v", err)
	}
	_, err := runCLI(t, "config", "init", "-p", target)
	if err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("expected overwrite hint, got %v", err)
	}
	if _, err := runCLI(t, "config", "init", "-p", target, "--overwrite"); err != nil {
		t.Fatalf("init with overwrite: %v", err)
	}
}

func TestOutputDirFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t, map[string][]byte{"phones": nil})
	override := filepath.Join(env.baseDir, "elsewhere")

	out, err := env.run(t, "--output-dir", override, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Output directory: "+override)
	requireFile(t, filepath.Join(override, "logs"))
}

func TestInvalidLogFormatOverride(t *testing.T) {
	env := setupCLITestEnv(t, map[string][]byte{"phones": nil})

	_, err := env.run(t, "--log-format", "xml", "config", "validate")
	if err == nil || !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("expected logging.format error, got %v", err)
	}
}
