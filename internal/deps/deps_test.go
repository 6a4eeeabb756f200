package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for absolute path dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank command status: %#v", results[2])
	}
}

func TestCheckBinariesResolvesFromPath(t *testing.T) {
	binDir := t.TempDir()
	stub := filepath.Join(binDir, "yolo")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	results := CheckBinaries([]Requirement{{Name: "yolo", Command: "yolo"}})
	if !results[0].Available || results[0].Detail != stub {
		t.Fatalf("expected resolved path %q, got %#v", stub, results[0])
	}
}

func TestTrainerRequirements(t *testing.T) {
	gpu := TrainerRequirements("yolo", "0")
	if len(gpu) != 2 || gpu[0].Command != "yolo" || gpu[0].Optional || !gpu[1].Optional {
		t.Fatalf("unexpected gpu requirements: %#v", gpu)
	}
	cpu := TrainerRequirements("yolo", "CPU")
	if len(cpu) != 1 {
		t.Fatalf("expected cpu training to skip nvidia-smi, got %#v", cpu)
	}
}

func TestMissingRequired(t *testing.T) {
	missing := MissingRequired([]Status{
		{Name: "a", Available: true},
		{Name: "b"},
		{Name: "c", Optional: true},
	})
	if len(missing) != 1 || missing[0] != "b" {
		t.Fatalf("unexpected missing list: %v", missing)
	}
}
