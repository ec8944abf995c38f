package deps_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HariKoor/OMR-API/internal/deps"
	"github.com/HariKoor/OMR-API/internal/testsupport"
)

func TestCheckBinariesAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "audiveris")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	statuses := deps.CheckBinaries([]deps.Requirement{
		{Name: "Audiveris", Command: bin},
		{Name: "MuseScore", Command: filepath.Join(dir, "missing")},
	})
	if len(statuses) != 2 {
		t.Fatalf("len = %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Errorf("existing binary reported unavailable: %+v", statuses[0])
	}
	if statuses[1].Available {
		t.Errorf("missing binary reported available: %+v", statuses[1])
	}
	if statuses[1].Detail == "" {
		t.Error("missing binary should carry a detail message")
	}
}

func TestCheckBinariesEmptyCommand(t *testing.T) {
	statuses := deps.CheckBinaries([]deps.Requirement{{Name: "Audiveris"}})
	if statuses[0].Available {
		t.Error("empty command should be unavailable")
	}
	if statuses[0].Detail != "command not configured" {
		t.Errorf("detail = %q", statuses[0].Detail)
	}
}

func TestRequirementsFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	requirements := deps.Requirements(cfg)
	if len(requirements) != 2 {
		t.Fatalf("len = %d", len(requirements))
	}

	statuses := deps.CheckBinaries(requirements)
	if !deps.AllAvailable(statuses) {
		t.Errorf("stubbed binaries should all be available: %+v", statuses)
	}
}

func TestAllAvailableIgnoresOptional(t *testing.T) {
	statuses := []deps.Status{
		{Name: "required", Available: true},
		{Name: "optional", Optional: true, Available: false},
	}
	if !deps.AllAvailable(statuses) {
		t.Error("optional unavailable dependency should not fail the check")
	}
}
