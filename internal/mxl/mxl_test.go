package mxl_test

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/HariKoor/OMR-API/internal/mxl"
)

const scoreContent = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise><part id="P1"/></score-partwise>
`

const containerContent = `<?xml version="1.0" encoding="UTF-8"?>
<container>
  <rootfiles>
    <rootfile full-path="sheet1.xml" media-type="application/vnd.recordare.musicxml+xml"/>
  </rootfiles>
</container>
`

func buildArchive(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sheet1.mxl")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	writer := zip.NewWriter(file)
	for name, content := range entries {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestExtractAndFindScoreViaManifest(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"META-INF/container.xml": containerContent,
		"sheet1.xml":             scoreContent,
	})

	dir, err := mxl.Extract(archive, "")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if filepath.Base(dir) != "sheet1_unzipped" {
		t.Errorf("extraction dir = %q, want sheet1_unzipped", filepath.Base(dir))
	}

	score, err := mxl.FindScore(dir)
	if err != nil {
		t.Fatalf("FindScore failed: %v", err)
	}
	if filepath.Base(score) != "sheet1.xml" {
		t.Errorf("score = %q, want sheet1.xml", score)
	}
}

func TestFindScoreFallsBackWithoutManifest(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"score.xml": scoreContent,
	})
	dir, err := mxl.Extract(archive, "")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	score, err := mxl.FindScore(dir)
	if err != nil {
		t.Fatalf("FindScore failed: %v", err)
	}
	if filepath.Base(score) != "score.xml" {
		t.Errorf("score = %q, want score.xml", score)
	}
}

func TestFindScoreIgnoresManifestOnlyArchives(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"META-INF/container.xml": containerContent,
	})
	dir, err := mxl.Extract(archive, "")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if _, err := mxl.FindScore(dir); err == nil {
		t.Fatal("expected error when the referenced score is missing")
	}
}

func TestExtractRejectsWrongExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet1.zip")
	if err := os.WriteFile(path, []byte("not an mxl"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := mxl.Extract(path, ""); err == nil {
		t.Fatal("expected extension error")
	}
}

func TestExtractRejectsInvalidArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet1.mxl")
	if err := os.WriteFile(path, []byte("this is not a zip"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	_, err := mxl.Extract(path, "")
	if !errors.Is(err, mxl.ErrNotArchive) {
		t.Fatalf("expected ErrNotArchive, got %v", err)
	}
}
