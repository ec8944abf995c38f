// Package mxl extracts compressed MusicXML containers (.mxl), which are
// zip archives holding the score document plus a META-INF manifest.
package mxl

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/HariKoor/OMR-API/internal/musicxml"
)

// ErrNotArchive reports a .mxl file that is not a valid zip container.
var ErrNotArchive = errors.New("mxl file is not a valid zip archive")

// Extract unpacks the archive into a sibling "<stem>_unzipped" directory
// (or destDir when non-empty) and returns the extraction directory.
func Extract(mxlPath, destDir string) (string, error) {
	if strings.ToLower(filepath.Ext(mxlPath)) != ".mxl" {
		return "", fmt.Errorf("input file must have .mxl extension, got %q", filepath.Base(mxlPath))
	}

	reader, err := zip.OpenReader(mxlPath)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return "", fmt.Errorf("%w: %s", ErrNotArchive, mxlPath)
		}
		return "", fmt.Errorf("open mxl archive: %w", err)
	}
	defer reader.Close()

	if strings.TrimSpace(destDir) == "" {
		stem := strings.TrimSuffix(filepath.Base(mxlPath), filepath.Ext(mxlPath))
		destDir = filepath.Join(filepath.Dir(mxlPath), stem+"_unzipped")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create extraction directory: %w", err)
	}

	for _, entry := range reader.File {
		if err := extractEntry(entry, destDir); err != nil {
			return "", err
		}
	}
	return destDir, nil
}

func extractEntry(entry *zip.File, destDir string) error {
	target, err := sanitizePath(destDir, entry.Name)
	if err != nil {
		return err
	}
	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create entry directory: %w", err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create extracted file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	return dst.Close()
}

// sanitizePath rejects entries that would escape the extraction directory.
func sanitizePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", name)
	}
	return target, nil
}

// FindScore locates the score document inside an extracted archive. The
// META-INF container manifest names the root score file; when the manifest
// is absent or unreadable the first XML file outside META-INF wins.
func FindScore(dir string) (string, error) {
	if path, err := scoreFromManifest(dir); err == nil && path != "" {
		return path, nil
	}

	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "META-INF" {
				return fs.SkipDir
			}
			return nil
		}
		if found != "" {
			return fs.SkipAll
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".xml", ".musicxml":
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan extraction directory: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("no score document found in %s", dir)
	}
	return found, nil
}

// scoreFromManifest reads META-INF/container.xml and resolves its first
// rootfile full-path reference.
func scoreFromManifest(dir string) (string, error) {
	manifest := filepath.Join(dir, "META-INF", "container.xml")
	doc, err := musicxml.Parse(manifest)
	if err != nil {
		return "", err
	}
	rootfile := doc.Root.FindFirst("rootfile")
	if rootfile == nil {
		return "", errors.New("container manifest has no rootfile")
	}
	var fullPath string
	for _, attr := range rootfile.Attrs {
		if attr.Name.Local == "full-path" {
			fullPath = attr.Value
			break
		}
	}
	if strings.TrimSpace(fullPath) == "" {
		return "", errors.New("container rootfile has no full-path")
	}
	resolved, err := sanitizePath(dir, fullPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(resolved); err != nil {
		return "", err
	}
	return resolved, nil
}
