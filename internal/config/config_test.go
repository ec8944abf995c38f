package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HariKoor/OMR-API/internal/config"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate, got %v", err)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8000" {
		t.Errorf("api bind = %q", cfg.Paths.APIBind)
	}
	if cfg.Tools.AudiverisBin == "" || cfg.Tools.MuseScoreBin == "" {
		t.Error("tool binaries must have defaults")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Error("exists should be false for a missing file")
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Sessions.RetentionMinutes != 60 {
		t.Errorf("retention = %d, want default 60", cfg.Sessions.RetentionMinutes)
	}
}

func TestLoadParsesAndExpands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
sessions_dir = "` + dir + `/sessions"
api_bind = "127.0.0.1:9100"

[tools]
audiveris_bin = "/opt/audiveris/bin/Audiveris"
omr_timeout = 120
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("exists should be true")
	}
	if cfg.Paths.APIBind != "127.0.0.1:9100" {
		t.Errorf("api bind = %q", cfg.Paths.APIBind)
	}
	if cfg.Tools.AudiverisBin != "/opt/audiveris/bin/Audiveris" {
		t.Errorf("audiveris = %q", cfg.Tools.AudiverisBin)
	}
	if cfg.Tools.OMRTimeoutSeconds != 120 {
		t.Errorf("omr timeout = %d", cfg.Tools.OMRTimeoutSeconds)
	}
	// Unset fields keep defaults.
	if cfg.Tools.RenderTimeoutSeconds != 120 {
		t.Errorf("render timeout = %d, want default 120", cfg.Tools.RenderTimeoutSeconds)
	}
	if !filepath.IsAbs(cfg.Paths.SessionsDir) {
		t.Errorf("sessions dir not absolute: %q", cfg.Paths.SessionsDir)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		detail  string
	}{
		{"zero timeout", "[tools]\nomr_timeout = 0\n", "omr_timeout"},
		{"bad level", "[logging]\nlevel = \"verbose\"\n", "log level"},
		{"bad format", "[logging]\nformat = \"yaml\"\n", "log format"},
		{"zero retention", "[sessions]\nretention_minutes = -5\n", "retention_minutes"},
	}
	for _, tc := range cases {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
			t.Fatalf("%s: write config: %v", tc.name, err)
		}
		_, _, _, err := config.Load(path)
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.detail) {
			t.Errorf("%s: error %q should mention %q", tc.name, err, tc.detail)
		}
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := config.ExpandPath("~/scores")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != filepath.Join(home, "scores") {
		t.Errorf("ExpandPath = %q", got)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "audiveris_bin") {
		t.Error("sample config should document audiveris_bin")
	}

	// The sample must itself load cleanly.
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}
