package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slate/internal/config"
)

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	wantDB := filepath.Join(tempHome, ".local", "share", "slate", "scene.db")
	if cfg.Paths.SceneDB != wantDB {
		t.Fatalf("unexpected scene db: got %q want %q", cfg.Paths.SceneDB, wantDB)
	}
	if cfg.Converter.Binary != "aafconvert" {
		t.Fatalf("unexpected converter binary: %q", cfg.Converter.Binary)
	}
	if cfg.Import.StartFrame != 101 {
		t.Fatalf("unexpected default start frame: %d", cfg.Import.StartFrame)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadReadsAndExpandsFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
scene_db = "~/scenes/a.db"
[import]
start_frame = 1001
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected file to exist")
	}
	if cfg.Paths.SceneDB != filepath.Join(tempHome, "scenes", "a.db") {
		t.Fatalf("tilde not expanded: %q", cfg.Paths.SceneDB)
	}
	if cfg.Import.StartFrame != 1001 {
		t.Fatalf("start frame not loaded: %d", cfg.Import.StartFrame)
	}
	// Untouched sections keep defaults.
	if cfg.Probe.Binary != "ffprobe" {
		t.Fatalf("probe default lost: %q", cfg.Probe.Binary)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[logging]
format = "xml"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("expected format validation error, got %v", err)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil || !exists {
		t.Fatalf("sample config should load: exists=%v err=%v", exists, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}
