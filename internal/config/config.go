package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database locations.
type Paths struct {
	SceneDB string `toml:"scene_db"`
	LogDir  string `toml:"log_dir"`
	TempDir string `toml:"temp_dir"`
}

// Converter configures the external AAF-to-XML converter binary.
type Converter struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Probe configures the media inspection binary.
type Probe struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Import contains import-driver defaults.
type Import struct {
	StartFrame int `toml:"start_frame"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration document.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Converter Converter `toml:"converter"`
	Probe     Probe     `toml:"probe"`
	Import    Import    `toml:"import"`
	Logging   Logging   `toml:"logging"`
}

// DefaultPath returns the conventional config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "slate", "config.toml"), nil
}

// Load reads the config at path, or the default location when path is empty.
// It returns the loaded config, the resolved path, and whether a file existed.
func Load(path string) (*Config, string, bool, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		def, err := DefaultPath()
		if err != nil {
			return nil, "", false, err
		}
		resolved = def
	}
	resolved = expandPath(resolved)

	cfg := Default()
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg.expand()
		if verr := cfg.Validate(); verr != nil {
			return nil, resolved, false, verr
		}
		return cfg, resolved, false, nil
	case err != nil:
		return nil, resolved, false, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, resolved, true, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	cfg.expand()
	if err := cfg.Validate(); err != nil {
		return nil, resolved, true, err
	}
	return cfg, resolved, true, nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the tool writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Paths.SceneDB), c.Paths.LogDir}
	if c.Paths.TempDir != "" {
		dirs = append(dirs, c.Paths.TempDir)
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

// TempDir returns the configured scratch directory, or the system default.
func (c *Config) TempDir() string {
	if c.Paths.TempDir != "" {
		return c.Paths.TempDir
	}
	return os.TempDir()
}

func (c *Config) expand() {
	c.Paths.SceneDB = expandPath(c.Paths.SceneDB)
	c.Paths.LogDir = expandPath(c.Paths.LogDir)
	c.Paths.TempDir = expandPath(c.Paths.TempDir)
}

func expandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
