package config

import (
	"os"
	"path/filepath"
)

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Paths: Paths{
			SceneDB: filepath.Join(dataDir, "scene.db"),
			LogDir:  filepath.Join(dataDir, "logs"),
		},
		Converter: Converter{
			Binary:         "aafconvert",
			TimeoutSeconds: 300,
		},
		Probe: Probe{
			Binary:         "ffprobe",
			TimeoutSeconds: 30,
		},
		Import: Import{
			StartFrame: 101,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "slate")
	}
	return filepath.Join(home, ".local", "share", "slate")
}
