package config

import (
	"fmt"
	"strings"
)

// Validate rejects configurations the drivers cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.SceneDB) == "" {
		return fmt.Errorf("config: paths.scene_db is required")
	}
	if strings.TrimSpace(c.Converter.Binary) == "" {
		return fmt.Errorf("config: converter.binary is required")
	}
	if c.Converter.TimeoutSeconds < 0 {
		return fmt.Errorf("config: converter.timeout_seconds must not be negative")
	}
	if strings.TrimSpace(c.Probe.Binary) == "" {
		return fmt.Errorf("config: probe.binary is required")
	}
	if c.Probe.TimeoutSeconds < 0 {
		return fmt.Errorf("config: probe.timeout_seconds must not be negative")
	}
	if c.Import.StartFrame < 0 {
		return fmt.Errorf("config: import.start_frame must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
