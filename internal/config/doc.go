// Package config loads and validates the slate configuration file.
//
// Configuration lives in a TOML file (default ~/.config/slate/config.toml).
// Load applies defaults, expands ~ in paths, and validates the result; a
// missing file yields the defaults so the tool works out of the box.
package config
