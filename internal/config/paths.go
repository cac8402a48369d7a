// Package config provides configuration management for vshell.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds platform-specific directory paths for vshell.
type Paths struct {
	// ConfigDir is the directory for configuration files.
	// macOS: ~/Library/Application Support/vshell
	// Linux: ~/.config/vshell (or XDG_CONFIG_HOME)
	ConfigDir string

	// DataDir is the directory for disk images and runtime state.
	// All platforms: ~/.vshell
	DataDir string

	// ConfigFile is the path to the main config file.
	ConfigFile string
}

// GetPaths returns platform-aware paths for vshell.
func GetPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	p := &Paths{}

	// Data directory is always ~/.vshell
	p.DataDir = filepath.Join(home, ".vshell")

	// Config directory is platform-specific
	switch runtime.GOOS {
	case "darwin":
		p.ConfigDir = filepath.Join(home, "Library", "Application Support", "vshell")
	default: // Linux and others
		// Respect XDG_CONFIG_HOME if set
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			p.ConfigDir = filepath.Join(xdgConfig, "vshell")
		} else {
			p.ConfigDir = filepath.Join(home, ".config", "vshell")
		}
	}

	p.ConfigFile = filepath.Join(p.DataDir, "config.yaml")

	return p, nil
}

// EnsureDirectories creates the config and data directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.ConfigDir, 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(p.DataDir, 0755); err != nil {
		return err
	}
	return nil
}
