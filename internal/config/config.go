package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/virtshell/vshell/internal/qemu"
)

// Config holds all vshell configuration, including the user preferences
// that used to live in ad hoc global state: bell handling and the
// first-run flag have documented reset semantics here instead.
type Config struct {
	// RuntimeDir holds firmware, keymaps and the disk images.
	RuntimeDir string `mapstructure:"runtime_dir"`

	// TmpDir is passed to the VM process as TMPDIR.
	TmpDir string `mapstructure:"tmp_dir"`

	// QEMUBinary is the emulator binary name or path.
	QEMUBinary string `mapstructure:"qemu_binary"`

	// DNSUpstream is consumed by the VM's internal resolver.
	DNSUpstream string `mapstructure:"dns_upstream"`

	// StorageRoot is probed for external storage at session start.
	StorageRoot string `mapstructure:"storage_root"`

	// SeedISO is the installation image staged on first run.
	SeedISO string `mapstructure:"seed_iso"`

	// HDDSizeMB is the hard disk image size created on first run.
	HDDSizeMB int64 `mapstructure:"hdd_size_mb"`

	// IgnoreBell silences the terminal bell.
	IgnoreBell bool `mapstructure:"ignore_bell"`

	// FirstRun is cleared once the user has acknowledged the intro.
	FirstRun bool `mapstructure:"first_run"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	paths, err := GetPaths()
	if err != nil {
		paths = &Paths{DataDir: "/tmp/vshell"}
	}

	return &Config{
		RuntimeDir:  paths.DataDir,
		TmpDir:      os.TempDir(),
		QEMUBinary:  "qemu-system-x86_64",
		DNSUpstream: qemu.DefaultDNSUpstream,
		StorageRoot: qemu.HostStoragePath,
		SeedISO:     filepath.Join(paths.DataDir, "seed.iso"),
		HDDSizeMB:   8192,
		IgnoreBell:  false,
		FirstRun:    true,
	}
}

// Global holds the loaded configuration.
var Global *Config

// Load reads configuration from file, environment, and defaults.
func Load() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to determine paths: %w", err)
	}

	defaults := DefaultConfig()
	viper.SetDefault("runtime_dir", defaults.RuntimeDir)
	viper.SetDefault("tmp_dir", defaults.TmpDir)
	viper.SetDefault("qemu_binary", defaults.QEMUBinary)
	viper.SetDefault("dns_upstream", defaults.DNSUpstream)
	viper.SetDefault("storage_root", defaults.StorageRoot)
	viper.SetDefault("seed_iso", defaults.SeedISO)
	viper.SetDefault("hdd_size_mb", defaults.HDDSizeMB)
	viper.SetDefault("ignore_bell", defaults.IgnoreBell)
	viper.SetDefault("first_run", defaults.FirstRun)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(paths.DataDir)
	viper.AddConfigPath(paths.ConfigDir)

	// Environment variable support: VSHELL_RUNTIME_DIR, VSHELL_IGNORE_BELL, etc.
	viper.SetEnvPrefix("VSHELL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK - we use defaults.
	}

	Global = &Config{}
	if err := viper.Unmarshal(Global); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	return nil
}

// SetIgnoreBell persists the bell preference.
func SetIgnoreBell(ignore bool) error {
	viper.Set("ignore_bell", ignore)
	if Global != nil {
		Global.IgnoreBell = ignore
	}
	return save()
}

// CompleteFirstRun records that the intro has been acknowledged.
func CompleteFirstRun() error {
	viper.Set("first_run", false)
	if Global != nil {
		Global.FirstRun = false
	}
	return save()
}

func save() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to determine paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := viper.WriteConfigAs(paths.ConfigFile); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ConfigFileUsed returns the path of the config file being used, if any.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
