// Package poolcfg loads the YAML configuration that drives a pool's
// lifecycle: how big a region to create, where to name it, and how the
// admin surface and stats cadence should be wired up.
package poolcfg

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape consumed by cmd/slabctl and cmd/pooladmin.
type Config struct {
	// MinShift sets the smallest block size to 2^MinShift (default 3).
	MinShift uint `yaml:"min_shift"`

	// RegionSize is the total size in bytes of the mapped region.
	RegionSize int `yaml:"region_size"`

	// RegionName names the shared-memory mapping. Empty generates one
	// with uuid.New() at creation time.
	RegionName string `yaml:"region_name"`

	// RegionDir overrides the shared-memory directory (default
	// /dev/shm). Mainly useful in tests.
	RegionDir string `yaml:"region_dir"`

	// AdminAddr is the gRPC listen address for cmd/pooladmin. Empty
	// disables the admin surface entirely.
	AdminAddr string `yaml:"admin_addr"`

	// StatsInterval is the cadence of the cron-driven stats log.
	StatsInterval time.Duration `yaml:"stats_interval"`

	// LockFile is loaded from lock_file. No command reads it: every pool
	// uses the atomic/futex mutex whatever its value.
	LockFile string `yaml:"lock_file"`
}

// rawConfig mirrors Config but keeps StatsInterval as the duration
// string yaml.v3 actually hands us ("30s"), since time.Duration itself
// unmarshals from YAML as a bare integer of nanoseconds. AdminAddr is a
// pointer so "key absent" (nil, keep the default) and "key present and
// set to the empty string" (non-nil, explicitly disable) are
// distinguishable — the other string fields have no non-empty default
// to protect, so a plain empty-string check is enough for them.
type rawConfig struct {
	MinShift      uint    `yaml:"min_shift"`
	RegionSize    int     `yaml:"region_size"`
	RegionName    string  `yaml:"region_name"`
	RegionDir     string  `yaml:"region_dir"`
	AdminAddr     *string `yaml:"admin_addr"`
	StatsInterval string  `yaml:"stats_interval"`
	LockFile      string  `yaml:"lock_file"`
}

// UnmarshalYAML lets Config accept the human-readable "30s" form for
// stats_interval that the documented schema uses, and lets admin_addr's
// explicit "" (disable the admin surface) survive past the default
// Load() already populated c with.
func (c *Config) UnmarshalYAML(unmarshal func(any) error) error {
	var raw rawConfig
	if err := unmarshal(&raw); err != nil {
		return err
	}
	// Only fields actually present in the document override the
	// defaults Load() already populated c with.
	if raw.MinShift != 0 {
		c.MinShift = raw.MinShift
	}
	if raw.RegionSize != 0 {
		c.RegionSize = raw.RegionSize
	}
	if raw.RegionName != "" {
		c.RegionName = raw.RegionName
	}
	if raw.RegionDir != "" {
		c.RegionDir = raw.RegionDir
	}
	if raw.AdminAddr != nil {
		c.AdminAddr = *raw.AdminAddr
	}
	if raw.LockFile != "" {
		c.LockFile = raw.LockFile
	}
	if raw.StatsInterval != "" {
		d, err := time.ParseDuration(raw.StatsInterval)
		if err != nil {
			return fmt.Errorf("poolcfg: stats_interval %q: %w", raw.StatsInterval, err)
		}
		c.StatsInterval = d
	}
	return nil
}

// defaults mirror the values documented alongside the YAML schema: an
// 8-byte minimum block, a 1MiB region, a ":9191" admin listen address,
// and a 30s stats cadence. A config file that sets admin_addr to ""
// explicitly disables the admin surface rather than falling back to
// this default, via UnmarshalYAML's pointer check above.
func defaults() Config {
	return Config{
		MinShift:      3,
		RegionSize:    1 << 20,
		AdminAddr:     ":9191",
		StatsInterval: 30 * time.Second,
	}
}

// Load reads and parses a YAML config file, filling in defaults for any
// field the file leaves at its zero value.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("poolcfg: reading %s: %w", path, err)
	}
	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("poolcfg: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that would fail later in a less
// obvious way (e.g. deep inside slab.Init).
func (c Config) Validate() error {
	if c.RegionSize <= 0 {
		return fmt.Errorf("poolcfg: region_size must be positive, got %d", c.RegionSize)
	}
	if c.MinShift != 0 && c.MinShift < 3 {
		return fmt.Errorf("poolcfg: min_shift must be at least 3, got %d", c.MinShift)
	}
	if c.StatsInterval < 0 {
		return fmt.Errorf("poolcfg: stats_interval must not be negative, got %s", c.StatsInterval)
	}
	return nil
}
