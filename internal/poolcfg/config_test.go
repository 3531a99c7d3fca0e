package poolcfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeTemp(t, `region_size: 2097152`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MinShift != 3 {
		t.Fatalf("MinShift = %d, want default 3", cfg.MinShift)
	}
	if cfg.RegionSize != 2097152 {
		t.Fatalf("RegionSize = %d, want 2097152", cfg.RegionSize)
	}
	if cfg.StatsInterval != 30*time.Second {
		t.Fatalf("StatsInterval = %s, want default 30s", cfg.StatsInterval)
	}
	if cfg.AdminAddr != ":9191" {
		t.Fatalf("AdminAddr = %q, want the default :9191 when omitted from the file", cfg.AdminAddr)
	}
}

func TestLoadHonorsExplicitEmptyAdminAddr(t *testing.T) {
	path := writeTemp(t, `
region_size: 4096
admin_addr: ""
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AdminAddr != "" {
		t.Fatalf("AdminAddr = %q, want empty: an explicit admin_addr: \"\" must disable the admin surface, not fall back to the default", cfg.AdminAddr)
	}
}

func TestLoadParsesDurationAndOverrides(t *testing.T) {
	path := writeTemp(t, `
min_shift: 4
region_size: 4096
admin_addr: ":7777"
stats_interval: 5m
lock_file: /tmp/pool.lock
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MinShift != 4 {
		t.Fatalf("MinShift = %d, want 4", cfg.MinShift)
	}
	if cfg.AdminAddr != ":7777" {
		t.Fatalf("AdminAddr = %q, want :7777", cfg.AdminAddr)
	}
	if cfg.StatsInterval != 5*time.Minute {
		t.Fatalf("StatsInterval = %s, want 5m", cfg.StatsInterval)
	}
	if cfg.LockFile != "/tmp/pool.lock" {
		t.Fatalf("LockFile = %q, want /tmp/pool.lock", cfg.LockFile)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []Config{
		{RegionSize: 0},
		{RegionSize: 4096, MinShift: 2},
		{RegionSize: 4096, StatsInterval: -1},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected Validate to reject %+v", i, c)
		}
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected Load to fail for a missing file")
	}
}
