package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("UNLOCKD_DIR", "")
	t.Setenv("UNLOCKD_IPC_ADDR", "")
	t.Setenv("UNLOCKD_RFB_ADDR", "")

	cfg := Load()
	if cfg.Dir == "" || cfg.K2Path == "" || cfg.HistoryPath == "" {
		t.Fatalf("paths not defaulted: %+v", cfg)
	}
	if cfg.IPCAddr != "127.0.0.1:3459" {
		t.Errorf("IPCAddr = %q", cfg.IPCAddr)
	}
	if cfg.RFBAddr != "127.0.0.1:5900" {
		t.Errorf("RFBAddr = %q", cfg.RFBAddr)
	}
	if cfg.PollInterval <= 0 || cfg.GraceWindow <= 0 || cfg.ProviderWait <= 0 {
		t.Errorf("timings not defaulted: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("UNLOCKD_DIR", dir)
	t.Setenv("UNLOCKD_IPC_ADDR", "127.0.0.1:9999")
	t.Setenv("UNLOCKD_RFB_ADDR", "127.0.0.1:5999")

	cfg := Load()
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}
	if cfg.K2Path != filepath.Join(dir, "unlock.k2") {
		t.Errorf("K2Path = %q", cfg.K2Path)
	}
	if cfg.IPCAddr != "127.0.0.1:9999" || cfg.RFBAddr != "127.0.0.1:5999" {
		t.Errorf("addresses not overridden: %+v", cfg)
	}
}
