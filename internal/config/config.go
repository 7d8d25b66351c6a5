package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config carries every tunable of the agent: state paths, the IPC
// endpoint, the display-server target and attempt timing. Zero values
// are filled in by setDefaults, environment variables override paths
// and addresses.
type Config struct {
	Dir         string // state directory, owner-only
	K2Path      string // local key half, exactly 32 raw bytes
	HistoryPath string // attempt log database

	IPCAddr string // loopback endpoint for the credential provider
	RFBAddr string // local display server for last-resort injection

	RFBTimeout   time.Duration // per socket operation
	KeyDelay     time.Duration // between injected key events
	PollInterval time.Duration // consumer pending-flag poll
	GraceWindow  time.Duration // post-strategy wait for the probe
	ProviderWait time.Duration // handoff wait for the provider's result
}

// Load builds the effective configuration from the environment
func Load() Config {
	cfg := Config{
		Dir:     os.Getenv("UNLOCKD_DIR"),
		IPCAddr: os.Getenv("UNLOCKD_IPC_ADDR"),
		RFBAddr: os.Getenv("UNLOCKD_RFB_ADDR"),
	}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Dir == "" {
		if base, err := os.UserConfigDir(); err == nil {
			c.Dir = filepath.Join(base, "unlockd")
		} else {
			c.Dir = ".unlockd"
		}
	}
	if c.K2Path == "" {
		c.K2Path = filepath.Join(c.Dir, "unlock.k2")
	}
	if c.HistoryPath == "" {
		c.HistoryPath = filepath.Join(c.Dir, "history.db")
	}
	if c.IPCAddr == "" {
		c.IPCAddr = "127.0.0.1:3459"
	}
	if c.RFBAddr == "" {
		c.RFBAddr = "127.0.0.1:5900"
	}
	if c.RFBTimeout <= 0 {
		c.RFBTimeout = 10 * time.Second
	}
	if c.KeyDelay <= 0 {
		c.KeyDelay = 30 * time.Millisecond
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	if c.GraceWindow <= 0 {
		c.GraceWindow = 8 * time.Second
	}
	if c.ProviderWait <= 0 {
		c.ProviderWait = 15 * time.Second
	}
}
