package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/remotectl/unlockd/internal/config"
	"github.com/remotectl/unlockd/internal/history"
	"github.com/remotectl/unlockd/internal/lockstate"
	"github.com/remotectl/unlockd/internal/rfb"
	"github.com/remotectl/unlockd/internal/secstore"
	"github.com/remotectl/unlockd/internal/unlock"
	"github.com/remotectl/unlockd/internal/vault"
)

// OpenVault wires the secure store and the key-half path into a vault
func OpenVault(cfg config.Config) *vault.Vault {
	store, err := secstore.Open(cfg.Dir)
	if err != nil {
		HandleError(fmt.Errorf("failed to open secure storage: %w", err))
	}
	return vault.New(store, cfg.K2Path)
}

// OpenHistory opens the attempt log, nil when it cannot be opened.
// History is advisory, a broken log never blocks an unlock.
func OpenHistory(cfg config.Config) *history.Log {
	log, err := history.Open(cfg.HistoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: attempt history unavailable: %s\n", err)
		return nil
	}
	return log
}

// BuildOrchestrator assembles the session, probe and strategy chain
func BuildOrchestrator(cfg config.Config, v *vault.Vault, rec unlock.Recorder) (*unlock.Session, *unlock.Orchestrator) {
	session := unlock.NewSession(v)
	strategies := []unlock.Strategy{
		&unlock.NativeStrategy{},
		&unlock.ProviderHandoff{Session: session, Wait: cfg.ProviderWait},
		&unlock.DisplayInjection{Opts: rfb.Options{
			Addr:     cfg.RFBAddr,
			Timeout:  cfg.RFBTimeout,
			KeyDelay: cfg.KeyDelay,
		}},
	}
	orch := unlock.NewOrchestrator(session, lockstate.New(), strategies, unlock.Options{
		GraceWindow: cfg.GraceWindow,
		Recorder:    rec,
	})
	return session, orch
}

// recorderOrNil avoids handing the orchestrator a typed nil recorder
func recorderOrNil(log *history.Log) unlock.Recorder {
	if log == nil {
		return nil
	}
	return log
}

// HandleError prints a classified message and exits
func HandleError(err error) {
	switch {
	case errors.Is(err, vault.ErrEmpty):
		fmt.Fprintf(os.Stderr, "Error: username and password must not be empty\n")
	case errors.Is(err, vault.ErrIncomplete):
		fmt.Fprintf(os.Stderr, "Error: stored credentials are incomplete or missing\n")
		fmt.Fprintf(os.Stderr, "Run 'unlockd store' first\n")
	case errors.Is(err, vault.ErrCorrupt):
		fmt.Fprintf(os.Stderr, "Error: stored credentials are corrupt\n")
		fmt.Fprintf(os.Stderr, "Run 'unlockd clear' and then 'unlockd store' again\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}
