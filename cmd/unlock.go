package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/remotectl/unlockd/internal/config"
)

// Unlock runs a single unlock attempt end to end
func Unlock(ctx context.Context) {
	cfg := config.Load()
	v := OpenVault(cfg)

	log := OpenHistory(cfg)
	if log != nil {
		defer log.Close()
	}

	_, orch := BuildOrchestrator(cfg, v, recorderOrNil(log))

	if err := orch.Attempt(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Unlock failed")
		os.Exit(1)
	}
	fmt.Println("Session unlocked")
}
