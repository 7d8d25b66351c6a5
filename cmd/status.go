package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/remotectl/unlockd/internal/config"
	"github.com/remotectl/unlockd/internal/lockstate"
)

// Status reports stored-credential state, the current lock state and
// the last recorded unlock attempt. Requires no credentials itself.
func Status(ctx context.Context) {
	cfg := config.Load()
	v := OpenVault(cfg)

	if v.HasStoredCredentials() {
		fmt.Println("Credentials: stored")
	} else {
		fmt.Println("Credentials: not stored")
	}

	probe := lockstate.New()
	pctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if probe.IsLocked(pctx) {
		fmt.Println("Session:     locked")
	} else {
		fmt.Println("Session:     unlocked")
	}

	log := OpenHistory(cfg)
	if log == nil {
		return
	}
	defer log.Close()

	last, err := log.LastResult()
	if err != nil || last == nil {
		fmt.Println("Last unlock: (none recorded)")
		return
	}
	fmt.Printf("Last unlock: %s", last.Outcome)
	if last.Strategy != "" {
		fmt.Printf(" via %s", last.Strategy)
	}
	if last.Reason != "" {
		fmt.Printf(" (%s)", last.Reason)
	}
	fmt.Printf(" at %s\n", last.Timestamp.Format(time.RFC3339))
}
