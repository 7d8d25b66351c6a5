package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/remotectl/unlockd/internal/config"
)

// History prints the most recent unlock attempts, newest first
func History(n int) {
	cfg := config.Load()
	log := OpenHistory(cfg)
	if log == nil {
		os.Exit(1)
	}
	defer log.Close()

	attempts, err := log.Recent(n)
	if err != nil {
		HandleError(err)
	}
	if len(attempts) == 0 {
		fmt.Println("No unlock attempts recorded")
		return
	}

	for _, a := range attempts {
		line := fmt.Sprintf("%s  %s", a.Timestamp.Format(time.RFC3339), a.Outcome)
		if a.Strategy != "" {
			line += fmt.Sprintf("  via %s", a.Strategy)
		}
		if a.Reason != "" {
			line += fmt.Sprintf("  (%s)", a.Reason)
		}
		fmt.Println(line)
	}
}
