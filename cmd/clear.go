package cmd

import (
	"fmt"

	"github.com/remotectl/unlockd/internal/config"
)

// Clear removes all stored credential artifacts. Safe to run twice.
func Clear() {
	cfg := config.Load()
	v := OpenVault(cfg)

	v.ClearStoredCredentials()
	fmt.Println("Stored credentials cleared")
}
