package cmd

import (
	"fmt"
	"os"

	"github.com/remotectl/unlockd/internal/config"
	"github.com/remotectl/unlockd/internal/crypto"
)

// Store saves the unlock credentials. An empty username or password
// falls back to the environment, then to interactive prompts.
func Store(username string, password string) {
	cfg := config.Load()
	v := OpenVault(cfg)

	if username == "" {
		fmt.Print("Username: ")
		if _, err := fmt.Scanln(&username); err != nil || username == "" {
			fmt.Fprintln(os.Stderr, "Error: username required")
			os.Exit(1)
		}
	}

	var pw []byte
	if password != "" {
		pw = []byte(password)
	} else if pw = GetPasswordFromEnv(); pw == nil {
		var err error
		pw, err = ReadPasswordConfirm()
		if err != nil {
			HandleError(err)
		}
	}
	defer crypto.Wipe(pw)

	if err := v.StoreUnlockCredentials(username, pw); err != nil {
		HandleError(err)
	}
	fmt.Println("Unlock credentials stored")
}
