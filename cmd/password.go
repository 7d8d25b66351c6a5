package cmd

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/remotectl/unlockd/internal/crypto"
)

// ReadPassword reads a password from the terminal without echoing
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// ReadPasswordConfirm reads a password twice and ensures they match
func ReadPasswordConfirm() ([]byte, error) {
	password1, err := ReadPassword("Enter unlock password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(password1)

	password2, err := ReadPassword("Confirm unlock password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, fmt.Errorf("passwords do not match")
	}

	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// GetPasswordFromEnv reads the password from UNLOCKD_PASSWORD
func GetPasswordFromEnv() []byte {
	password := os.Getenv("UNLOCKD_PASSWORD")
	if password == "" {
		return nil
	}
	result := make([]byte, len(password))
	copy(result, []byte(password))
	return result
}
