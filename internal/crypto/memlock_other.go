//go:build !linux && !darwin

package crypto

// LockMemory is a no-op on platforms without mlock
func LockMemory(b []byte) error { return nil }

// UnlockMemory is a no-op on platforms without mlock
func UnlockMemory(b []byte) error { return nil }
