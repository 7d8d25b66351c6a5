//go:build linux || darwin

package crypto

import "golang.org/x/sys/unix"

// LockMemory pins a secret buffer so it cannot be swapped to disk.
// Best effort: fails silently for callers that run without CAP_IPC_LOCK.
func LockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Mlock(b)
}

// UnlockMemory releases a buffer pinned with LockMemory
func UnlockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munlock(b)
}
