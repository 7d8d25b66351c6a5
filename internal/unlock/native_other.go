//go:build !linux && !windows && !darwin

package unlock

func nativeUnlockCommands() [][]string {
	return nil
}
