package unlock

// caffeinate only wakes the display; entering the password is left to
// the later strategies.
func nativeUnlockCommands() [][]string {
	return [][]string{
		{"caffeinate", "-u", "-t", "1"},
	}
}
