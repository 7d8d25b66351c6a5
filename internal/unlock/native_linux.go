package unlock

// nativeUnlockCommands lists the platform tools tried in order. Each is
// best effort; the lock-state probe decides whether any of them worked.
func nativeUnlockCommands() [][]string {
	return [][]string{
		{"loginctl", "unlock-session"},
		{"dbus-send", "--session", "--type=method_call",
			"--dest=org.freedesktop.ScreenSaver",
			"/org/freedesktop/ScreenSaver",
			"org.freedesktop.ScreenSaver.SetActive", "boolean:false"},
	}
}
