package unlock

// No programmatic unlock call exists; the secure desktop only accepts
// input through the credential provider, which the handoff strategy
// covers.
func nativeUnlockCommands() [][]string {
	return nil
}
