//go:build !linux && !windows && !darwin

package lockstate

// No lock signals known for this platform; the probe reports unlocked.
func platformSignals() []Signal {
	return nil
}
