package lockstate

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// State is the derived session lock state. It is never persisted.
type State int

const (
	StateUnknown State = iota
	StateUnlocked
	StateLocked
)

func (s State) String() string {
	switch s {
	case StateUnlocked:
		return "unlocked"
	case StateLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Runner executes a platform tool and returns its stdout. Injectable so
// tests can fake platform behavior.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// Signal is one independent, best-effort lock indicator. A positive
// result means locked; an error means the signal has nothing to say.
type Signal struct {
	Name  string
	Check func(ctx context.Context, run Runner) (bool, error)
}

const signalTimeout = 5 * time.Second

// Probe answers "is the session locked?" by combining platform signals
// with OR semantics: any positive signal means locked. A signal that
// errors (tool missing, API unavailable) contributes nothing and never
// flips the result on its own.
type Probe struct {
	run     Runner
	signals []Signal
}

// New returns a probe with this platform's signal set
func New() *Probe {
	return &Probe{run: execRunner, signals: platformSignals()}
}

// NewWithSignals builds a probe from explicit signals, for tests and
// special deployments.
func NewWithSignals(run Runner, signals []Signal) *Probe {
	return &Probe{run: run, signals: signals}
}

// IsLocked reports whether any signal considers the session locked
func (p *Probe) IsLocked(ctx context.Context) bool {
	for _, sig := range p.signals {
		sctx, cancel := context.WithTimeout(ctx, signalTimeout)
		locked, err := sig.Check(sctx, p.run)
		cancel()
		if err != nil {
			continue
		}
		if locked {
			return true
		}
	}
	return false
}

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return strings.TrimSpace(string(out)), err
}
